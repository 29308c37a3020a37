package abstract

import "github.com/fewrick/jpamb/internal/interp"

// RunAll drives the abstract step function from initial to exhaustion,
// exploring every non-deterministic branch via a FIFO worklist (§4.G)
// and returning the set of every terminal outcome reached. A path that
// exceeds budget steps contributes the budget-exhausted outcome ("*")
// instead of being explored further, bounding an otherwise potentially
// infinite abstract state space.
func (ab *Interp) RunAll(initial *AState, budget int) (map[interp.Outcome]bool, error) {
	results := make(map[interp.Outcome]bool)
	type item struct {
		state *AState
		steps int
	}
	queue := []item{{state: initial, steps: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.steps >= budget {
			results[interp.Budget] = true
			continue
		}

		successors, outcomes, err := ab.Step(cur.state)
		if err != nil {
			return nil, err
		}
		for _, o := range outcomes {
			results[o] = true
		}
		for _, s := range successors {
			queue = append(queue, item{state: s, steps: cur.steps + 1})
		}
	}
	return results, nil
}
