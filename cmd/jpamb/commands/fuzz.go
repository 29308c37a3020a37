package commands

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/fewrick/jpamb/internal/dashboard"
	"github.com/fewrick/jpamb/internal/fuzz"
	"github.com/fewrick/jpamb/internal/interp"
	"github.com/fewrick/jpamb/internal/jerrors"
	"github.com/fewrick/jpamb/internal/opcode"
	"github.com/fewrick/jpamb/internal/report"
	"github.com/fewrick/jpamb/internal/runid"
	"github.com/fewrick/jpamb/internal/store"
	"github.com/fewrick/jpamb/internal/suite"
)

// stdoutSink prints the §6 fuzzer log lines to the terminal as the
// campaign runs.
type stdoutSink struct{}

func (stdoutSink) Iteration(index int, args string, outcome interp.Outcome, newCoverage bool, coveredCount int) {
	mark := "[-]"
	if newCoverage {
		mark = "[+]"
	}
	fmt.Printf("%s %s %s\n", mark, args, outcome)
}

func (stdoutSink) Summary(r fuzz.Result) {}

// storeSink mirrors fuzz progress into a campaign row, adapting
// internal/store's ctx/campaignID-taking methods to the Sink interface.
type storeSink struct {
	s          *store.Store
	campaignID string
}

func (s storeSink) Iteration(index int, args string, outcome interp.Outcome, newCoverage bool, coveredCount int) {
	if err := s.s.RecordIteration(context.Background(), s.campaignID, index, args, outcome, newCoverage, nil); err != nil {
		fmt.Printf("store: record iteration %d: %v\n", index, err)
	}
}

func (s storeSink) Summary(r fuzz.Result) {
	covered := len(r.Covered)
	if err := s.s.FinishCampaign(context.Background(), s.campaignID, r.Iterations, covered, time.Now()); err != nil {
		fmt.Printf("store: finish campaign: %v\n", err)
	}
}

// Fuzz implements "jpamb fuzz <methodid> [flags]": the coverage-guided
// fuzz loop of §4.I against one method, with optional persistence and
// live-dashboard sinks.
func Fuzz(code *suite.Cache, args []string) error {
	if len(args) < 1 {
		return jerrors.NewUsageError("usage: jpamb fuzz <methodid> [flags]")
	}

	fs := flag.NewFlagSet("fuzz", flag.ContinueOnError)
	seed := fs.Int64("seed", fuzz.DefaultConfig().Seed, "RNG seed")
	maxIter := fs.Int("max-iterations", fuzz.DefaultConfig().MaxIterations, "iteration cap")
	stallLimit := fs.Int("stall-limit", fuzz.DefaultConfig().StallLimit, "consecutive no-new-coverage iterations before stopping")
	budget := fs.Int("budget", fuzz.DefaultConfig().Budget, "per-run instruction budget")
	numericRange := fs.Int("numeric-range", fuzz.DefaultConfig().NumericRange, "+/- bound for freshly generated integers")
	mutationRate := fs.Float64("mutation-rate", fuzz.DefaultConfig().MutationRate, "probability of mutating a corpus entry vs. generating a fresh tuple (single-parameter methods only)")
	maxStringLen := fs.Int("max-string-len", fuzz.DefaultConfig().MaxStringLen, "max length of a generated string")
	maxArrayLen := fs.Int("max-array-len", fuzz.DefaultConfig().MaxArrayLen, "max length of a generated array")
	dsn := fs.String("store", "", "DSN of a campaign store to persist results into, e.g. sqlite://jpamb.db")
	dashboardAddr := fs.String("dashboard", "", "address to serve a live campaign dashboard on, e.g. :8080")
	if err := fs.Parse(args[1:]); err != nil {
		return jerrors.NewUsageError("%v", err)
	}

	m, err := opcode.ParseMethodID(args[0])
	if err != nil {
		return jerrors.NewUsageError("%v", err)
	}

	cfg := fuzz.Config{
		Budget:        *budget,
		MaxIterations: *maxIter,
		StallLimit:    *stallLimit,
		NumericRange:  *numericRange,
		MutationRate:  *mutationRate,
		MaxStringLen:  *maxStringLen,
		MaxArrayLen:   *maxArrayLen,
		Seed:          *seed,
	}

	sinks := []fuzz.Sink{stdoutSink{}}
	id := runid.New()

	if *dsn != "" {
		ctx := context.Background()
		st, err := store.Open(ctx, *dsn)
		if err != nil {
			return err
		}
		defer st.Close()
		total := 0
		if offsets, err := code.Offsets(m); err == nil {
			total = len(offsets)
		}
		if err := st.StartCampaign(ctx, store.Campaign{
			ID:           id,
			Method:       m.String(),
			StartedAt:    time.Now(),
			TotalOffsets: total,
		}); err != nil {
			return err
		}
		sinks = append(sinks, storeSink{s: st, campaignID: id})
	}

	if *dashboardAddr != "" {
		b := dashboard.New()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := b.Serve(ctx, *dashboardAddr); err != nil {
				fmt.Printf("dashboard: %v\n", err)
			}
		}()
		sinks = append(sinks, dashboard.Sink{B: b})
		fmt.Printf("dashboard listening on ws://%s/ws\n", *dashboardAddr)
	}

	start := time.Now()
	f := fuzz.New(code, m, cfg, sinks...)
	r, err := f.Run()
	if err != nil {
		return err
	}

	fmt.Println(report.Summarize(r, time.Since(start)))
	fmt.Println(report.OutcomeBreakdown(r))
	return nil
}
