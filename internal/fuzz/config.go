// Package fuzz implements the coverage-guided fuzz loop of §4.I: seed
// from static hints, generate and mutate inputs by type, track edge
// coverage, and stop on a stall limit, an iteration cap, or full
// coverage.
package fuzz

// Config parameterizes one fuzz campaign.
type Config struct {
	Budget        int     // concrete interpreter step budget per run
	MaxIterations int     // hard iteration cap
	StallLimit    int     // consecutive no-new-coverage iterations before stopping
	NumericRange  int     // ± bound for freshly generated integers
	MutationRate  float64 // per-iteration probability of mutating a corpus entry vs. generating a fresh tuple (single-parameter methods only)
	MaxStringLen  int
	MaxArrayLen   int
	Seed          int64
}

func DefaultConfig() Config {
	return Config{
		Budget:        1000,
		MaxIterations: 1000,
		StallLimit:    40,
		NumericRange:  1000,
		MutationRate:  0.5,
		MaxStringLen:  16,
		MaxArrayLen:   8,
		Seed:          1,
	}
}
