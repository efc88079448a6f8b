// Package config centralizes the environment-variable-driven tunables for
// the mire runtime: garbage collector sizing, debug toggles and the
// virtual machine's step budget.
package config

import "github.com/caarlos0/env/v6"

// Config holds every knob the runtime reads from its process environment,
// populated via struct tags as the teacher's dependency closure already
// provides github.com/caarlos0/env for this purpose.
type Config struct {
	// InitialHeapBytes is the byte threshold at which the collector runs
	// its first cycle (spec 4.6).
	InitialHeapBytes int64 `env:"MIRE_INITIAL_HEAP_BYTES" envDefault:"1048576"`

	// HeapGrowFactor multiplies the live-set size after each collection to
	// compute the next collection threshold (spec 4.6 phase 4).
	HeapGrowFactor int64 `env:"MIRE_HEAP_GROW_FACTOR" envDefault:"2"`

	// StressGC forces a collection before every single allocation, for
	// exercising GC correctness under maximal pressure.
	StressGC bool `env:"MIRE_STRESS_GC" envDefault:"false"`

	// LogGC prints a one-line summary of every collection cycle to stderr.
	LogGC bool `env:"MIRE_LOG_GC" envDefault:"false"`

	// PrintCode disassembles every compiled function to stderr right after
	// compilation, before it runs.
	PrintCode bool `env:"MIRE_PRINT_CODE" envDefault:"false"`

	// MaxSteps caps the number of bytecode instructions a single
	// Interpret call may execute before it is aborted as a runtime error.
	// Zero means unlimited.
	MaxSteps int `env:"MIRE_MAX_STEPS" envDefault:"0"`
}

// Load reads Config from the process environment, applying defaults for
// anything unset.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
