package types

import (
	"github.com/mcuadros/go-defaults"
)

func NewPipelineOptions() *PipelineOptions {
	opts := &PipelineOptions{}
	defaults.SetDefaults(opts)
	return opts
}

type PipelineOptions struct {
	/**
	 * default: 1
	 * number of steps allowed to run in parallel. 0 means one worker per
	 * available CPU core.
	 */
	Jobs int `default:"1"`
	/**
	 * default: false, stop dispatching new steps after the first failure.
	 * Steps already running are left to finish.
	 */
	FailFast bool `default:"false"`
	/**
	 * default: false, record a step whose interpreter/tool is missing as
	 * skipped instead of failed. Skipped steps still unblock dependents.
	 */
	SkipMissingInterpreters bool `default:"false"`
	/**
	 * default: false, run every step's clean hook (in topological order)
	 * and drop its cache entry before executing.
	 */
	Clean bool `default:"false"`
	// Only run setup hooks, skip step bodies.
	SetupOnly bool `default:"false"`
	// Skip setup hooks, only run step bodies.
	NoSetup bool `default:"false"`
	/**
	 * default: false, restrict the graph to exactly the requested steps
	 * (plus group expansion), splicing out every other requirement while
	 * preserving transitive ordering.
	 */
	OnlySelected bool `default:"false"`
	/**
	 * default: .taskpipe
	 * directory backing the on-disk store (step caches and run records).
	 */
	CachePath string `default:".taskpipe"`
	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// PostgreSQL store configuration.
	// If both MemStore and PostgresConfig are set, PostgresConfig takes precedence.
	PostgresConfig *PostgresConfig
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

type PipelineOption func(*PipelineOptions)

func WithJobs(n int) PipelineOption {
	return func(opts *PipelineOptions) {
		opts.Jobs = n
	}
}

func WithFailFast() PipelineOption {
	return func(opts *PipelineOptions) {
		opts.FailFast = true
	}
}

func WithSkipMissingInterpreters() PipelineOption {
	return func(opts *PipelineOptions) {
		opts.SkipMissingInterpreters = true
	}
}

func WithClean() PipelineOption {
	return func(opts *PipelineOptions) {
		opts.Clean = true
	}
}

func WithSetupOnly() PipelineOption {
	return func(opts *PipelineOptions) {
		opts.SetupOnly = true
	}
}

func WithNoSetup() PipelineOption {
	return func(opts *PipelineOptions) {
		opts.NoSetup = true
	}
}

func WithOnlySelected() PipelineOption {
	return func(opts *PipelineOptions) {
		opts.OnlySelected = true
	}
}

func WithCachePath(path string) PipelineOption {
	return func(opts *PipelineOptions) {
		opts.CachePath = path
	}
}

func EnableMemStore() PipelineOption {
	return func(opts *PipelineOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig configures the pipeline to record runs in PostgreSQL
func WithPostgresConfig(config *PostgresConfig) PipelineOption {
	return func(opts *PipelineOptions) {
		opts.PostgresConfig = config
	}
}

func NewStepOptions() *StepOptions {
	opts := &StepOptions{}
	defaults.SetDefaults(opts)
	return opts
}

type StepOptions struct {
	Description string
	Requires    []string
	/**
	 * default: true, whether the step is selected when no explicit step
	 * list is requested.
	 */
	RunByDefault bool `default:"true"`
	// Params are deep-copied per step instance, never shared.
	Params Data
	/**
	 * Matrix fans the step out into one instance per parameter set, named
	 * name[id], plus a group step aliasing all of them under name.
	 */
	Matrix []Data
}

type StepOption func(*StepOptions)

func WithDescription(description string) StepOption {
	return func(opts *StepOptions) {
		opts.Description = description
	}
}

func WithRequires(requires ...string) StepOption {
	return func(opts *StepOptions) {
		opts.Requires = append(opts.Requires, requires...)
	}
}

func WithRunByDefault(runByDefault bool) StepOption {
	return func(opts *StepOptions) {
		opts.RunByDefault = runByDefault
	}
}

func WithParams(params Data) StepOption {
	return func(opts *StepOptions) {
		opts.Params = params
	}
}

func WithMatrix(matrix ...Data) StepOption {
	return func(opts *StepOptions) {
		opts.Matrix = append(opts.Matrix, matrix...)
	}
}
