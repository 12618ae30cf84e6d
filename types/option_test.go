package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineOptionsDefaults(t *testing.T) {
	opts := NewPipelineOptions()

	assert.Equal(t, 1, opts.Jobs)
	assert.False(t, opts.FailFast)
	assert.False(t, opts.SkipMissingInterpreters)
	assert.False(t, opts.OnlySelected)
	assert.Equal(t, ".taskpipe", opts.CachePath)
	assert.False(t, opts.MemStore)
	assert.Nil(t, opts.PostgresConfig)
}

func TestPipelineOptions(t *testing.T) {
	opts := NewPipelineOptions()
	for _, opt := range []PipelineOption{
		WithJobs(8),
		WithFailFast(),
		WithSkipMissingInterpreters(),
		WithClean(),
		WithSetupOnly(),
		WithNoSetup(),
		WithOnlySelected(),
		WithCachePath("/tmp/pipe"),
		EnableMemStore(),
	} {
		opt(opts)
	}

	assert.Equal(t, 8, opts.Jobs)
	assert.True(t, opts.FailFast)
	assert.True(t, opts.SkipMissingInterpreters)
	assert.True(t, opts.Clean)
	assert.True(t, opts.SetupOnly)
	assert.True(t, opts.NoSetup)
	assert.True(t, opts.OnlySelected)
	assert.Equal(t, "/tmp/pipe", opts.CachePath)
	assert.True(t, opts.MemStore)
}

func TestWithPostgresConfig(t *testing.T) {
	config := &PostgresConfig{
		Host:     "dbhost",
		Port:     5433,
		User:     "user",
		Password: "pass",
		Database: "db",
		SSLMode:  "require",
	}

	opts := NewPipelineOptions()
	WithPostgresConfig(config)(opts)

	assert.NotNil(t, opts.PostgresConfig)
	assert.Equal(t, "dbhost", opts.PostgresConfig.Host)
	assert.Equal(t, 5433, opts.PostgresConfig.Port)
	assert.Equal(t, "require", opts.PostgresConfig.SSLMode)
}

func TestStepOptionsDefaults(t *testing.T) {
	opts := NewStepOptions()

	assert.True(t, opts.RunByDefault)
	assert.Empty(t, opts.Requires)
	assert.Empty(t, opts.Matrix)
}

func TestStepOptions(t *testing.T) {
	opts := NewStepOptions()
	for _, opt := range []StepOption{
		WithDescription("lint all the things"),
		WithRequires("generate"),
		WithRequires("fetch", "vendor"),
		WithRunByDefault(false),
		WithParams(Data{"strict": true}),
		WithMatrix(Data{"version": "1.20"}, Data{"version": "1.21"}),
	} {
		opt(opts)
	}

	assert.Equal(t, "lint all the things", opts.Description)
	assert.Equal(t, []string{"generate", "fetch", "vendor"}, opts.Requires)
	assert.False(t, opts.RunByDefault)
	assert.Equal(t, Data{"strict": true}, opts.Params)
	assert.Len(t, opts.Matrix, 2)
}
