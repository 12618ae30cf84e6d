package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/taskpipe/runtime"
	"github.com/warriorguo/taskpipe/store/mem"
	"github.com/warriorguo/taskpipe/types"
)

const sampleDefinition = `
jobs: 4
fail_fast: true
cache_path: .cache/pipe
skip_missing_interpreters: true

steps:
  - name: generate
    description: generate sources
    command: [go, generate, ./...]

  - name: lint
    command: [golangci-lint, run]
    requires: [generate]
    env: [CGO_ENABLED=0]

  - name: test
    command: [go, test, ./...]
    requires: [generate]
    matrix:
      - {tags: unit}
      - {tags: integration}

  - name: release
    command: [goreleaser, release]
    run_by_default: false

groups:
  - name: ci
    description: everything a merge needs
    requires: [lint, test]
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	assert.NoError(t, err)

	assert.Equal(t, 4, def.Jobs)
	assert.True(t, def.FailFast)
	assert.Equal(t, ".cache/pipe", def.CachePath)
	assert.True(t, def.SkipMissingInterpreters)

	assert.Len(t, def.Steps, 4)
	assert.Equal(t, "lint", def.Steps[1].Name)
	assert.Equal(t, []string{"golangci-lint", "run"}, def.Steps[1].Command)
	assert.Equal(t, []string{"generate"}, def.Steps[1].Requires)
	assert.Equal(t, []string{"CGO_ENABLED=0"}, def.Steps[1].Env)

	assert.Len(t, def.Steps[2].Matrix, 2)
	tags, _ := def.Steps[2].Matrix[0].GetString("tags")
	assert.Equal(t, "unit", tags)

	assert.NotNil(t, def.Steps[3].RunByDefault)
	assert.False(t, *def.Steps[3].RunByDefault)

	assert.Len(t, def.Groups, 1)
	assert.Equal(t, []string{"lint", "test"}, def.Groups[0].Requires)
}

func TestParseRejectsNamelessStep(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - command: [true]\n"))
	assert.Error(t, err)
}

func TestParseRejectsCommandlessStep(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - name: empty\n"))
	assert.Error(t, err)
}

func TestParseRejectsNamelessGroup(t *testing.T) {
	_, err := Parse([]byte("groups:\n  - requires: [a]\n"))
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	assert.NoError(t, err)

	opts := types.NewPipelineOptions()
	for _, opt := range def.Options() {
		opt(opts)
	}

	assert.Equal(t, 4, opts.Jobs)
	assert.True(t, opts.FailFast)
	assert.Equal(t, ".cache/pipe", opts.CachePath)
	assert.True(t, opts.SkipMissingInterpreters)
}

func TestApplyRegistersStepsAndGroups(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	assert.NoError(t, err)

	p := runtime.NewPipeline(mem.NewMemStore(), types.NewPipelineOptions())
	assert.NoError(t, def.Apply(p))

	infos, err := p.ListSteps(nil, nil)
	assert.NoError(t, err)

	names := make(map[string]types.StepInfo, len(infos))
	for _, info := range infos {
		names[info.Name] = info
	}

	assert.Contains(t, names, "generate")
	assert.Contains(t, names, "lint")
	assert.Contains(t, names, "ci")
	// the matrix fans test out into parametrized instances
	assert.Contains(t, names, "test[tags=unit]")
	assert.Contains(t, names, "test[tags=integration]")
	assert.False(t, names["release"].Selected)
	assert.True(t, names["lint"].Selected)
}
