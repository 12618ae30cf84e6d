package runtime

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/taskpipe/store/mem"
	"github.com/warriorguo/taskpipe/types"
)

func nopStep() types.Step {
	return types.StepFunc(func(_ types.StepContext) error { return nil })
}

func newTestPipeline(t *testing.T) *pipeline {
	p, ok := NewPipeline(mem.NewMemStore(), types.NewPipelineOptions()).(*pipeline)
	assert.True(t, ok)
	return p
}

func registerChain(t *testing.T, p *pipeline, names ...string) {
	// each step requires the next one: names[0] -> names[1] -> ...
	for i, name := range names {
		var opts []types.StepOption
		if i+1 < len(names) {
			opts = append(opts, types.WithRequires(names[i+1]))
		}
		assert.NoError(t, p.RegisterStep(name, nopStep(), opts...))
	}
}

func TestBuildGraphFollowsRequirements(t *testing.T) {
	p := newTestPipeline(t)
	registerChain(t, p, "one", "two", "three")

	graph, err := p.buildGraph([]string{"one"}, nil, false)
	assert.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"one":   {"two"},
		"two":   {"three"},
		"three": {},
	}, normalizeGraph(graph))
}

func TestBuildGraphExceptSplicesEdges(t *testing.T) {
	p := newTestPipeline(t)
	registerChain(t, p, "one", "two", "three", "four")

	graph, err := p.buildGraph([]string{"one"}, []string{"two", "three"}, false)
	assert.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"one":  {"four"},
		"four": {},
	}, normalizeGraph(graph))
}

func TestBuildGraphOnlyDropsRequirements(t *testing.T) {
	p := newTestPipeline(t)
	registerChain(t, p, "one", "two", "three")

	graph, err := p.buildGraph([]string{"one"}, nil, true)
	assert.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"one": {},
	}, normalizeGraph(graph))
}

func TestBuildGraphDefaultSelection(t *testing.T) {
	p := newTestPipeline(t)
	assert.NoError(t, p.RegisterStep("always", nopStep()))
	assert.NoError(t, p.RegisterStep("optional", nopStep(), types.WithRunByDefault(false)))

	graph, err := p.buildGraph(nil, nil, false)
	assert.NoError(t, err)

	assert.Contains(t, graph, "always")
	assert.NotContains(t, graph, "optional")
}

func TestBuildGraphDefaultSelectionPullsNonDefaultRequirements(t *testing.T) {
	p := newTestPipeline(t)
	assert.NoError(t, p.RegisterStep("build", nopStep(), types.WithRequires("fetch")))
	assert.NoError(t, p.RegisterStep("fetch", nopStep(), types.WithRunByDefault(false)))

	graph, err := p.buildGraph(nil, nil, false)
	assert.NoError(t, err)

	// fetch is not selected by default but build needs it
	assert.Contains(t, graph, "fetch")
}

func TestBuildGraphAggregatesUnknownSteps(t *testing.T) {
	p := newTestPipeline(t)
	assert.NoError(t, p.RegisterStep("known", nopStep(), types.WithRequires("ghost")))

	_, err := p.buildGraph([]string{"known", "missing"}, nil, false)

	var unknown *types.UnknownStepsError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"ghost", "missing"}, unknown.Steps)
	assert.Equal(t, types.ExitUserError, types.ExitCode(err))
}

func TestBuildGraphGroupExpansion(t *testing.T) {
	p := newTestPipeline(t)
	assert.NoError(t, p.RegisterStep("lint", nopStep()))
	assert.NoError(t, p.RegisterStep("test", nopStep()))
	assert.NoError(t, p.RegisterStepGroup("ci", []string{"lint", "test"}))

	graph, err := p.buildGraph([]string{"ci"}, nil, false)
	assert.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"ci":   {"lint", "test"},
		"lint": {},
		"test": {},
	}, normalizeGraph(graph))
}

func TestBuildGraphExceptGroupExcludesMembers(t *testing.T) {
	p := newTestPipeline(t)
	assert.NoError(t, p.RegisterStep("lint", nopStep()))
	assert.NoError(t, p.RegisterStep("test", nopStep()))
	assert.NoError(t, p.RegisterStep("pack", nopStep(), types.WithRequires("ci")))
	assert.NoError(t, p.RegisterStepGroup("ci", []string{"lint", "test"}))

	graph, err := p.buildGraph([]string{"pack"}, []string{"ci"}, false)
	assert.NoError(t, err)

	// excluding the group splices out the group and both members
	assert.Equal(t, map[string][]string{
		"pack": {},
	}, normalizeGraph(graph))
}

func TestBuildGraphMatrixFansOut(t *testing.T) {
	p := newTestPipeline(t)
	assert.NoError(t, p.RegisterStep("test", nopStep(), types.WithMatrix(
		types.Data{"version": "1.20"},
		types.Data{"version": "1.21"},
	)))

	graph, err := p.buildGraph([]string{"test"}, nil, false)
	assert.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"test":               {"test[version=1.20]", "test[version=1.21]"},
		"test[version=1.20]": {},
		"test[version=1.21]": {},
	}, normalizeGraph(graph))
}

func TestResolveHandlersReportsDuplicates(t *testing.T) {
	p := newTestPipeline(t)
	assert.NoError(t, p.RegisterStep("dup", nopStep()))
	assert.NoError(t, p.RegisterStep("dup", nopStep()))

	_, err := p.buildGraph(nil, nil, false)

	var dup *types.DuplicateStepError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, "dup", dup.Name)
}

func TestRegistrationClosesAfterResolve(t *testing.T) {
	p := newTestPipeline(t)
	assert.NoError(t, p.RegisterStep("a", nopStep()))

	_, err := p.buildGraph(nil, nil, false)
	assert.NoError(t, err)

	assert.Error(t, p.RegisterStep("late", nopStep()))
	assert.Error(t, p.RegisterStepGroup("late-group", nil))
}

/**
 * normalizeGraph sorts each requirement list and replaces nil slices so
 * the maps compare by content.
 */
func normalizeGraph(graph map[string][]string) map[string][]string {
	normalized := make(map[string][]string, len(graph))
	for step, requires := range graph {
		sorted := append([]string{}, requires...)
		sort.Strings(sorted)
		normalized[step] = sorted
	}
	return normalized
}
