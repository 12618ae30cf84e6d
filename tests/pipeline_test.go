package tests

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/taskpipe"
	"github.com/warriorguo/taskpipe/types"
)

type tracker struct {
	mu  sync.Mutex
	ran []string
}

func (tr *tracker) step(name string) types.Step {
	return types.StepFunc(func(_ types.StepContext) error {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		tr.ran = append(tr.ran, name)
		return nil
	})
}

func (tr *tracker) position(name string) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i, ran := range tr.ran {
		if ran == name {
			return i
		}
	}
	return -1
}

func newPipeline(t *testing.T, opts ...types.PipelineOption) types.Pipeline {
	opts = append([]types.PipelineOption{
		types.EnableMemStore(),
		types.WithCachePath(t.TempDir()),
	}, opts...)

	p, err := taskpipe.New(opts...)
	assert.NoError(t, err)
	return p
}

func TestComplexPipeline(t *testing.T) {
	p := newPipeline(t, types.WithJobs(4))
	ctx := context.Background()
	defer p.Close(ctx)

	tr := &tracker{}

	assert.Nil(t, p.RegisterStep("fetch", tr.step("fetch")))
	assert.Nil(t, p.RegisterStep("generate", tr.step("generate"), types.WithRequires("fetch")))
	assert.Nil(t, p.RegisterStep("lint", tr.step("lint"), types.WithRequires("generate")))
	assert.Nil(t, p.RegisterStep("vet", tr.step("vet"), types.WithRequires("generate")))
	assert.Nil(t, p.RegisterStep("test", tr.step("test"),
		types.WithRequires("generate"),
		types.WithMatrix(types.Data{"race": "on"}, types.Data{"race": "off"}),
	))
	assert.Nil(t, p.RegisterStepGroup("checks", []string{"lint", "vet", "test"}))
	assert.Nil(t, p.RegisterStep("package", tr.step("package"),
		types.WithRequires("checks"),
		types.WithRunByDefault(false),
	))

	assert.Nil(t, p.Execute(ctx, []string{"package"}, nil))

	tr.mu.Lock()
	ran := append([]string{}, tr.ran...)
	tr.mu.Unlock()
	// fetch, generate, lint, vet, two test instances, package
	assert.Len(t, ran, 7)

	assert.Equal(t, 0, tr.position("fetch"))
	assert.Equal(t, 1, tr.position("generate"))
	assert.Equal(t, 6, tr.position("package"))
	assert.Less(t, tr.position("lint"), tr.position("package"))
	assert.Less(t, tr.position("vet"), tr.position("package"))
}

func TestPipelineExceptSkipsAndReconnects(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	defer p.Close(ctx)

	tr := &tracker{}

	assert.Nil(t, p.RegisterStep("four", tr.step("four")))
	assert.Nil(t, p.RegisterStep("three", tr.step("three"), types.WithRequires("four")))
	assert.Nil(t, p.RegisterStep("two", tr.step("two"), types.WithRequires("three")))
	assert.Nil(t, p.RegisterStep("one", tr.step("one"), types.WithRequires("two")))

	assert.Nil(t, p.Execute(ctx, []string{"one"}, []string{"two", "three"}))

	// one keeps its transitive requirement on four
	assert.Equal(t, 0, tr.position("four"))
	assert.Equal(t, 1, tr.position("one"))
	assert.Equal(t, -1, tr.position("two"))
	assert.Equal(t, -1, tr.position("three"))
}

func TestPipelineFailurePropagates(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	defer p.Close(ctx)

	tr := &tracker{}

	assert.Nil(t, p.RegisterStep("flaky", types.StepFunc(func(_ types.StepContext) error {
		return assert.AnError
	})))
	assert.Nil(t, p.RegisterStep("publish", tr.step("publish"), types.WithRequires("flaky")))

	err := p.Execute(ctx, nil, nil)
	assert.Equal(t, types.ExitPipelineFailed, types.ExitCode(err))
	assert.Equal(t, -1, tr.position("publish"))
}

func TestPipelineCacheDirSurvivesRuns(t *testing.T) {
	cachePath := t.TempDir()
	ctx := context.Background()

	var firstDir, secondDir string

	run := func(dir *string) {
		p := newPipeline(t, types.WithCachePath(cachePath))
		defer p.Close(ctx)

		assert.Nil(t, p.RegisterStep("cached", types.StepFunc(func(sc types.StepContext) error {
			*dir = sc.CacheDir()
			return nil
		})))
		assert.Nil(t, p.Execute(ctx, nil, nil))
	}

	run(&firstDir)
	run(&secondDir)

	assert.NotEmpty(t, firstDir)
	assert.Equal(t, firstDir, secondDir)
}
