package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/taskpipe/types"
)

func assertTopological(t *testing.T, order []string, graph map[string][]string) {
	position := make(map[string]int, len(order))
	for i, step := range order {
		position[step] = i
	}

	assert.Equal(t, len(graph), len(order))
	for step, requires := range graph {
		for _, requirement := range requires {
			assert.Less(t, position[requirement], position[step],
				"%s must run before %s", requirement, step)
		}
	}
}

func TestResolverOrder(t *testing.T) {
	graph := map[string][]string{
		"package":  {"lint", "test"},
		"lint":     {"generate"},
		"test":     {"generate"},
		"generate": {},
	}

	r, err := newResolver(graph)
	assert.NoError(t, err)

	order := r.order()
	assertTopological(t, order, graph)
	assert.Equal(t, "generate", order[0])
	assert.Equal(t, "package", order[3])
}

func TestResolverOrderIsDeterministic(t *testing.T) {
	graph := map[string][]string{
		"a": {},
		"b": {},
		"c": {},
		"d": {"a", "b", "c"},
	}

	r1, err := newResolver(graph)
	assert.NoError(t, err)
	order := r1.order()

	for i := 0; i < 10; i++ {
		r2, err := newResolver(graph)
		assert.NoError(t, err)
		assert.Equal(t, order, r2.order())
	}
}

func TestResolverWeightsFavorWideSubtrees(t *testing.T) {
	/**
	 * heavy unblocks three dependents, light unblocks none. With two roots
	 * ready at once, heavy must be dispatched first.
	 */
	graph := map[string][]string{
		"heavy": {},
		"light": {},
		"d1":    {"heavy"},
		"d2":    {"heavy"},
		"d3":    {"heavy"},
	}

	r, err := newResolver(graph)
	assert.NoError(t, err)

	assert.True(t, r.weights["heavy"].heavier(r.weights["light"]))
	assert.Equal(t, 3, r.weights["heavy"].sum)
	assert.Equal(t, 0, r.weights["light"].sum)

	order := r.order()
	assert.Equal(t, "heavy", order[0])
}

func TestResolverWeightSumCountsTransitiveDependents(t *testing.T) {
	graph := map[string][]string{
		"root": {},
		"mid":  {"root"},
		"leaf": {"mid"},
	}

	r, err := newResolver(graph)
	assert.NoError(t, err)

	assert.Equal(t, 0, r.weights["leaf"].sum)
	assert.Equal(t, 1, r.weights["mid"].sum)
	// root counts mid plus everything mid unblocks
	assert.Equal(t, 2, r.weights["root"].sum)
}

func TestResolverDetectsCycle(t *testing.T) {
	graph := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}

	_, err := newResolver(graph)
	assert.Error(t, err)

	var cyclic *types.CyclicDependenciesError
	assert.ErrorAs(t, err, &cyclic)
	assert.Equal(t, []string{"a", "b", "a"}, cyclic.Cycle)
	assert.Equal(t, types.ExitUserError, types.ExitCode(err))
}

func TestResolverSelfCycle(t *testing.T) {
	graph := map[string][]string{
		"a": {"a"},
	}

	_, err := newResolver(graph)
	var cyclic *types.CyclicDependenciesError
	assert.ErrorAs(t, err, &cyclic)
	assert.Equal(t, []string{"a", "a"}, cyclic.Cycle)
}
