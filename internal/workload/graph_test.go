package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(name string, after ...string) TaskDecl {
	return TaskDecl{Name: name, After: after}
}

func levelNames(level []TaskDecl) []string {
	names := make([]string, len(level))
	for i, t := range level {
		names[i] = t.Name
	}
	return names
}

// TestLevels_SingleWave tests that independent tasks share one wave.
func TestLevels_SingleWave(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("a"), task("b"), task("c")}}

	levels, err := plan.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, []string{"a", "b", "c"}, levelNames(levels[0]))
}

// TestLevels_Chain tests that a linear dependency chain yields one wave per task.
func TestLevels_Chain(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("a"), task("b", "a"), task("c", "b")}}

	levels, err := plan.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"a"}, levelNames(levels[0]))
	assert.Equal(t, []string{"b"}, levelNames(levels[1]))
	assert.Equal(t, []string{"c"}, levelNames(levels[2]))
}

// TestLevels_Diamond tests a fork-join diamond: a → (b, c) → d.
func TestLevels_Diamond(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{
		task("a"),
		task("b", "a"),
		task("c", "a"),
		task("d", "b", "c"),
	}}

	levels, err := plan.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"a"}, levelNames(levels[0]))
	assert.Equal(t, []string{"b", "c"}, levelNames(levels[1]))
	assert.Equal(t, []string{"d"}, levelNames(levels[2]))
}

// TestLevels_DeclarationOrderWithinWave tests that a wave keeps
// declaration order, not alphabetical order.
func TestLevels_DeclarationOrderWithinWave(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("zeta"), task("alpha"), task("mid")}}

	levels, err := plan.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, levelNames(levels[0]))
}

// TestLevels_Empty tests that a plan with no tasks yields no waves.
func TestLevels_Empty(t *testing.T) {
	plan := &Plan{}

	levels, err := plan.Levels()
	require.NoError(t, err)
	assert.Empty(t, levels)
}

// TestLevels_UnknownDependency tests the error for an edge to an undeclared task.
func TestLevels_UnknownDependency(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("a", "ghost")}}

	_, err := plan.Levels()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `task "a" waits on unknown task "ghost"`)
}

// TestLevels_Cycle tests the error for a dependency loop.
func TestLevels_Cycle(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("a", "b"), task("b", "a")}}

	_, err := plan.Levels()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task dependency cycle: a → b")
}

// TestLevels_SelfLoop tests the error for a task that waits on itself.
func TestLevels_SelfLoop(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("a", "a")}}

	_, err := plan.Levels()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task dependency cycle")
}

// TestLevels_PartialCycle tests that a cycle hanging off a schedulable
// prefix is still reported.
func TestLevels_PartialCycle(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{
		task("start"),
		task("x", "start", "y"),
		task("y", "x"),
	}}

	_, err := plan.Levels()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task dependency cycle: x → y")
}

// TestDependencyCycles_Acyclic tests that a DAG reports no cycles.
func TestDependencyCycles_Acyclic(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("a"), task("b", "a"), task("c", "a")}}

	assert.Empty(t, plan.DependencyCycles())
}

// TestDependencyCycles_Empty tests that an empty plan reports no cycles.
func TestDependencyCycles_Empty(t *testing.T) {
	plan := &Plan{}

	assert.Empty(t, plan.DependencyCycles())
}

// TestDependencyCycles_SelfLoop tests detection of a self-loop.
func TestDependencyCycles_SelfLoop(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("a", "a")}}

	cycles := plan.DependencyCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a"}, cycles[0])
}

// TestDependencyCycles_TwoNodeCycle tests detection of a ↔ b.
func TestDependencyCycles_TwoNodeCycle(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("a", "b"), task("b", "a")}}

	cycles := plan.DependencyCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b"}, cycles[0])
}

// TestDependencyCycles_SortedNames tests that cycle groups come back
// sorted regardless of declaration order.
func TestDependencyCycles_SortedNames(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{task("zeta", "mid"), task("mid", "zeta")}}

	cycles := plan.DependencyCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"mid", "zeta"}, cycles[0])
}

// TestDependencyCycles_MultipleIndependentCycles tests that separate
// loops are reported as separate groups in stable order.
func TestDependencyCycles_MultipleIndependentCycles(t *testing.T) {
	plan := &Plan{Tasks: []TaskDecl{
		task("x", "y"),
		task("y", "x"),
		task("a", "b"),
		task("b", "a"),
	}}

	cycles := plan.DependencyCycles()
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a", "b"}, cycles[0])
	assert.Equal(t, []string{"x", "y"}, cycles[1])
}

// TestBuildTaskGraph_EdgesPointDownstream tests that graph edges run
// from a task to the tasks waiting on it.
func TestBuildTaskGraph_EdgesPointDownstream(t *testing.T) {
	graph := buildTaskGraph([]TaskDecl{task("a"), task("b", "a")})

	assert.Equal(t, []string{"b"}, graph["a"])
	assert.Empty(t, graph["b"])
}

// TestBuildTaskGraph_UnknownDependencyBecomesNode tests that an edge to
// an undeclared name still lands in the graph.
func TestBuildTaskGraph_UnknownDependencyBecomesNode(t *testing.T) {
	graph := buildTaskGraph([]TaskDecl{task("a", "ghost")})

	assert.Contains(t, graph["ghost"], "a")
}

// TestHasSelfLoop tests self-loop detection.
func TestHasSelfLoop(t *testing.T) {
	graph := taskGraph{
		"self-loop": {"self-loop"},
		"no-loop":   {"other"},
		"no-edges":  {},
	}

	assert.True(t, hasSelfLoop("self-loop", graph))
	assert.False(t, hasSelfLoop("no-loop", graph))
	assert.False(t, hasSelfLoop("no-edges", graph))
}

// TestTarjanSCC_SingleNode tests Tarjan with a single node.
func TestTarjanSCC_SingleNode(t *testing.T) {
	graph := taskGraph{"a": {}}

	sccs := tarjanSCC(graph)
	require.Len(t, sccs, 1)
	assert.Equal(t, []string{"a"}, sccs[0])
}

// TestTarjanSCC_TwoNodeCycle tests Tarjan with a two-node cycle.
func TestTarjanSCC_TwoNodeCycle(t *testing.T) {
	graph := taskGraph{
		"a": {"b"},
		"b": {"a"},
	}

	sccs := tarjanSCC(graph)
	require.Len(t, sccs, 1)
	assert.Len(t, sccs[0], 2, "SCC should contain both nodes")
}

// TestTarjanSCC_DAG tests Tarjan with a DAG (no cycles).
func TestTarjanSCC_DAG(t *testing.T) {
	graph := taskGraph{
		"a": {"b", "c"},
		"b": {"c"},
		"c": {},
	}

	sccs := tarjanSCC(graph)
	// Each node is its own SCC (all singletons)
	assert.Len(t, sccs, 3)
	for _, scc := range sccs {
		assert.Len(t, scc, 1, "each SCC should be a singleton")
	}
}
