package workload

import (
	"fmt"
	"sort"
	"strings"
)

// taskGraph maps a task name to the names of tasks that wait on it.
// Edges point downstream, so a cycle reads in execution order.
type taskGraph map[string][]string

// buildTaskGraph constructs the dependency graph of a task list.
// Unknown names in After edges become graph nodes too; Validate
// reports them separately.
func buildTaskGraph(tasks []TaskDecl) taskGraph {
	graph := make(taskGraph, len(tasks))
	for _, t := range tasks {
		if graph[t.Name] == nil {
			graph[t.Name] = []string{}
		}
		for _, dep := range t.After {
			graph[dep] = append(graph[dep], t.Name)
		}
	}
	return graph
}

// DependencyCycles returns the task-name groups whose After edges form
// a cycle, one sorted group per strongly connected component. A
// schedulable plan returns none. Unlike trigger loops in rule systems,
// a dependency cycle can never be intentional: no wave order satisfies
// it.
func (p *Plan) DependencyCycles() [][]string {
	graph := buildTaskGraph(p.Tasks)

	var cycles [][]string
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			sort.Strings(scc)
			cycles = append(cycles, scc)
		}
	}
	// Tarjan visits map nodes in arbitrary order; sort for stable output.
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// Levels partitions the tasks into fork-join waves: every task in wave
// i depends only on tasks in earlier waves. Within a wave, declaration
// order is kept. Returns an error when an After edge names an unknown
// task or the graph has a cycle.
func (p *Plan) Levels() ([][]TaskDecl, error) {
	index := make(map[string]int, len(p.Tasks))
	for i, t := range p.Tasks {
		index[t.Name] = i
	}

	indeg := make([]int, len(p.Tasks))
	dependents := make([][]int, len(p.Tasks))
	for i, t := range p.Tasks {
		for _, dep := range t.After {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("workload: task %q waits on unknown task %q", t.Name, dep)
			}
			indeg[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var frontier []int
	for i := range p.Tasks {
		if indeg[i] == 0 {
			frontier = append(frontier, i)
		}
	}

	var levels [][]TaskDecl
	scheduled := 0
	for len(frontier) > 0 {
		sort.Ints(frontier)
		level := make([]TaskDecl, 0, len(frontier))
		var next []int
		for _, i := range frontier {
			level = append(level, p.Tasks[i])
			scheduled++
			for _, j := range dependents[i] {
				indeg[j]--
				if indeg[j] == 0 {
					next = append(next, j)
				}
			}
		}
		levels = append(levels, level)
		frontier = next
	}

	if scheduled != len(p.Tasks) {
		if cycles := p.DependencyCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("workload: task dependency cycle: %s", strings.Join(cycles[0], " → "))
		}
		return nil, fmt.Errorf("workload: task dependency cycle")
	}
	return levels, nil
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph taskGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's
// algorithm. Returns a list of SCCs, each a list of task names.
// Single-node SCCs without self-loops are not cycles.
func tarjanSCC(graph taskGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v roots an SCC when its lowlink never escaped it
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for node := range graph {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}
