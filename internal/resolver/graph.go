package resolver

import (
	"sort"

	"github.com/untoldecay/backlog/internal/types"
)

// Graph is the task-level dependency DAG. Container-level dependencies are
// lowered onto task edges (last task of the upstream container gates the
// first task of the downstream one), and tasks with no explicit deps chain
// sequentially inside their epic.
type Graph struct {
	weights map[string]float64
	edges   map[string]map[string]struct{}
	order   []string
}

// Edges exposes the successor sets (dependency -> dependents).
func (g *Graph) Edges() map[string]map[string]struct{} { return g.edges }

// Nodes returns the node IDs in tree order.
func (g *Graph) Nodes() []string { return g.order }

func (g *Graph) addEdge(from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	if g.edges[from] == nil {
		g.edges[from] = map[string]struct{}{}
	}
	g.edges[from][to] = struct{}{}
}

// BuildGraph constructs the dependency DAG over every primary task, bug,
// and idea. Edge direction is dependency -> dependent. Done tasks carry
// zero weight so finished work never stretches the critical path.
func (r *Resolver) BuildGraph() (*Graph, error) {
	g := &Graph{
		weights: map[string]float64{},
		edges:   map[string]map[string]struct{}{},
	}
	tasks := r.tree.AllTasks()
	for _, t := range tasks {
		g.weights[t.ID] = taskWeight(&t)
		g.order = append(g.order, t.ID)
		if g.edges[t.ID] == nil {
			g.edges[t.ID] = map[string]struct{}{}
		}
	}

	for _, phase := range r.tree.Phases {
		for mi := range phase.Milestones {
			milestone := &phase.Milestones[mi]
			for ei := range milestone.Epics {
				epic := &milestone.Epics[ei]
				for ti := range epic.Tasks {
					task := &epic.Tasks[ti]
					for _, depID := range task.DependsOn {
						for _, dep := range r.resolveDependencyTargets(depID, task.MilestoneID) {
							g.addEdge(dep.ID, task.ID)
						}
					}
					if len(task.DependsOn) == 0 && ti > 0 {
						g.addEdge(epic.Tasks[ti-1].ID, task.ID)
					}
				}
				for _, depID := range epic.DependsOn {
					dep := r.resolveEpicRef(depID, epic.MilestoneID)
					if dep == nil || len(dep.Tasks) == 0 || len(epic.Tasks) == 0 {
						continue
					}
					g.addEdge(dep.Tasks[len(dep.Tasks)-1].ID, epic.Tasks[0].ID)
				}
			}
			for _, depID := range milestone.DependsOn {
				dep := r.resolveMilestoneRef(depID, phase.ID)
				if dep == nil {
					continue
				}
				from := lastTaskID(milestoneTasks(dep))
				to := firstTaskID(milestoneTasks(milestone))
				g.addEdge(from, to)
			}
		}
		for _, depID := range phase.DependsOn {
			dep := r.tree.FindPhase(depID)
			if dep == nil {
				continue
			}
			g.addEdge(lastTaskID(phaseTasks(dep)), firstTaskID(phaseTasks(&phase)))
		}
	}

	for _, list := range [][]types.Task{r.tree.Bugs, r.tree.Ideas} {
		for i := range list {
			task := &list[i]
			for _, depID := range task.DependsOn {
				for _, dep := range r.resolveDependencyTargets(depID, "") {
					g.addEdge(dep.ID, task.ID)
				}
			}
		}
	}
	return g, nil
}

func taskWeight(t *types.Task) float64 {
	if t.Status == types.StatusDone {
		return 0
	}
	return t.EstimateHours * t.Complexity.Multiplier()
}

// TopoSort returns the graph's nodes in dependency order. A short result
// (fewer nodes than the graph) signals at least one cycle.
func (g *Graph) TopoSort() []string {
	inDegree := map[string]int{}
	for _, id := range g.order {
		inDegree[id] = 0
	}
	for _, tos := range g.edges {
		for to := range tos {
			if _, ok := inDegree[to]; ok {
				inDegree[to]++
			}
		}
	}
	queue := []string{}
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	resolved := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		resolved = append(resolved, id)
		for _, to := range sortedKeys(g.edges[id]) {
			if _, ok := inDegree[to]; !ok {
				continue
			}
			inDegree[to]--
			if inDegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}
	return resolved
}

// CycleMembers returns the IDs caught in dependency cycles, empty when the
// graph is a DAG.
func (g *Graph) CycleMembers() []string {
	order := g.TopoSort()
	if len(order) == len(g.order) {
		return nil
	}
	seen := map[string]struct{}{}
	for _, id := range order {
		seen[id] = struct{}{}
	}
	var cyclic []string
	for _, id := range g.order {
		if _, ok := seen[id]; !ok {
			cyclic = append(cyclic, id)
		}
	}
	sort.Strings(cyclic)
	return cyclic
}

// LongestPath computes the maximum-duration chain through the DAG using
// the per-node weights, returning it in dependency order.
func (g *Graph) LongestPath() ([]string, error) {
	order := g.TopoSort()
	if len(order) != len(g.order) {
		return nil, types.E(types.CodeDependencyCycle,
			"dependency graph contains cycle(s): could not perform topological sort")
	}
	if len(order) == 0 {
		return []string{}, nil
	}
	dist := make(map[string]float64, len(order))
	parent := make(map[string]string, len(order))
	for _, id := range order {
		dist[id] = g.weights[id]
	}
	for _, from := range order {
		for _, to := range sortedKeys(g.edges[from]) {
			if candidate := dist[from] + g.weights[to]; candidate > dist[to] {
				dist[to] = candidate
				parent[to] = from
			}
		}
	}
	end := order[0]
	for _, id := range order {
		if dist[id] > dist[end] {
			end = id
		}
	}
	path := []string{}
	for cursor := end; ; {
		path = append([]string{cursor}, path...)
		prev, ok := parent[cursor]
		if !ok {
			break
		}
		cursor = prev
	}
	return path, nil
}

// CriticalPath builds the graph and returns the longest pending chain.
func (r *Resolver) CriticalPath() ([]string, error) {
	g, err := r.BuildGraph()
	if err != nil {
		return nil, err
	}
	return g.LongestPath()
}

// UnmetUpstreamCount returns, per node, how many transitive dependencies
// are not yet done. Available tasks score zero; the count orders deeper
// pending work behind nearly-ready work.
func (r *Resolver) UnmetUpstreamCount(g *Graph) map[string]int {
	// Reverse adjacency: node -> its dependencies.
	deps := map[string][]string{}
	for from, tos := range g.edges {
		for to := range tos {
			deps[to] = append(deps[to], from)
		}
	}
	memo := map[string]map[string]struct{}{}
	var upstream func(id string, trail map[string]struct{}) map[string]struct{}
	upstream = func(id string, trail map[string]struct{}) map[string]struct{} {
		if cached, ok := memo[id]; ok {
			return cached
		}
		if _, looping := trail[id]; looping {
			return map[string]struct{}{}
		}
		trail[id] = struct{}{}
		acc := map[string]struct{}{}
		for _, dep := range deps[id] {
			acc[dep] = struct{}{}
			for anc := range upstream(dep, trail) {
				acc[anc] = struct{}{}
			}
		}
		delete(trail, id)
		memo[id] = acc
		return acc
	}
	counts := make(map[string]int, len(g.order))
	for _, id := range g.order {
		n := 0
		for anc := range upstream(id, map[string]struct{}{}) {
			if t := r.tree.FindTask(anc); t != nil && t.Status != types.StatusDone {
				n++
			}
		}
		counts[id] = n
	}
	return counts
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func milestoneTasks(m *types.Milestone) []types.Task {
	var out []types.Task
	for _, e := range m.Epics {
		out = append(out, e.Tasks...)
	}
	return out
}

func phaseTasks(p *types.Phase) []types.Task {
	var out []types.Task
	for _, m := range p.Milestones {
		out = append(out, milestoneTasks(&m)...)
	}
	return out
}

func firstTaskID(tasks []types.Task) string {
	if len(tasks) == 0 {
		return ""
	}
	return tasks[0].ID
}

func lastTaskID(tasks []types.Task) string {
	if len(tasks) == 0 {
		return ""
	}
	return tasks[len(tasks)-1].ID
}
