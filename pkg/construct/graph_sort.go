package construct

import (
	"errors"
	"fmt"
	"sort"
)

// TopologicalSort provides a stable topological ordering of logical ids: dependents come before
// their dependencies. Ties are broken by id so the output is deterministic.
func TopologicalSort(g Graph) ([]string, error) {
	if !g.Traits().IsDirected {
		return nil, fmt.Errorf("topological sort cannot be computed on undirected graph")
	}
	predecessorMap, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get predecessor map: %w", err)
	}
	return stableSort(predecessorMap)
}

// ReverseTopologicalSort orders logical ids so that dependencies come first, which is the
// order resources are created in. Ties are broken by id.
func ReverseTopologicalSort(g Graph) ([]string, error) {
	if !g.Traits().IsDirected {
		return nil, fmt.Errorf("topological sort cannot be computed on undirected graph")
	}
	adjacencyMap, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get adjacency map: %w", err)
	}
	return stableSort(adjacencyMap)
}

// stableSort is Kahn's algorithm over blockers: a vertex is emitted once everything in
// blockers[vertex] has been emitted. The lowest id among the ready vertices goes first.
func stableSort(blockers map[string]map[string]Edge) ([]string, error) {
	if len(blockers) == 0 {
		return nil, nil
	}

	queue := make([]string, 0)
	queued := make(map[string]struct{})
	enqueue := func(vs ...string) {
		for _, vertex := range vs {
			queue = append(queue, vertex)
			queued[vertex] = struct{}{}
		}
	}

	for vertex, bs := range blockers {
		if len(bs) == 0 {
			enqueue(vertex)
		}
	}
	if len(queue) == 0 {
		return nil, fmt.Errorf("graph contains a cycle")
	}
	sort.Strings(queue)

	order := make([]string, 0, len(blockers))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		order = append(order, current)
		delete(blockers, current)

		frontier := make([]string, 0)
		for vertex, bs := range blockers {
			delete(bs, current)
			if len(bs) != 0 {
				continue
			}
			if _, ok := queued[vertex]; ok {
				continue
			}
			frontier = append(frontier, vertex)
		}

		sort.Strings(frontier)
		enqueue(frontier...)
	}

	if len(blockers) > 0 {
		return nil, fmt.Errorf("graph contains a cycle among %d resources", len(blockers))
	}
	return order, nil
}

// WalkGraphFunc is the callback for [WalkGraph]. Return [StopWalk] to end the walk.
type WalkGraphFunc func(id string, resource *Resource, nerr error) error

// StopWalk is a special error that can be returned from WalkGraphFunc to stop walking the graph.
var StopWalk = errors.New("stop walking")

// WalkGraph visits resources dependencies-first.
func WalkGraph(g Graph, fn WalkGraphFunc) error {
	ids, err := ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	for _, id := range ids {
		v, verr := g.Vertex(id)
		nerr := errors.Join(err, verr)
		next := fn(id, v, nerr)
		if errors.Is(next, StopWalk) {
			return nerr
		}
		err = next
	}
	return err
}
