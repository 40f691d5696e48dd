package construct

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

// Graph holds the resources of a stack keyed by logical id. An edge A -> B means
// A depends on B (B must be created first).
type (
	Graph = graph.Graph[string, *Resource]
	Edge  = graph.Edge[string]
)

func NewGraph() Graph {
	return Graph(graph.New(
		func(r *Resource) string {
			return r.LogicalID()
		},
		graph.Directed(),
		graph.Acyclic(),
		graph.PreventCycles(),
	))
}

// AddDependency records that dependent must be created after dependency. Adding an edge twice
// is a no-op.
func AddDependency(g Graph, dependent, dependency string) error {
	if dependent == dependency {
		return fmt.Errorf("resource %s cannot depend on itself", dependent)
	}
	err := g.AddEdge(dependent, dependency)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("dependency %s -> %s would create a cycle: %w", dependent, dependency, err)
	default:
		return fmt.Errorf("could not add dependency %s -> %s: %w", dependent, dependency, err)
	}
}

// DirectDependencies returns the ids that r depends on, sorted.
func DirectDependencies(g Graph, r string) ([]string, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(adj[r]))
	for d := range adj[r] {
		ids = append(ids, d)
	}
	sort.Strings(ids)
	return ids, nil
}

// DirectDependents returns the ids that depend on r, sorted.
func DirectDependents(g Graph, r string) ([]string, error) {
	pred, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pred[r]))
	for d := range pred[r] {
		ids = append(ids, d)
	}
	sort.Strings(ids)
	return ids, nil
}

func String(g Graph) (string, error) {
	w := new(strings.Builder)
	err := stringTo(g, w)
	return w.String(), err
}

func stringTo(g Graph, w io.Writer) error {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}
	adjacent, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	for _, id := range topo {
		if _, err := fmt.Fprintf(w, "%s\n", id); err != nil {
			return err
		}

		targets := make([]string, 0, len(adjacent[id]))
		for t := range adjacent[id] {
			targets = append(targets, t)
		}
		sort.Strings(targets)

		for _, t := range targets {
			if _, err := fmt.Fprintf(w, "-> %s\n", t); err != nil {
				return err
			}
		}
	}
	return nil
}
