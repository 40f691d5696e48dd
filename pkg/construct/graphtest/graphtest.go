package graphtest

import (
	"errors"
	"strings"
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/stretchr/testify/assert"
)

func AssertGraphEqual(t *testing.T, expect, actual construct.Graph, message string, args ...any) {
	t.Helper()
	assert := assert.New(t)
	must := func(v any, err error) any {
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	msg := func(subMessage string) []any {
		if message == "" {
			return []any{subMessage}
		}
		return append([]any{message + ": " + subMessage}, args...)
	}

	assert.Equal(must(expect.Order()), must(actual.Order()), msg("order (# of nodes) mismatch")...)
	assert.Equal(must(expect.Size()), must(actual.Size()), msg("size (# of edges) mismatch")...)

	// Use the string representation to compare the graphs so that the diffs are nicer
	eStr := must(construct.String(expect))
	aStr := must(construct.String(actual))
	assert.Equal(eStr, aStr, msg("graph mismatch")...)
}

// MakeGraph is a utility function for creating a graph from a list of elements which can be of types:
//   - *construct.Resource : adds the given resource
//   - construct.Edge : adds the given edge, creating missing vertices
//   - string : either "A" (a detached resource with logical id A) or "A -> B" (an edge)
//
// Users are encouraged to wrap this function for the specific test function for ease of use, such as:
//
//	makeGraph := func(elements ...any) construct.Graph {
//		return graphtest.MakeGraph(t, construct.NewGraph(), elements...)
//	}
func MakeGraph(t *testing.T, g construct.Graph, elements ...any) construct.Graph {
	t.Helper()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	addIfMissing := func(id string) {
		if _, err := g.Vertex(id); errors.Is(err, graph.ErrVertexNotFound) {
			must(g.AddVertex(construct.Detached(id, "Test::Resource")))
		} else if err != nil {
			t.Fatal(err)
		}
	}

	for _, e := range elements {
		switch e := e.(type) {
		case *construct.Resource:
			must(g.AddVertex(e))

		case construct.Edge:
			addIfMissing(e.Source)
			addIfMissing(e.Target)
			must(g.AddEdge(e.Source, e.Target))

		case string:
			source, target, isEdge := strings.Cut(e, " -> ")
			if !isEdge {
				addIfMissing(strings.TrimSpace(e))
				continue
			}
			source, target = strings.TrimSpace(source), strings.TrimSpace(target)
			addIfMissing(source)
			addIfMissing(target)
			must(g.AddEdge(source, target))

		default:
			t.Fatalf("invalid element of type %T", e)
		}
	}

	return g
}
