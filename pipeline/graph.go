package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// END is the sentinel edge target that terminates graph execution.
const END = "END"

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when execution reaches a name with no node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when a node has neither a static nor a
	// conditional outgoing edge.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")
)

// Node is one named processing step. The function receives the state by
// value and returns the updated copy.
type Node[S any] struct {
	Name        string
	Description string
	Function    func(ctx context.Context, state S) (S, error)
}

// Edge connects two nodes by name.
type Edge struct {
	From string
	To   string
}

// StateGraph is a small typed stage graph: named nodes, static edges, and
// at most one conditional edge per node. Execution is strictly sequential;
// one node runs at a time and the state flows through by value.
type StateGraph[S any] struct {
	nodes            map[string]Node[S]
	edges            []Edge
	conditionalEdges map[string]func(ctx context.Context, state S) string
	entryPoint       string
}

// NewStateGraph creates an empty graph for state type S.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
	}
}

// AddNode registers a node under the given name.
func (g *StateGraph[S]) AddNode(name, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{Name: name, Description: description, Function: fn}
}

// AddEdge adds a static edge between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge routes "from" to the node name the condition returns.
// A conditional edge takes precedence over static edges from the same node.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint names the node execution starts from.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// Runnable is a compiled graph ready to invoke. It is stateless and safe
// for concurrent use.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Compile validates the graph and returns a Runnable.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	return &Runnable[S]{graph: g}, nil
}

// Invoke walks the graph from the entry point until END, threading the
// state through each node. Context cancellation is checked before every
// node; a node panic is recovered and returned as an error so one bad
// stage cannot take the process down.
func (r *Runnable[S]) Invoke(ctx context.Context, initial S) (S, error) {
	state := initial
	current := r.graph.entryPoint

	for current != END {
		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		next, err := runNode(ctx, node, state)
		if err != nil {
			return state, fmt.Errorf("node %s: %w", current, err)
		}
		state = next

		if condition, ok := r.graph.conditionalEdges[current]; ok {
			current = condition(ctx, state)
			continue
		}
		target, ok := r.nextAfter(current)
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current)
		}
		current = target
	}
	return state, nil
}

func (r *Runnable[S]) nextAfter(name string) (string, bool) {
	for _, e := range r.graph.edges {
		if e.From == name {
			return e.To, true
		}
	}
	return "", false
}

func runNode[S any](ctx context.Context, node Node[S], state S) (out S, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = state
			err = fmt.Errorf("panic in node %s: %v", node.Name, rec)
		}
	}()
	return node.Function(ctx, state)
}
