package gen

import (
	"fmt"
	"slices"
	"strings"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/schema/expr"
	"github.com/oolong-dev/oolong/schema/field"
)

// NodeKind is the kind of a graph node.
type NodeKind int

// Node kinds.
const (
	NodeValidator NodeKind = iota + 1
	NodeModifier
	// NodeEnd closes the pipelines of one field or parameter.
	NodeEnd
	// NodeTerminal closes a whole entity or interface.
	NodeTerminal
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case NodeValidator:
		return "validator"
	case NodeModifier:
		return "modifier"
	case NodeEnd:
		return "end"
	case NodeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

func kindOf(s field.Stage) NodeKind {
	if s.Kind() == expr.KindValidator {
		return NodeValidator
	}
	return NodeModifier
}

// NodeID identifies a node. Scope is the entity name, or
// "entity.interface" for interface parameters.
type NodeID struct {
	Kind   NodeKind
	Scope  string
	Target string
	Stage  field.Stage
	Index  int
}

// String renders the id, e.g. "validator:user.email/validators0[1]".
func (id NodeID) String() string {
	switch id.Kind {
	case NodeTerminal:
		return fmt.Sprintf("%s:%s", id.Kind, id.Scope)
	case NodeEnd:
		return fmt.Sprintf("%s:%s.%s", id.Kind, id.Scope, id.Target)
	}
	return fmt.Sprintf("%s:%s.%s/%s[%d]", id.Kind, id.Scope, id.Target, id.Stage.Key(), id.Index)
}

// Node is a node of the dependency graph.
type Node struct {
	ID      NodeID
	Functor *expr.Functor
}

// Graph is a dependency graph whose nodes keep their insertion order.
type Graph struct {
	nodes []*Node
	index map[NodeID]int
	succ  map[NodeID][]NodeID
	indeg map[NodeID]int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index: make(map[NodeID]int),
		succ:  make(map[NodeID][]NodeID),
		indeg: make(map[NodeID]int),
	}
}

// Add adds n unless a node with the same id exists.
func (g *Graph) Add(n *Node) bool {
	if _, ok := g.index[n.ID]; ok {
		return false
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return true
}

// Edge records that from must come before to. Both nodes must exist.
func (g *Graph) Edge(from, to NodeID) error {
	if _, ok := g.index[from]; !ok {
		return &oolong.InvariantError{Where: "gen.Graph.Edge", Message: "unknown node " + from.String()}
	}
	if _, ok := g.index[to]; !ok {
		return &oolong.InvariantError{Where: "gen.Graph.Edge", Message: "unknown node " + to.String()}
	}
	if slices.Contains(g.succ[from], to) {
		return nil
	}
	g.succ[from] = append(g.succ[from], to)
	g.indeg[to]++
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Sort orders the nodes topologically with Kahn's algorithm. Among the
// nodes ready at any time the earliest inserted comes first. A cycle is a
// ConflictError naming the nodes left over.
func (g *Graph) Sort() ([]*Node, error) {
	indeg := make(map[NodeID]int, len(g.indeg))
	for id, n := range g.indeg {
		indeg[id] = n
	}
	// ready holds insertion indexes in ascending order.
	var ready []int
	for i, n := range g.nodes {
		if indeg[n.ID] == 0 {
			ready = append(ready, i)
		}
	}
	sorted := make([]*Node, 0, len(g.nodes))
	for len(ready) > 0 {
		n := g.nodes[ready[0]]
		ready = ready[1:]
		sorted = append(sorted, n)
		for _, next := range g.succ[n.ID] {
			indeg[next]--
			if indeg[next] == 0 {
				i := g.index[next]
				at, _ := slices.BinarySearch(ready, i)
				ready = slices.Insert(ready, at, i)
			}
		}
	}
	if len(sorted) != len(g.nodes) {
		var left []string
		for _, n := range g.nodes {
			if indeg[n.ID] > 0 {
				left = append(left, n.ID.String())
			}
		}
		return nil, oolong.NewConflictError(g.nodes[0].ID.Scope, "dependency cycle between %s", strings.Join(left, ", "))
	}
	return sorted, nil
}

// Step is a run of merged functor nodes of one kind applied to one target.
type Step struct {
	Kind   NodeKind
	Target string
	Nodes  []*Node
}

// Functors returns the functors of the step in application order.
func (s *Step) Functors() []*expr.Functor {
	fs := make([]*expr.Functor, len(s.Nodes))
	for i, n := range s.Nodes {
		fs[i] = n.Functor
	}
	return fs
}

// String renders the step, e.g. "email: |isEmail && |maxLength(200)".
func (s *Step) String() string {
	parts := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		parts[i] = n.Functor.String()
	}
	sep := " && "
	if s.Kind == NodeModifier {
		sep = " "
	}
	return s.Target + ": " + strings.Join(parts, sep)
}

// Merge drops the end and terminal nodes of a sorted order and merges
// adjacent functor nodes of the same kind and target into one step.
func Merge(sorted []*Node) []*Step {
	var steps []*Step
	for _, n := range sorted {
		if n.Functor == nil {
			continue
		}
		if len(steps) > 0 {
			last := steps[len(steps)-1]
			if last.Kind == n.ID.Kind && last.Target == n.ID.Target {
				last.Nodes = append(last.Nodes, n)
				continue
			}
		}
		steps = append(steps, &Step{Kind: n.ID.Kind, Target: n.ID.Target, Nodes: []*Node{n}})
	}
	return steps
}

// Pipeline is a named value with staged functors: a field or an
// interface parameter.
type Pipeline struct {
	Name   string
	Stages [len(field.Stages)][]*expr.Functor
}

// Build returns the graph of the pipelines of one scope. dep maps an
// object reference found in a functor argument to the pipeline it
// depends on.
func Build(scope string, pipes []*Pipeline, dep func(*expr.ObjectReference) (string, bool)) (*Graph, error) {
	g := NewGraph()
	terminal := NodeID{Kind: NodeTerminal, Scope: scope}
	end := func(target string) NodeID {
		return NodeID{Kind: NodeEnd, Scope: scope, Target: target}
	}
	for _, p := range pipes {
		for _, s := range field.Stages {
			for i, f := range p.Stages[s] {
				g.Add(&Node{ID: NodeID{Kind: kindOf(s), Scope: scope, Target: p.Name, Stage: s, Index: i}, Functor: f})
			}
		}
		g.Add(&Node{ID: end(p.Name)})
	}
	g.Add(&Node{ID: terminal})
	declared := make(map[string]bool, len(pipes))
	for _, p := range pipes {
		declared[p.Name] = true
	}
	for _, p := range pipes {
		prev := NodeID{}
		for _, s := range field.Stages {
			for i, f := range p.Stages[s] {
				id := NodeID{Kind: kindOf(s), Scope: scope, Target: p.Name, Stage: s, Index: i}
				if prev.Kind != 0 {
					if err := g.Edge(prev, id); err != nil {
						return nil, err
					}
				}
				prev = id
				for _, ref := range f.References() {
					target, ok := dep(ref)
					if !ok || target == p.Name || !declared[target] {
						continue
					}
					if err := g.Edge(end(target), id); err != nil {
						return nil, err
					}
				}
			}
		}
		if prev.Kind != 0 {
			if err := g.Edge(prev, end(p.Name)); err != nil {
				return nil, err
			}
		}
		if err := g.Edge(end(p.Name), terminal); err != nil {
			return nil, err
		}
	}
	return g, nil
}
