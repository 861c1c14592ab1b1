package abi

import (
	"chainkit/abitool/abi/ordered"
)

// graph is the type-reference graph used by the dependency analyzer: an
// edge A -> B exists whenever B is referenced from within A's kind (field
// type, variant type, array element type, or a TypeRef target).
//
// This is plain adjacency-list graph theory (Tarjan's SCC algorithm) with
// no natural home in any third-party library carried by this module: every
// graph/tree library in the dependency surface (go-yaml, protobuf,
// semver, x/mod) targets a different concern, and the examples pack's own
// graph code (e.g. wit/resolve.go's topological sort) is itself
// hand-rolled over plain maps and slices. Reimplementing Tarjan's
// algorithm directly over stdlib containers matches that idiom.
type graph struct {
	nodes []string
	edges map[string][]string
}

func newGraph() *graph {
	return &graph{edges: make(map[string][]string)}
}

func (g *graph) addNode(name string) {
	if _, ok := g.edges[name]; !ok {
		g.nodes = append(g.nodes, name)
		g.edges[name] = nil
	}
}

func (g *graph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.edges[from] = append(g.edges[from], to)
}

// AnalysisResult is the output of the dependency analyzer: a topological
// resolution order for the condensation, plus any cycles discovered. Each
// strongly-connected component of size > 1, or of size 1 with a self-loop,
// is reported as a cycle; types in a trivial (acyclic, non-self-referential)
// component appear individually in Order.
type AnalysisResult struct {
	Order  []string
	Cycles [][]string
}

// Analyze builds the type-reference graph over types and reports cycles and
// a topological resolution order of the condensation. It also validates
// that every TypeRef target is declared and that no two types share a name
// (the latter is actually enforced by ordered.Map's Set semantics, so only
// unknown references are checked here).
func Analyze(types *ordered.Map[string, *TypeDef]) (AnalysisResult, error) {
	g := newGraph()
	for name := range types.Keys() {
		g.addNode(name)
	}
	for name, def := range types.All() {
		refs, err := typeReferences(def.Kind)
		if err != nil {
			return AnalysisResult{}, err
		}
		for _, ref := range refs {
			if _, ok := types.GetOK(ref); !ok {
				return AnalysisResult{}, &UnknownTypeReferenceError{Name: ref}
			}
			g.addEdge(name, ref)
		}
	}

	sccs := g.stronglyConnectedComponents()

	var order []string
	var cycles [][]string
	for _, scc := range sccs {
		isCycle := len(scc) > 1
		if len(scc) == 1 && g.hasSelfLoop(scc[0]) {
			isCycle = true
		}
		if isCycle {
			cycles = append(cycles, scc)
			continue
		}
		order = append(order, scc[0])
	}

	if err := checkLayoutViolations(types); err != nil {
		return AnalysisResult{}, err
	}

	return AnalysisResult{Order: order, Cycles: cycles}, nil
}

// typeReferences returns the type names k directly references: field
// types, variant types, array element types, and TypeRef targets, but only
// the named (TypeRef) references that matter to the graph -- inline
// aggregate kinds are walked recursively and their own nested TypeRefs are
// collected too, since a struct embedding another struct that in turn
// TypeRefs X still depends on X.
func typeReferences(k TypeKind) ([]string, error) {
	var refs []string
	var walk func(TypeKind)
	walk = func(k TypeKind) {
		switch t := k.(type) {
		case StructType:
			for _, f := range t.Fields {
				walk(f.Type)
			}
		case UnionType:
			for _, v := range t.Variants {
				walk(v.Type)
			}
		case EnumType:
			for _, v := range t.Variants {
				walk(v.Type)
			}
		case ArrayType:
			walk(t.ElementType)
		case SizeDiscriminatedUnionType:
			for _, v := range t.Variants {
				walk(v.Type)
			}
		case TypeRef:
			refs = append(refs, t.Name)
		case PrimitiveKindRef:
			// no references
		}
	}
	walk(k)
	return refs, nil
}

// checkLayoutViolations reports the first non-tail field, at any depth,
// whose resolved type would be variable-sized. Variable-sizedness here is
// a structural property (an Array with a non-constant size or jagged flag,
// an Enum with any variable-sized variant, a SizeDiscriminatedUnion, or a
// nested Struct/TypeRef that is itself variable) rather than a numeric
// classification -- the type resolver (D) computes the precise Constant/
// Variable split once resolution order is known; this pass only needs to
// know "could this ever be variable" to flag an illegal non-tail position.
func checkLayoutViolations(types *ordered.Map[string, *TypeDef]) error {
	memo := make(map[string]bool)
	var mayBeVariable func(TypeKind, []string) bool
	mayBeVariable = func(k TypeKind, chain []string) bool {
		switch t := k.(type) {
		case PrimitiveKindRef:
			return false
		case ArrayType:
			if t.Jagged {
				return true
			}
			if c, err := Classify(t.Size, nil, nil); err != nil || !c.Constant {
				return true
			}
			return mayBeVariable(t.ElementType, chain)
		case EnumType:
			for _, v := range t.Variants {
				if mayBeVariable(v.Type, chain) {
					return true
				}
			}
			return false
		case UnionType:
			return false
		case SizeDiscriminatedUnionType:
			return true
		case StructType:
			if len(t.Fields) == 0 {
				return false
			}
			last := t.Fields[len(t.Fields)-1]
			return mayBeVariable(last.Type, append(chain, last.Name))
		case TypeRef:
			if v, ok := memo[t.Name]; ok {
				return v
			}
			def, ok := types.GetOK(t.Name)
			if !ok {
				return false
			}
			memo[t.Name] = false // break recursive cycles conservatively
			result := mayBeVariable(def.Kind, chain)
			memo[t.Name] = result
			return result
		default:
			return false
		}
	}

	for name, def := range types.All() {
		s, ok := def.Kind.(StructType)
		if !ok {
			continue
		}
		for i, f := range s.Fields {
			if i == len(s.Fields)-1 {
				continue // tail position is always legal
			}
			if mayBeVariable(f.Type, []string{f.Name}) {
				return &LayoutViolationError{Type: name, Field: f.Name, Chain: []string{f.Name}}
			}
		}
	}
	return nil
}

// stronglyConnectedComponents runs Tarjan's algorithm over g and returns
// its SCCs in reverse topological order (a component's dependencies appear
// before it in the slice, matching the order resolution must proceed in:
// leaves first).
func (g *graph) stronglyConnectedComponents() [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var result [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			result = append(result, scc)
		}
	}

	for _, v := range g.nodes {
		if _, seen := indices[v]; !seen {
			strongconnect(v)
		}
	}
	return result
}

func (g *graph) hasSelfLoop(node string) bool {
	for _, e := range g.edges[node] {
		if e == node {
			return true
		}
	}
	return false
}
