// Package flatten implements Component K: it collapses a root package and
// its transitively loaded imports (as produced by loader.Loader.Load) into
// a single package declaring no imports, with every type reference already
// normalized to a simple name by the loader's resolve_type_name pass.
//
// Flattening is idempotent: flattening an already-flat package (one with
// no imports) returns an equivalent package unchanged, since there is
// nothing left to inline -- Edges for such a package is empty and
// Flatten's walk degenerates to copying root's own types alone.
package flatten

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"chainkit/abitool/abi"
	"chainkit/abitool/abi/ordered"
)

// Flatten merges root and every package it transitively imports, as
// described by edges (importer canonical location -> imported canonical
// locations, exactly the shape loader.Result.Edges carries) and all
// (canonical location -> loaded package), into a single *abi.Package with
// an empty Imports list, retaining root's package identity, description,
// and program-metadata root-type declarations.
//
// Types are copied in a deterministic order: root's own types first (in
// the order root.Types holds them), then a depth-first walk of edges in the order
// each package's imports were declared, so the output is stable across
// repeated runs over the same input graph.
func Flatten(root *abi.Package, all map[string]*abi.Package, edges map[string][]string) (*abi.Package, error) {
	out := &abi.Package{
		Ident:       root.Ident,
		Description: root.Description,
		Types:       &ordered.Map[string, *abi.TypeDef]{},
		Metadata:    root.Metadata,
	}

	seen := make(map[string]bool)
	if err := copyTypes(root, out, seen); err != nil {
		return nil, err
	}
	if err := walk(root.CanonicalLocation, all, edges, out, seen); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(canonical string, all map[string]*abi.Package, edges map[string][]string, out *abi.Package, seen map[string]bool) error {
	for _, childLoc := range edges[canonical] {
		if seen[childLoc] {
			continue
		}
		child, ok := all[childLoc]
		if !ok {
			continue // a remote import resolved to a canonical location not retained in all; nothing to inline
		}
		if err := copyTypes(child, out, seen); err != nil {
			return err
		}
		if err := walk(childLoc, all, edges, out, seen); err != nil {
			return err
		}
	}
	return nil
}

func copyTypes(pkg *abi.Package, out *abi.Package, seen map[string]bool) error {
	seen[pkg.CanonicalLocation] = true
	if pkg.Types == nil {
		return nil
	}
	for name, def := range pkg.Types.All() {
		if out.Types.Set(name, def) {
			return &abi.DuplicateTypeNameError{Name: name}
		}
	}
	return nil
}

// Diff renders a human-readable line diff between two flattened schema
// documents (e.g. two EncodeJSON outputs, or two re-serialized YAML
// documents), used by the `flatten --diff` CLI mode to show operators what
// changed between successive flattenings of the same root -- the
// idempotence invariant means a correct flattener always reports no diff
// against its own prior output.
func Diff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	return dmp.DiffPrettyText(diffs)
}
