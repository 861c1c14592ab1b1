package abi

import "chainkit/abitool/abi/ordered"

// RootKind names a program-metadata entry point a schema may declare.
type RootKind string

const (
	RootInstruction RootKind = "instruction-root"
	RootAccount     RootKind = "account-root"
	RootErrors      RootKind = "errors"
	RootEvents      RootKind = "events"
)

// ProgramMetadata carries the optional options.program-metadata block of a
// schema document, mapping root kinds to the type name that serves as that
// entry point's root type.
type ProgramMetadata struct {
	RootTypes map[RootKind]string
}

// ImportKind discriminates the four import source shapes a schema may declare.
type ImportKind uint8

const (
	ImportPath ImportKind = iota
	ImportHTTP
	ImportGit
	ImportOnChain
)

// Import is one entry of a schema's `imports` list.
type Import struct {
	Kind ImportKind

	// ImportPath
	RelPath string

	// ImportHTTP
	URL string

	// ImportGit
	GitURL  string
	GitRef  string
	GitPath string

	// ImportOnChain
	Locator          string
	RequiredRevision string
}

// Package is a parsed schema document: the unit the import resolver (B)
// loads, the dependency analyzer (C) consumes, and the type resolver (D)
// resolves in place.
type Package struct {
	Ident       PackageIdent
	Description Docs
	Imports     []Import
	Types       *ordered.Map[string, *TypeDef]
	Metadata    ProgramMetadata

	// CanonicalLocation is the path/URL/locator this package was loaded
	// from, after canonicalization by the import resolver. Used to
	// deduplicate transitively-loaded schemas.
	CanonicalLocation string

	// Remote records whether this package was loaded from anything other
	// than a local path, which forbids it from declaring its own Path imports.
	Remote bool
}

// TypeNames returns the declared type names of p, in the order p.Types
// holds them. For a package decoded by the loader that is Go map iteration
// order over the document's types mapping, not the document's own order.
func (p *Package) TypeNames() []string {
	if p.Types == nil {
		return nil
	}
	names := make([]string, 0, p.Types.Len())
	for name := range p.Types.Keys() {
		names = append(names, name)
	}
	return names
}
