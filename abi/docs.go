package abi

// Docs holds the free-text description attached to a package or a TypeDef,
// taken verbatim from a schema's `description` or a type's `comment`
// container attribute. It is carried through resolution and IR building
// unchanged and surfaces in the reflector's pretty-printed output and in
// generated code doc comments.
type Docs struct {
	Contents string
}

func (d Docs) String() string { return d.Contents }

// IsEmpty reports whether d carries no text.
func (d Docs) IsEmpty() bool { return d.Contents == "" }
