package loader

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"chainkit/abitool/abi"
	"chainkit/abitool/abi/ordered"
)

// document is the raw shape of a schema document, decoded generically so
// that a `type` value may be either a bare string (a primitive spelling or
// a named reference) or a mapping selecting one of the aggregate kinds.
// goccy/go-yaml decodes mapping nodes into map[string]interface{} and
// sequence nodes into []interface{} when the target is `any`, the same
// convention encoding/json uses for untyped decoding.
type document struct {
	Package        string         `yaml:"package"`
	AbiVersion     int            `yaml:"abi-version"`
	PackageVersion string         `yaml:"package-version"`
	Description    string         `yaml:"description"`
	Imports        []any          `yaml:"imports"`
	Options        map[string]any `yaml:"options"`
	Types          map[string]any `yaml:"types"`
}

// decodeDocument parses a schema document's bytes into an *abi.Package with
// no imports resolved and no TypeRef targets populated; the caller (the
// import resolver) fills in CanonicalLocation and Remote.
func decodeDocument(path string, data []byte) (*abi.Package, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &abi.ParseError{Path: path, Err: err}
	}

	ident, err := abi.ParsePackageIdent(doc.Package, doc.AbiVersion, doc.PackageVersion)
	if err != nil {
		return nil, &abi.ParseError{Path: path, Err: err}
	}

	imports, err := parseImports(doc.Imports)
	if err != nil {
		return nil, &abi.ParseError{Path: path, Err: err}
	}

	meta, err := parseProgramMetadata(doc.Options)
	if err != nil {
		return nil, &abi.ParseError{Path: path, Err: err}
	}

	types, err := parseTypes(doc.Types)
	if err != nil {
		return nil, &abi.ParseError{Path: path, Err: err}
	}

	return &abi.Package{
		Ident:       ident,
		Description: abi.Docs{Contents: doc.Description},
		Imports:     imports,
		Types:       types,
		Metadata:    meta,
	}, nil
}

func parseImports(raw []any) ([]abi.Import, error) {
	out := make([]abi.Import, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("import entry must be a mapping, got %T", item)
		}
		imp, err := parseImport(m)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, nil
}

func parseImport(m map[string]any) (abi.Import, error) {
	if v, ok := m["path"]; ok {
		s, _ := v.(string)
		return abi.Import{Kind: abi.ImportPath, RelPath: s}, nil
	}
	if v, ok := m["http"]; ok {
		s, _ := v.(string)
		return abi.Import{Kind: abi.ImportHTTP, URL: s}, nil
	}
	if v, ok := m["git"]; ok {
		g, ok := v.(map[string]any)
		if !ok {
			return abi.Import{}, fmt.Errorf("git import must be a mapping")
		}
		return abi.Import{
			Kind:    abi.ImportGit,
			GitURL:  stringField(g, "url"),
			GitRef:  stringField(g, "ref"),
			GitPath: stringField(g, "path"),
		}, nil
	}
	if v, ok := m["onchain"]; ok {
		o, ok := v.(map[string]any)
		if !ok {
			return abi.Import{}, fmt.Errorf("onchain import must be a mapping")
		}
		return abi.Import{
			Kind:             abi.ImportOnChain,
			Locator:          stringField(o, "locator"),
			RequiredRevision: stringField(o, "revision"),
		}, nil
	}
	return abi.Import{}, fmt.Errorf("import entry must declare one of path/http/git/onchain")
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func parseProgramMetadata(options map[string]any) (abi.ProgramMetadata, error) {
	meta := abi.ProgramMetadata{RootTypes: map[abi.RootKind]string{}}
	if options == nil {
		return meta, nil
	}
	pm, ok := options["program-metadata"].(map[string]any)
	if !ok {
		return meta, nil
	}
	roots, ok := pm["root-types"].(map[string]any)
	if !ok {
		return meta, nil
	}
	for k, v := range roots {
		name, ok := v.(string)
		if !ok {
			return meta, fmt.Errorf("program-metadata root-types.%s must be a string", k)
		}
		meta.RootTypes[abi.RootKind(k)] = name
	}
	return meta, nil
}

func parseTypes(raw map[string]any) (*ordered.Map[string, *abi.TypeDef], error) {
	types := &ordered.Map[string, *abi.TypeDef]{}
	for name, v := range raw {
		kind, err := parseTypeKind(v)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		if types.Set(name, &abi.TypeDef{Name: name, Kind: kind}) {
			return nil, &abi.DuplicateTypeNameError{Name: name}
		}
	}
	return types, nil
}

// parseTypeKind converts a generically-decoded YAML value into an
// abi.TypeKind: a bare string is a primitive spelling or a named
// TypeRef, and a mapping selects one of the five aggregate kinds by
// whichever of struct/union/enum/array/size_discriminated_union key it
// carries, alongside the shared container attributes (packed,
// alignment, comment).
func parseTypeKind(v any) (abi.TypeKind, error) {
	switch t := v.(type) {
	case string:
		return parseTypeRefOrPrimitive(t), nil
	case map[string]any:
		return parseAggregateType(t)
	default:
		return nil, fmt.Errorf("expected a type name or a type mapping, got %T", v)
	}
}

func parseTypeRefOrPrimitive(name string) abi.TypeKind {
	if p, ok := abi.ParsePrimitive(name); ok {
		return abi.PrimitiveKindRef{Primitive: p}
	}
	return abi.TypeRef{Name: name}
}

func parseAggregateType(m map[string]any) (abi.TypeKind, error) {
	attrs := parseContainerAttributes(m)

	if ref, ok := m["ref"].(string); ok {
		return abi.TypeRef{Name: ref, Comment: attrs.Comment}, nil
	}
	if s, ok := m["struct"].(map[string]any); ok {
		return parseStructType(s, attrs)
	}
	if u, ok := m["union"].(map[string]any); ok {
		return parseUnionType(u, attrs)
	}
	if e, ok := m["enum"].(map[string]any); ok {
		return parseEnumType(e, attrs)
	}
	if a, ok := m["array"].(map[string]any); ok {
		return parseArrayType(a, attrs)
	}
	if u, ok := m["size_discriminated_union"].(map[string]any); ok {
		return parseSizeDiscriminatedUnionType(u, attrs)
	}
	return nil, fmt.Errorf("type mapping must declare one of struct/union/enum/array/size_discriminated_union/ref")
}

func parseContainerAttributes(m map[string]any) abi.ContainerAttributes {
	attrs := abi.ContainerAttributes{}
	if p, ok := m["packed"].(bool); ok {
		attrs.Packed = p
	}
	if a, ok := m["alignment"]; ok {
		attrs.ExplicitAlignment = toUint64(a)
	}
	if c, ok := m["comment"].(string); ok {
		attrs.Comment = abi.Docs{Contents: c}
	}
	return attrs
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	case uint64:
		return n
	case float64:
		return uint64(n)
	default:
		return 0
	}
}

func parseStructType(m map[string]any, attrs abi.ContainerAttributes) (abi.TypeKind, error) {
	rawFields, _ := m["fields"].([]any)
	fields := make([]abi.StructField, 0, len(rawFields))
	for _, rf := range rawFields {
		fm, ok := rf.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("struct field must be a mapping")
		}
		name := stringField(fm, "name")
		kind, err := parseTypeKind(fm["type"])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, abi.StructField{Name: name, Type: kind})
	}
	return abi.StructType{ContainerAttributes: attrs, Fields: fields}, nil
}

func parseUnionType(m map[string]any, attrs abi.ContainerAttributes) (abi.TypeKind, error) {
	rawVariants, _ := m["variants"].([]any)
	variants := make([]abi.UnionVariant, 0, len(rawVariants))
	for _, rv := range rawVariants {
		vm, ok := rv.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("union variant must be a mapping")
		}
		name := stringField(vm, "name")
		kind, err := parseTypeKind(vm["type"])
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", name, err)
		}
		variants = append(variants, abi.UnionVariant{Name: name, Type: kind})
	}
	return abi.UnionType{ContainerAttributes: attrs, Variants: variants}, nil
}

func parseEnumType(m map[string]any, attrs abi.ContainerAttributes) (abi.TypeKind, error) {
	tagStr := stringField(m, "tag")
	tagExpr, err := ParseExpr(tagStr)
	if err != nil {
		return nil, err
	}
	rawVariants, _ := m["variants"].([]any)
	variants := make([]abi.EnumVariant, 0, len(rawVariants))
	for _, rv := range rawVariants {
		vm, ok := rv.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("enum variant must be a mapping")
		}
		name := stringField(vm, "name")
		kind, err := parseTypeKind(vm["type"])
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", name, err)
		}
		variants = append(variants, abi.EnumVariant{
			Name:     name,
			TagValue: toUint64(vm["tag_value"]),
			Type:     kind,
		})
	}
	return abi.EnumType{ContainerAttributes: attrs, TagExpr: tagExpr, Variants: variants}, nil
}

func parseArrayType(m map[string]any, attrs abi.ContainerAttributes) (abi.TypeKind, error) {
	elem, err := parseTypeKind(m["element"])
	if err != nil {
		return nil, fmt.Errorf("array element: %w", err)
	}
	sizeStr, ok := m["size"].(string)
	if !ok {
		sizeStr = fmt.Sprintf("%d", toUint64(m["size"]))
	}
	size, err := ParseExpr(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("array size: %w", err)
	}
	jagged, _ := m["jagged"].(bool)
	return abi.ArrayType{ContainerAttributes: attrs, ElementType: elem, Size: size, Jagged: jagged}, nil
}

func parseSizeDiscriminatedUnionType(m map[string]any, attrs abi.ContainerAttributes) (abi.TypeKind, error) {
	rawVariants, _ := m["variants"].([]any)
	variants := make([]abi.SizeDiscriminatedVariant, 0, len(rawVariants))
	for _, rv := range rawVariants {
		vm, ok := rv.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("size_discriminated_union variant must be a mapping")
		}
		name := stringField(vm, "name")
		kind, err := parseTypeKind(vm["type"])
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", name, err)
		}
		variants = append(variants, abi.SizeDiscriminatedVariant{
			Name:         name,
			ExpectedSize: toUint64(vm["expected_size"]),
			Type:         kind,
		})
	}
	return abi.SizeDiscriminatedUnionType{ContainerAttributes: attrs, Variants: variants}, nil
}
