package loader

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"chainkit/abitool/abi"
)

// EncodeDocument renders pkg back into a schema document's bytes, the
// inverse of decodeDocument. Used by the `flatten -o` CLI verb to write
// its single-document output, and by `flatten --diff` to render two
// flattenings of the same root for comparison.
func EncodeDocument(pkg *abi.Package) ([]byte, error) {
	doc := document{
		Package:        pkg.Ident.Name,
		AbiVersion:     pkg.Ident.AbiVersion,
		Description:    pkg.Description.Contents,
		Imports:        encodeImports(pkg.Imports),
		Options:        encodeOptions(pkg.Metadata),
		Types:          make(map[string]any, pkg.Types.Len()),
	}
	if pkg.Ident.PackageVersion != nil {
		doc.PackageVersion = pkg.Ident.PackageVersion.String()
	}
	for name, def := range pkg.Types.All() {
		doc.Types[name] = encodeTypeKind(def.Kind)
	}
	return yaml.Marshal(doc)
}

func encodeImports(imports []abi.Import) []any {
	out := make([]any, 0, len(imports))
	for _, imp := range imports {
		switch imp.Kind {
		case abi.ImportPath:
			out = append(out, map[string]any{"path": imp.RelPath})
		case abi.ImportHTTP:
			out = append(out, map[string]any{"http": imp.URL})
		case abi.ImportGit:
			out = append(out, map[string]any{"git": map[string]any{"url": imp.GitURL, "ref": imp.GitRef, "path": imp.GitPath}})
		case abi.ImportOnChain:
			out = append(out, map[string]any{"onchain": map[string]any{"locator": imp.Locator, "revision": imp.RequiredRevision}})
		}
	}
	return out
}

func encodeOptions(meta abi.ProgramMetadata) map[string]any {
	if len(meta.RootTypes) == 0 {
		return nil
	}
	roots := make(map[string]any, len(meta.RootTypes))
	for k, v := range meta.RootTypes {
		roots[string(k)] = v
	}
	return map[string]any{
		"program-metadata": map[string]any{"root-types": roots},
	}
}

func encodeTypeKind(k abi.TypeKind) any {
	switch t := k.(type) {
	case abi.PrimitiveKindRef:
		return t.Primitive.String()
	case abi.TypeRef:
		if t.Comment.IsEmpty() {
			return t.Name
		}
		return map[string]any{"ref": t.Name, "comment": t.Comment.Contents}
	case abi.StructType:
		return withAttrs(t.ContainerAttributes, map[string]any{"struct": map[string]any{"fields": encodeFields(t.Fields)}})
	case abi.UnionType:
		return withAttrs(t.ContainerAttributes, map[string]any{"union": map[string]any{"variants": encodeUnionVariants(t.Variants)}})
	case abi.EnumType:
		return withAttrs(t.ContainerAttributes, map[string]any{"enum": map[string]any{
			"tag":      t.TagExpr.String(),
			"variants": encodeEnumVariants(t.Variants),
		}})
	case abi.ArrayType:
		return withAttrs(t.ContainerAttributes, map[string]any{"array": map[string]any{
			"element": encodeTypeKind(t.ElementType),
			"size":    t.Size.String(),
			"jagged":  t.Jagged,
		}})
	case abi.SizeDiscriminatedUnionType:
		return withAttrs(t.ContainerAttributes, map[string]any{"size_discriminated_union": map[string]any{
			"variants": encodeSizeVariants(t.Variants),
		}})
	default:
		return fmt.Sprintf("<unencodable type kind %T>", k)
	}
}

func withAttrs(attrs abi.ContainerAttributes, m map[string]any) map[string]any {
	if attrs.Packed {
		m["packed"] = true
	}
	if attrs.ExplicitAlignment != 0 {
		m["alignment"] = attrs.ExplicitAlignment
	}
	if !attrs.Comment.IsEmpty() {
		m["comment"] = attrs.Comment.Contents
	}
	return m
}

func encodeFields(fields []abi.StructField) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, map[string]any{"name": f.Name, "type": encodeTypeKind(f.Type)})
	}
	return out
}

func encodeUnionVariants(variants []abi.UnionVariant) []any {
	out := make([]any, 0, len(variants))
	for _, v := range variants {
		out = append(out, map[string]any{"name": v.Name, "type": encodeTypeKind(v.Type)})
	}
	return out
}

func encodeEnumVariants(variants []abi.EnumVariant) []any {
	out := make([]any, 0, len(variants))
	for _, v := range variants {
		out = append(out, map[string]any{"name": v.Name, "tag_value": v.TagValue, "type": encodeTypeKind(v.Type)})
	}
	return out
}

func encodeSizeVariants(variants []abi.SizeDiscriminatedVariant) []any {
	out := make([]any, 0, len(variants))
	for _, v := range variants {
		out = append(out, map[string]any{"name": v.Name, "expected_size": v.ExpectedSize, "type": encodeTypeKind(v.Type)})
	}
	return out
}
