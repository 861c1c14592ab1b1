package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"chainkit/abitool/abi"
	"chainkit/abitool/internal/abicli"
	"chainkit/abitool/internal/go/gen"
)

var codegenCommand = &cli.Command{
	Name:  "codegen",
	Usage: "generate client-language struct bindings for a schema's types",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "file", Aliases: []string{"f"}, Usage: "schema file(s) to generate from", Required: true},
		includeFlag,
		&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Usage: "target language: c, rust, or typescript", Required: true},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output directory", Required: true},
		verboseFlag,
	},
	Action: runCodegen,
}

func runCodegen(ctx context.Context, cmd *cli.Command) error {
	log := loggerFor(cmd)
	lang := cmd.String("language")
	var emit func(*abicli.Pipeline) (string, string, error)
	switch lang {
	case "c":
		emit = emitC
	case "rust":
		emit = emitRust
	case "typescript":
		emit = emitTypeScript
	default:
		return fmt.Errorf("codegen: unknown --language %q (want c, rust, or typescript)", lang)
	}

	if err := os.MkdirAll(cmd.String("output"), 0o755); err != nil {
		return fmt.Errorf("codegen: %w", err)
	}

	for _, file := range cmd.StringSlice("file") {
		pipe, err := abicli.Load(ctx, file, cmd.StringSlice(includeFlag.Name), false, log)
		if err != nil {
			return fmt.Errorf("codegen %s: %w", file, err)
		}

		name, src, err := emit(pipe)
		if err != nil {
			return fmt.Errorf("codegen %s: %w", file, err)
		}

		outPath := filepath.Join(cmd.String("output"), name)
		if err := os.WriteFile(outPath, []byte(src), 0o644); err != nil {
			return fmt.Errorf("codegen %s: write %s: %w", file, outPath, err)
		}
		log.Infof("generated %s bindings for %s -> %s", lang, pipe.Root.Ident.Name, outPath)
	}
	return nil
}

// nameScope returns a gen.Scope seeded with a target language's reserved
// words, reusing gen's collision-avoidance machinery (built for Go
// identifiers) against a different keyword set.
func nameScope(reserved map[string]bool) gen.Scope {
	return gen.NewScope(langScope{reserved})
}

type langScope struct{ reserved map[string]bool }

func (l langScope) HasName(name string) bool { return l.reserved[name] }
func (l langScope) UniqueName(name string) string {
	panic("langScope is an immutable base scope")
}

func reservedSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// --- C ---------------------------------------------------------------

var cReserved = reservedSet(
	"auto", "break", "case", "char", "const", "continue", "default", "do",
	"double", "else", "enum", "extern", "float", "for", "goto", "if",
	"inline", "int", "long", "register", "restrict", "return", "short",
	"signed", "sizeof", "static", "struct", "switch", "typedef", "union",
	"unsigned", "void", "volatile", "while",
)

func cPrimitive(p abi.Primitive) string {
	switch p.Kind {
	case abi.PrimitiveFloat:
		if p.Bits == 32 {
			return "float"
		}
		return "double"
	case abi.PrimitiveSigned:
		return fmt.Sprintf("int%d_t", p.Bits)
	default:
		return fmt.Sprintf("uint%d_t", p.Bits)
	}
}

func emitC(p *abicli.Pipeline) (string, string, error) {
	scope := nameScope(cReserved)
	var b strings.Builder
	guard := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(p.Root.Ident.Name)) + "_H"
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n#include <stdint.h>\n\n", guard, guard)

	for _, name := range p.Order {
		def, ok := p.Root.Types.GetOK(name)
		if !ok {
			continue
		}
		writeCType(&b, scope, name, def.Kind)
	}
	fmt.Fprintf(&b, "#endif /* %s */\n", guard)
	return p.Root.Ident.Name + ".h", b.String(), nil
}

func writeCType(b *strings.Builder, scope gen.Scope, name string, k abi.TypeKind) {
	cname := scope.UniqueName(name)
	switch t := k.(type) {
	case abi.StructType:
		fmt.Fprintf(b, "typedef struct {\n")
		for _, f := range t.Fields {
			fmt.Fprintf(b, "    %s %s;\n", cTypeExpr(f.Type), f.Name)
		}
		fmt.Fprintf(b, "} %s;\n\n", cname)
	case abi.EnumType:
		fmt.Fprintf(b, "/* enum %s: tag = %s */\n", cname, t.TagExpr.String())
		fmt.Fprintf(b, "typedef struct {\n    uint64_t tag;\n    union {\n")
		for _, v := range t.Variants {
			fmt.Fprintf(b, "        %s %s; /* tag_value=%d */\n", cTypeExpr(v.Type), v.Name, v.TagValue)
		}
		fmt.Fprintf(b, "    } value;\n} %s;\n\n", cname)
	case abi.UnionType:
		fmt.Fprintf(b, "typedef union {\n")
		for _, v := range t.Variants {
			fmt.Fprintf(b, "    %s %s;\n", cTypeExpr(v.Type), v.Name)
		}
		fmt.Fprintf(b, "} %s;\n\n", cname)
	case abi.SizeDiscriminatedUnionType:
		fmt.Fprintf(b, "/* size-discriminated union %s: variant chosen by payload_size */\n", cname)
		fmt.Fprintf(b, "typedef union {\n")
		for _, v := range t.Variants {
			fmt.Fprintf(b, "    %s %s; /* expected_size=%d */\n", cTypeExpr(v.Type), v.Name, v.ExpectedSize)
		}
		fmt.Fprintf(b, "} %s;\n\n", cname)
	case abi.ArrayType:
		fmt.Fprintf(b, "/* array %s: element %s, size = %s */\n\n", cname, cTypeExpr(t.ElementType), t.Size.String())
	}
}

func cTypeExpr(k abi.TypeKind) string {
	switch t := k.(type) {
	case abi.PrimitiveKindRef:
		return cPrimitive(t.Primitive)
	case abi.TypeRef:
		return t.Name
	case abi.ArrayType:
		return cTypeExpr(t.ElementType) + "*"
	default:
		return "uint8_t"
	}
}

// --- Rust --------------------------------------------------------------

var rustReserved = reservedSet(
	"as", "break", "const", "continue", "crate", "dyn", "else", "enum",
	"extern", "false", "fn", "for", "if", "impl", "in", "let", "loop",
	"match", "mod", "move", "mut", "pub", "ref", "return", "self", "Self",
	"static", "struct", "super", "trait", "true", "type", "unsafe", "use",
	"where", "while", "async", "await", "type", "union",
)

func rustPrimitive(p abi.Primitive) string {
	switch p.Kind {
	case abi.PrimitiveFloat:
		return fmt.Sprintf("f%d", p.Bits)
	case abi.PrimitiveSigned:
		return fmt.Sprintf("i%d", p.Bits)
	default:
		return fmt.Sprintf("u%d", p.Bits)
	}
}

func emitRust(p *abicli.Pipeline) (string, string, error) {
	scope := nameScope(rustReserved)
	var b strings.Builder
	fmt.Fprintf(&b, "// generated bindings for %s\n\n", p.Root.Ident.Name)

	for _, name := range p.Order {
		def, ok := p.Root.Types.GetOK(name)
		if !ok {
			continue
		}
		writeRustType(&b, scope, name, def.Kind)
	}
	return p.Root.Ident.Name + ".rs", b.String(), nil
}

func writeRustType(b *strings.Builder, scope gen.Scope, name string, k abi.TypeKind) {
	rname := scope.UniqueName(name)
	switch t := k.(type) {
	case abi.StructType:
		fmt.Fprintf(b, "#[repr(C)]\npub struct %s {\n", rname)
		for _, f := range t.Fields {
			fmt.Fprintf(b, "    pub %s: %s,\n", f.Name, rustTypeExpr(f.Type))
		}
		fmt.Fprintf(b, "}\n\n")
	case abi.EnumType:
		fmt.Fprintf(b, "// tag = %s\n#[repr(C, u64)]\npub enum %s {\n", t.TagExpr.String(), rname)
		for _, v := range t.Variants {
			fmt.Fprintf(b, "    %s(%s) = %d,\n", v.Name, rustTypeExpr(v.Type), v.TagValue)
		}
		fmt.Fprintf(b, "}\n\n")
	case abi.UnionType:
		fmt.Fprintf(b, "#[repr(C)]\npub union %s {\n", rname)
		for _, v := range t.Variants {
			fmt.Fprintf(b, "    pub %s: std::mem::ManuallyDrop<%s>,\n", v.Name, rustTypeExpr(v.Type))
		}
		fmt.Fprintf(b, "}\n\n")
	case abi.SizeDiscriminatedUnionType:
		fmt.Fprintf(b, "// size-discriminated union: variant chosen by payload_size\npub enum %s {\n", rname)
		for _, v := range t.Variants {
			fmt.Fprintf(b, "    %s(%s), // expected_size=%d\n", v.Name, rustTypeExpr(v.Type), v.ExpectedSize)
		}
		fmt.Fprintf(b, "}\n\n")
	case abi.ArrayType:
		fmt.Fprintf(b, "// array %s: element %s, size = %s\n\n", rname, rustTypeExpr(t.ElementType), t.Size.String())
	}
}

func rustTypeExpr(k abi.TypeKind) string {
	switch t := k.(type) {
	case abi.PrimitiveKindRef:
		return rustPrimitive(t.Primitive)
	case abi.TypeRef:
		return t.Name
	case abi.ArrayType:
		return "[" + rustTypeExpr(t.ElementType) + "]"
	default:
		return "u8"
	}
}

// --- TypeScript ----------------------------------------------------------

var tsReserved = reservedSet(
	"break", "case", "catch", "class", "const", "continue", "debugger",
	"default", "delete", "do", "else", "enum", "export", "extends",
	"false", "finally", "for", "function", "if", "import", "in",
	"instanceof", "interface", "new", "null", "return", "super", "switch",
	"this", "throw", "true", "try", "typeof", "var", "void", "while",
	"with", "as", "implements", "let", "package", "private", "protected",
	"public", "static", "yield", "any", "boolean", "number", "string",
)

func tsPrimitive(p abi.Primitive) string {
	if p.Bits > 32 {
		return "bigint"
	}
	return "number"
}

func emitTypeScript(p *abicli.Pipeline) (string, string, error) {
	scope := nameScope(tsReserved)
	var b strings.Builder
	fmt.Fprintf(&b, "// generated bindings for %s\n\n", p.Root.Ident.Name)

	for _, name := range p.Order {
		def, ok := p.Root.Types.GetOK(name)
		if !ok {
			continue
		}
		writeTSType(&b, scope, name, def.Kind)
	}
	return p.Root.Ident.Name + ".ts", b.String(), nil
}

func writeTSType(b *strings.Builder, scope gen.Scope, name string, k abi.TypeKind) {
	tname := scope.UniqueName(name)
	switch t := k.(type) {
	case abi.StructType:
		fmt.Fprintf(b, "export interface %s {\n", tname)
		for _, f := range t.Fields {
			fmt.Fprintf(b, "    %s: %s;\n", f.Name, tsTypeExpr(f.Type))
		}
		fmt.Fprintf(b, "}\n\n")
	case abi.EnumType:
		fmt.Fprintf(b, "// tag = %s\n", t.TagExpr.String())
		fmt.Fprintf(b, "export type %s =\n", tname)
		for i, v := range t.Variants {
			sep := " |"
			if i == len(t.Variants)-1 {
				sep = ";"
			}
			fmt.Fprintf(b, "    { kind: \"%s\"; tagValue: %d; value: %s }%s\n", v.Name, v.TagValue, tsTypeExpr(v.Type), sep)
		}
		fmt.Fprintln(b)
	case abi.UnionType:
		fmt.Fprintf(b, "export interface %s {\n    raw: Uint8Array;\n}\n\n", tname)
	case abi.SizeDiscriminatedUnionType:
		fmt.Fprintf(b, "// size-discriminated union: variant chosen by payload_size\n")
		fmt.Fprintf(b, "export type %s =\n", tname)
		for i, v := range t.Variants {
			sep := " |"
			if i == len(t.Variants)-1 {
				sep = ";"
			}
			fmt.Fprintf(b, "    { kind: \"%s\"; expectedSize: %d; value: %s }%s\n", v.Name, v.ExpectedSize, tsTypeExpr(v.Type), sep)
		}
		fmt.Fprintln(b)
	case abi.ArrayType:
		fmt.Fprintf(b, "export type %s = %s[];\n\n", tname, tsTypeExpr(t.ElementType))
	}
}

func tsTypeExpr(k abi.TypeKind) string {
	switch t := k.(type) {
	case abi.PrimitiveKindRef:
		return tsPrimitive(t.Primitive)
	case abi.TypeRef:
		return t.Name
	case abi.ArrayType:
		return tsTypeExpr(t.ElementType) + "[]"
	default:
		return "Uint8Array"
	}
}
