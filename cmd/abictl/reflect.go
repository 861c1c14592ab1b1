package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"chainkit/abitool/abi"
	"chainkit/abitool/internal/abicli"
)

var reflectCommand = &cli.Command{
	Name:  "reflect",
	Usage: "decode a raw buffer against a schema's types",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "ABI schema file", Required: true},
		includeFlag,
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "type name to reflect", Required: true},
		&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "hex-encoded buffer, or @path to read raw bytes from a file", Required: true},
		&cli.BoolFlag{Name: "pretty", Aliases: []string{"p"}, Usage: "pretty-print JSON output"},
		&cli.BoolFlag{Name: "validate-only", Usage: "only check the buffer is large enough, print nothing else"},
		&cli.BoolFlag{Name: "show-params", Usage: "include the extracted dynamic parameter cache in the output"},
		&cli.BoolFlag{Name: "include-byte-offsets", Usage: "with --show-params, also include the extractor's byte offsets; no effect otherwise"},
		verboseFlag,
	},
	Action: runReflect,
}

func runReflect(ctx context.Context, cmd *cli.Command) error {
	log := loggerFor(cmd)
	file := cmd.String("file")
	pipe, err := abicli.Load(ctx, file, cmd.StringSlice(includeFlag.Name), false, log)
	if err != nil {
		return fmt.Errorf("reflect %s: %w", file, err)
	}

	buf, err := readBufferArg(cmd.String("data"))
	if err != nil {
		return err
	}

	typeName := cmd.String("type")
	reflector := abi.NewReflector(pipe.Root.Types, pipe.Resolved, pipe.Index, pipe.Root.Metadata, nil)

	if size, err := reflector.ValidateBuffer(typeName, buf); err != nil {
		return fmt.Errorf("reflect: %w", err)
	} else if cmd.Bool("validate-only") {
		fmt.Fprintf(cmd.Root().Writer, "%s: valid, %d byte(s) consumed\n", typeName, size)
		return nil
	}

	rv, err := reflector.Reflect(typeName, buf)
	if err != nil {
		return fmt.Errorf("reflect: %w", err)
	}

	out := map[string]any{"type": typeName, "value": jsonValue(rv, cmd.Bool("include-byte-offsets"))}

	if cmd.Bool("show-params") {
		extractor := abi.NewExtractor(pipe.Root.Types, pipe.Resolved)
		cache, err := extractor.Extract(typeName, buf)
		if err != nil {
			return fmt.Errorf("reflect: extract params: %w", err)
		}
		out["params"] = cache.Params
		out["derived"] = cache.Derived
		if cmd.Bool("include-byte-offsets") {
			out["offsets"] = cache.Offsets
		}
	}

	var data []byte
	if cmd.Bool("pretty") {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, string(data))
	return nil
}

func readBufferArg(arg string) ([]byte, error) {
	if len(arg) > 0 && arg[0] == '@' {
		return os.ReadFile(arg[1:])
	}
	buf, err := hex.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("reflect: --data is not valid hex (use @path for a raw file): %w", err)
	}
	return buf, nil
}

// jsonValue renders a ReflectedValue as a plain JSON-able tree, honoring
// the wellknown registry's enrichment replacement convention: a value with
// HasReplaced set renders as ReplacedBy instead of its raw decoded shape.
func jsonValue(rv abi.ReflectedValue, offsets bool) any {
	v := rv.Value
	if v.HasReplaced {
		return v.ReplacedBy
	}

	switch v.Kind {
	case abi.ValuePrimitive:
		if v.IsFloat {
			return v.PrimitiveFloat
		}
		return v.Primitive
	case abi.ValueStruct:
		fields := make(map[string]any, len(v.Order))
		for _, name := range v.Order {
			fields[name] = jsonValue(v.Fields[name], offsets)
		}
		if len(v.Enrichment) > 0 {
			fields["$enrichment"] = v.Enrichment
		}
		return fields
	case abi.ValueUnion:
		if v.Variant != nil {
			return map[string]any{"variant": v.VariantName, "value": jsonValue(*v.Variant, offsets)}
		}
		return map[string]any{"raw": hex.EncodeToString(v.Raw)}
	case abi.ValueEnum:
		return map[string]any{"variant": v.VariantName, "tag": v.TagValue, "value": jsonValue(*v.Variant, offsets)}
	case abi.ValueSizeDiscriminatedUnion:
		return map[string]any{"variant": v.VariantName, "value": jsonValue(*v.Variant, offsets)}
	case abi.ValueArray:
		elems := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = jsonValue(e, offsets)
		}
		return elems
	default:
		return nil
	}
}
