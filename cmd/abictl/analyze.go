package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"chainkit/abitool/abi"
	"chainkit/abitool/abi/serialize"
	"chainkit/abitool/internal/abicli"
)

var analyzeCommand = &cli.Command{
	Name:  "analyze",
	Usage: "resolve a schema's dependency order, footprints, and layout IR",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "file", Aliases: []string{"f"}, Usage: "schema file(s) to analyze", Required: true},
		includeFlag,
		&cli.BoolFlag{Name: "print-ir", Usage: "print the resolved layout IR"},
		&cli.StringFlag{Name: "ir-format", Value: "json", Usage: "IR output format: json or protobuf"},
		&cli.StringFlag{Name: "print-footprint", Usage: "print the resolved footprint of a single type"},
		&cli.StringFlag{Name: "print-validate", Usage: "report whether a named type has a constant or variable footprint"},
		verboseFlag,
	},
	Action: runAnalyze,
}

func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	log := loggerFor(cmd)
	for _, file := range cmd.StringSlice("file") {
		pipe, err := abicli.Load(ctx, file, cmd.StringSlice(includeFlag.Name), false, log)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", file, err)
		}

		fmt.Fprintf(cmd.Root().Writer, "%s: %d type(s), dependency order:\n", file, len(pipe.Order))
		for _, name := range pipe.Order {
			r := pipe.Resolved[name]
			switch r.Size.Class {
			case abi.SizeConst:
				fmt.Fprintf(cmd.Root().Writer, "  %-32s size=%d align=%d\n", name, r.Size.Const, r.Alignment)
			default:
				fmt.Fprintf(cmd.Root().Writer, "  %-32s size=variable align=%d\n", name, r.Alignment)
			}
		}

		if t := cmd.String("print-footprint"); t != "" {
			r, ok := pipe.Resolved[t]
			if !ok {
				return fmt.Errorf("analyze %s: unknown type %q", file, t)
			}
			b, _ := json.MarshalIndent(footprintOf(r), "", "  ")
			fmt.Fprintln(cmd.Root().Writer, string(b))
		}

		if t := cmd.String("print-validate"); t != "" {
			r, ok := pipe.Resolved[t]
			if !ok {
				return fmt.Errorf("analyze %s: unknown type %q", file, t)
			}
			if r.Size.Class == abi.SizeConst {
				fmt.Fprintf(cmd.Root().Writer, "%s: constant size %d\n", t, r.Size.Const)
			} else {
				fmt.Fprintf(cmd.Root().Writer, "%s: variable size, depends on %v\n", t, r.Size.Variable)
			}
		}

		if cmd.Bool("print-ir") {
			var out []byte
			var err error
			switch cmd.String("ir-format") {
			case "protobuf":
				out = serialize.EncodeProtobuf(pipe.Ir)
			case "json", "":
				out, err = serialize.EncodeJSON(pipe.Ir)
			default:
				return fmt.Errorf("analyze: unknown --ir-format %q", cmd.String("ir-format"))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, string(out))
		}
	}
	return nil
}

func footprintOf(r *abi.ResolvedType) any {
	if r.Size.Class == abi.SizeConst {
		return map[string]any{"class": "const", "size": r.Size.Const, "alignment": r.Alignment}
	}
	return map[string]any{"class": "variable", "depends_on": r.Size.Variable, "alignment": r.Alignment}
}
