package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"chainkit/abitool/abi/flatten"
	"chainkit/abitool/abi/loader"
	"chainkit/abitool/internal/abicli"
)

var flattenCommand = &cli.Command{
	Name:  "flatten",
	Usage: "inline a schema's transitive imports into a single document",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "schema file to flatten", Required: true},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "file to write the flattened document to", Required: true},
		includeFlag,
		&cli.BoolFlag{Name: "diff", Usage: "print a diff between the written output and a second flattening of the same loaded input"},
		verboseFlag,
	},
	Action: runFlatten,
}

func runFlatten(ctx context.Context, cmd *cli.Command) error {
	log := loggerFor(cmd)
	file := cmd.String("file")
	includeDirs := cmd.StringSlice(includeFlag.Name)

	pipe, err := abicli.Load(ctx, file, includeDirs, false, log)
	if err != nil {
		return fmt.Errorf("flatten %s: %w", file, err)
	}

	flat, err := abicli.Flatten(pipe)
	if err != nil {
		return fmt.Errorf("flatten %s: %w", file, err)
	}

	out, err := loader.EncodeDocument(flat)
	if err != nil {
		return fmt.Errorf("flatten %s: encode: %w", file, err)
	}

	if err := os.WriteFile(cmd.String("output"), out, 0o644); err != nil {
		return fmt.Errorf("flatten %s: write %s: %w", file, cmd.String("output"), err)
	}
	log.Infof("wrote flattened schema with %d type(s) to %s", flat.Types.Len(), cmd.String("output"))

	if cmd.Bool("diff") {
		reflat, err := abicli.Flatten(pipe)
		if err != nil {
			return err
		}
		again, err := loader.EncodeDocument(reflat)
		if err != nil {
			return err
		}
		d := flatten.Diff(string(out), string(again))
		if d == "" {
			fmt.Fprintln(cmd.Root().Writer, "flatten is deterministic: no diff")
		} else {
			fmt.Fprintln(cmd.Root().Writer, d)
		}
	}
	return nil
}
