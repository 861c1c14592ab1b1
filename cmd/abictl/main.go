// Command abictl inspects and manipulates ABI schema documents: it
// generates client-language bindings, analyzes a schema's resolved
// layout, reflects raw buffers against a schema's types, and flattens a
// schema and its imports into a single document.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

var (
	version  = ""
	revision = ""
)

func init() {
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = build.Main.Version
	for _, s := range build.Settings {
		if s.Key == "vcs.revision" {
			revision = s.Value
		}
	}
	if version == "" {
		version = revision
	}
	if version == "" {
		version = "(none)"
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "abictl",
		Usage: "inspect and manipulate ABI schema documents",
		Commands: []*cli.Command{
			codegenCommand,
			analyzeCommand,
			reflectCommand,
			flattenCommand,
		},
		Version: version,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
