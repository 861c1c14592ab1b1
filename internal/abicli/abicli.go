// Package abicli holds the glue every cmd/abictl verb shares: loading a
// schema file (with its transitive imports) into a fully resolved,
// IR-built pipeline, and carrying the caller's logging.Logger level over
// to the loader's own logger.
package abicli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"chainkit/abitool/abi"
	"chainkit/abitool/abi/flatten"
	"chainkit/abitool/abi/loader"
	"chainkit/abitool/abi/logging"
)

// Pipeline is a fully resolved, IR-built schema, ready for reflection,
// footprint analysis, or re-flattening.
type Pipeline struct {
	Root     *abi.Package
	All      map[string]*abi.Package
	Edges    map[string][]string
	Order    []string
	Resolved map[string]*abi.ResolvedType
	Ir       *abi.LayoutIr
	Index    abi.IrIndex
}

// Load reads path and every schema it transitively imports (searched
// against includeDirs), analyzes the combined type graph, resolves every
// type, and lowers the result to IR. HTTP and Git imports are rejected
// (ImportTypeNotAllowedError) unless enableRemote is set, since most CLI
// invocations operate offline against local schema trees; on-chain imports
// are rejected either way, as no on-chain fetcher is configured here.
func Load(ctx context.Context, path string, includeDirs []string, enableRemote bool, log logging.Logger) (*Pipeline, error) {
	var ld *loader.Loader
	if enableRemote {
		ld = loader.New(includeDirs, loader.NewHTTPFetcher(), loader.NewGitFetcher(".abictl-cache/git"), nil)
	} else {
		ld = loader.New(includeDirs, nil, nil, nil)
	}
	ld.Log.SetLevel(logrusLevel(log))

	res, err := ld.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	log.Infof("loaded %s and %d imported package(s)", res.Root.Ident, len(res.All)-1)

	analysis, err := abi.Analyze(res.Root.Types)
	if err != nil {
		return nil, err
	}
	if len(analysis.Cycles) > 0 {
		return nil, &abi.CyclicDependencyError{Chain: analysis.Cycles[0]}
	}

	resolver := abi.NewResolver(res.Root.Types)
	resolved, err := resolver.ResolveAll(analysis.Order)
	if err != nil {
		return nil, err
	}

	builder := abi.NewBuilder(res.Root.Types, resolved)
	ir, err := builder.BuildAll(analysis.Order)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Root:     res.Root,
		All:      res.All,
		Edges:    res.Edges,
		Order:    analysis.Order,
		Resolved: resolved,
		Ir:       ir,
		Index:    ir.Index(),
	}, nil
}

// Flatten re-derives the single-document form of a loaded pipeline's root
// package, suitable for writing out with loader.EncodeDocument.
func Flatten(p *Pipeline) (*abi.Package, error) {
	return flatten.Flatten(p.Root, p.All, p.Edges)
}

func logrusLevel(log logging.Logger) logrus.Level {
	switch {
	case log.Level() <= logging.LevelDebug:
		return logrus.DebugLevel
	case log.Level() <= logging.LevelInfo:
		return logrus.InfoLevel
	case log.Level() <= logging.LevelWarn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
