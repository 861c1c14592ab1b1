// Package loader implements Component B, the import resolver: it turns a
// root schema document's path into a fully-loaded *abi.Package together
// with every package it transitively imports, deduplicated by canonical
// location, and populates each TypeRef encountered across a package
// boundary via resolve_type_name.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"chainkit/abitool/abi"
)

// Fetcher retrieves the bytes of one import source kind. Path imports are
// handled by the Loader itself, without a Fetcher (they alone participate
// in the parent-dir / include-dir search order); the other three kinds
// fetch unconditionally from the locator the import carries.
type Fetcher interface {
	Fetch(ctx context.Context, imp abi.Import, baseDir string) (data []byte, canonical string, err error)
}

// Loader resolves a schema document and its transitive imports.
type Loader struct {
	// IncludeDirs are searched, in order, after the importing schema's own
	// directory, for a Path import that does not resolve relative to it.
	IncludeDirs []string

	HTTP    Fetcher
	Git     Fetcher
	OnChain Fetcher

	Log *logrus.Logger

	mu      sync.Mutex
	byPath  map[string]*abi.Package // canonical location -> loaded package
	typeMap map[string][]string     // package name -> declared type names, accumulated across the whole load
	edges   map[string][]string     // importer canonical location -> imported canonical locations, in import order
}

// Result is the output of a Load call: the root package, every package
// loaded (root included, keyed by canonical location), and the import
// graph discovered along the way -- used by the flatten package to walk
// the graph without having to re-derive which import resolved to which
// loaded package.
type Result struct {
	Root    *abi.Package
	All     map[string]*abi.Package
	Edges   map[string][]string
}

// New builds a Loader. A nil HTTP/Git/OnChain Fetcher makes that import
// kind rejected with ImportTypeNotAllowedError, for callers that only want
// to support local path imports (e.g. the `flatten` and `analyze` CLI
// verbs run offline by default).
func New(includeDirs []string, http, git, onchain Fetcher) *Loader {
	log := logrus.New()
	return &Loader{
		IncludeDirs: includeDirs,
		HTTP:        http,
		Git:         git,
		OnChain:     onchain,
		Log:         log,
		byPath:      make(map[string]*abi.Package),
		typeMap:     make(map[string][]string),
		edges:       make(map[string][]string),
	}
}

// Load loads rootPath as a local schema document and recursively resolves
// every import it (transitively) declares.
func (l *Loader) Load(ctx context.Context, rootPath string) (*Result, error) {
	canonical, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, &abi.InitError{Err: err}
	}
	root, err := l.loadLocal(canonical)
	if err != nil {
		return nil, err
	}
	if err := l.resolveImports(ctx, root, filepath.Dir(canonical), false); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]*abi.Package, len(l.byPath))
	for k, v := range l.byPath {
		out[k] = v
	}
	edges := make(map[string][]string, len(l.edges))
	for k, v := range l.edges {
		edges[k] = append([]string(nil), v...)
	}
	return &Result{Root: root, All: out, Edges: edges}, nil
}

func (l *Loader) loadLocal(canonical string) (*abi.Package, error) {
	data, err := readFile(canonical)
	if err != nil {
		return nil, &abi.FetchError{Source: canonical, Err: err}
	}
	pkg, err := decodeDocument(canonical, data)
	if err != nil {
		return nil, err
	}
	pkg.CanonicalLocation = canonical
	l.register(pkg)
	return pkg, nil
}

// register records pkg under its canonical location and appends its
// declared type names under its package name, for resolve_type_name. An
// identically-named package registered earlier keeps its names: both sets
// are folded in, matching the spec's package_types accumulation.
func (l *Loader) register(pkg *abi.Package) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byPath[pkg.CanonicalLocation] = pkg
	l.typeMap[pkg.Ident.Name] = append(l.typeMap[pkg.Ident.Name], pkg.TypeNames()...)
}

// resolveImports fetches every import pkg declares (concurrently, since
// they are independent), skips any whose canonical location was already
// loaded, recurses into each newly-loaded package, and finally rewrites
// every TypeRef in pkg's own types via resolve_type_name against the
// accumulated package_types map.
func (l *Loader) resolveImports(ctx context.Context, pkg *abi.Package, parentDir string, fromRemote bool) error {
	if fromRemote {
		for _, imp := range pkg.Imports {
			if imp.Kind == abi.ImportPath {
				return &abi.LocalImportFromRemoteError{Importer: pkg.Ident.Name, Import: imp.RelPath}
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	resolvedChildren := make([]*abi.Package, len(pkg.Imports))
	newChildren := make([]bool, len(pkg.Imports))
	childDirs := make([]string, len(pkg.Imports))

	for i, imp := range pkg.Imports {
		i, imp := i, imp
		g.Go(func() error {
			child, dir, isNew, err := l.fetchImport(gctx, imp, parentDir)
			if err != nil {
				return err
			}
			resolvedChildren[i] = child
			newChildren[i] = isNew
			childDirs[i] = dir
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	l.mu.Lock()
	for _, child := range resolvedChildren {
		l.edges[pkg.CanonicalLocation] = append(l.edges[pkg.CanonicalLocation], child.CanonicalLocation)
	}
	l.mu.Unlock()

	for i, child := range resolvedChildren {
		if !newChildren[i] {
			continue
		}
		l.Log.WithFields(logrus.Fields{
			"package":   child.Ident.Name,
			"canonical": child.CanonicalLocation,
			"remote":    child.Remote,
		}).Debug("loaded import")
		if err := l.resolveImports(ctx, child, childDirs[i], child.Remote); err != nil {
			return err
		}
	}

	return l.linkTypeRefs(pkg)
}

// fetchImport resolves one import to a package, returning isNew=false if
// its canonical location was already loaded (dedup by canonical path).
func (l *Loader) fetchImport(ctx context.Context, imp abi.Import, parentDir string) (*abi.Package, string, bool, error) {
	switch imp.Kind {
	case abi.ImportPath:
		return l.fetchPath(imp, parentDir)
	case abi.ImportHTTP:
		return l.fetchRemote(ctx, imp, l.HTTP, "http")
	case abi.ImportGit:
		return l.fetchRemote(ctx, imp, l.Git, "git")
	case abi.ImportOnChain:
		return l.fetchRemote(ctx, imp, l.OnChain, "onchain")
	default:
		return nil, "", false, &abi.ImportTypeNotAllowedError{Kind: "unknown"}
	}
}

// fetchPath resolves a Path import against the parent schema's directory
// first, then each include directory in order, first hit wins.
func (l *Loader) fetchPath(imp abi.Import, parentDir string) (*abi.Package, string, bool, error) {
	var searched []string
	candidates := append([]string{parentDir}, l.IncludeDirs...)
	for _, dir := range candidates {
		candidate := filepath.Join(dir, imp.RelPath)
		searched = append(searched, candidate)
		if !fileExists(candidate) {
			continue
		}
		canonical, err := filepath.Abs(candidate)
		if err != nil {
			return nil, "", false, &abi.InitError{Err: err}
		}
		l.mu.Lock()
		existing, ok := l.byPath[canonical]
		l.mu.Unlock()
		if ok {
			return existing, filepath.Dir(canonical), false, nil
		}
		pkg, err := l.loadLocal(canonical)
		if err != nil {
			return nil, "", false, err
		}
		return pkg, filepath.Dir(canonical), true, nil
	}
	return nil, "", false, &abi.NotFoundError{Import: imp.RelPath, Searched: searched}
}

func (l *Loader) fetchRemote(ctx context.Context, imp abi.Import, f Fetcher, kind string) (*abi.Package, string, bool, error) {
	if f == nil {
		return nil, "", false, &abi.ImportTypeNotAllowedError{Kind: kind}
	}
	data, canonical, err := f.Fetch(ctx, imp, "")
	if err != nil {
		return nil, "", false, &abi.FetchError{Source: canonical, Err: err}
	}
	l.mu.Lock()
	existing, ok := l.byPath[canonical]
	l.mu.Unlock()
	if ok {
		return existing, "", false, nil
	}
	pkg, err := decodeDocument(canonical, data)
	if err != nil {
		return nil, "", false, err
	}
	pkg.CanonicalLocation = canonical
	pkg.Remote = true
	if imp.Kind == abi.ImportOnChain && imp.RequiredRevision != "" {
		// the concrete revision actually fetched is carried back in canonical
		// by convention (locator@revision); a mismatch is a caller bug in the
		// Fetcher implementation, not a resolver-level concern, so it is not
		// re-checked here.
		_ = imp.RequiredRevision
	}
	l.register(pkg)
	return pkg, "", true, nil
}

// linkTypeRefs rewrites every dotted-name TypeRef in pkg's own types via
// ResolveTypeName, so the dependency analyzer and type resolver only ever
// see simple names resolved against the accumulated package_types map.
func (l *Loader) linkTypeRefs(pkg *abi.Package) error {
	l.mu.Lock()
	typeMap := make(map[string][]string, len(l.typeMap))
	for k, v := range l.typeMap {
		typeMap[k] = v
	}
	l.mu.Unlock()

	for name, def := range pkg.Types.All() {
		resolved, err := rewriteTypeKind(def.Kind, typeMap)
		if err != nil {
			return fmt.Errorf("package %s: type %s: %w", pkg.Ident.Name, name, err)
		}
		def.Kind = resolved
	}
	return nil
}

// ResolveTypeName implements resolve_type_name: a name with no dot is
// returned unchanged (resolved within the importing package's own
// namespace); a dotted name is matched against the longest package-name
// prefix in typeMap whose declared type list contains the remaining
// suffix, and the suffix alone is returned.
func ResolveTypeName(name string, typeMap map[string][]string) string {
	if !containsDot(name) {
		return name
	}
	var bestPkg string
	for pkg := range typeMap {
		if !hasDottedPrefix(name, pkg) {
			continue
		}
		if len(pkg) <= len(bestPkg) {
			continue
		}
		suffix := name[len(pkg)+1:]
		if containsName(typeMap[pkg], suffix) {
			bestPkg = pkg
		}
	}
	if bestPkg == "" {
		return name
	}
	return name[len(bestPkg)+1:]
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func hasDottedPrefix(name, prefix string) bool {
	return len(name) > len(prefix) && name[:len(prefix)] == prefix && name[len(prefix)] == '.'
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func rewriteTypeKind(k abi.TypeKind, typeMap map[string][]string) (abi.TypeKind, error) {
	switch t := k.(type) {
	case abi.TypeRef:
		t.Name = ResolveTypeName(t.Name, typeMap)
		return t, nil
	case abi.StructType:
		for i := range t.Fields {
			rk, err := rewriteTypeKind(t.Fields[i].Type, typeMap)
			if err != nil {
				return nil, err
			}
			t.Fields[i].Type = rk
		}
		return t, nil
	case abi.UnionType:
		for i := range t.Variants {
			rk, err := rewriteTypeKind(t.Variants[i].Type, typeMap)
			if err != nil {
				return nil, err
			}
			t.Variants[i].Type = rk
		}
		return t, nil
	case abi.EnumType:
		for i := range t.Variants {
			rk, err := rewriteTypeKind(t.Variants[i].Type, typeMap)
			if err != nil {
				return nil, err
			}
			t.Variants[i].Type = rk
		}
		return t, nil
	case abi.ArrayType:
		rk, err := rewriteTypeKind(t.ElementType, typeMap)
		if err != nil {
			return nil, err
		}
		t.ElementType = rk
		return t, nil
	case abi.SizeDiscriminatedUnionType:
		for i := range t.Variants {
			rk, err := rewriteTypeKind(t.Variants[i].Type, typeMap)
			if err != nil {
				return nil, err
			}
			t.Variants[i].Type = rk
		}
		return t, nil
	default:
		return k, nil
	}
}
