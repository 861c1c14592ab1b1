package abi

import "fmt"

// NotFoundError reports that a schema could not be located by the loader.
// Searched records every include directory and parent-directory candidate
// that was tried, in order, so operators can see exactly why resolution
// failed instead of guessing at a single boolean miss.
type NotFoundError struct {
	Import   string
	Searched []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("schema %q not found (searched %d locations)", e.Import, len(e.Searched))
}

// ParseError reports that a schema document failed to parse.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CyclicDependencyError reports a cycle in the package fetch graph.
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic package dependency: %v", e.Chain)
}

// VersionConflictError reports two different versions of the same package being loaded.
type VersionConflictError struct {
	Package string
	First   string
	Second  string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("package %s: version conflict (%s vs %s)", e.Package, e.First, e.Second)
}

// LocalImportFromRemoteError reports a Path import attempted from a schema
// that was itself loaded from a remote source.
type LocalImportFromRemoteError struct {
	Importer string
	Import   string
}

func (e *LocalImportFromRemoteError) Error() string {
	return fmt.Sprintf("%s: local path import %q forbidden from a remotely-loaded schema", e.Importer, e.Import)
}

// ImportTypeNotAllowedError reports an import source kind disallowed by the
// resolver configuration in use (e.g. a path-only resolver given a Git import).
type ImportTypeNotAllowedError struct {
	Kind string
}

func (e *ImportTypeNotAllowedError) Error() string {
	return fmt.Sprintf("import kind %q not allowed by this resolver", e.Kind)
}

// FetchError wraps a transport-level failure from an import source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Source, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// InitError reports a resolver or fetcher that failed to initialize (e.g. a
// cache directory that could not be created).
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return fmt.Sprintf("init: %v", e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// RevisionMismatchError reports an on-chain import whose required revision
// did not match the actual revision found.
type RevisionMismatchError struct {
	Required string
	Actual   string
	Reason   string
}

func (e *RevisionMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("revision mismatch: required %q, actual %q (%s)", e.Required, e.Actual, e.Reason)
	}
	return fmt.Sprintf("revision mismatch: required %q, actual %q", e.Required, e.Actual)
}

// CircularTypeReferenceError reports a cycle discovered by the dependency analyzer.
type CircularTypeReferenceError struct {
	Cycle []string
}

func (e *CircularTypeReferenceError) Error() string {
	return fmt.Sprintf("circular type reference: %v", e.Cycle)
}

// LayoutViolationError reports a non-tail variable-sized field.
type LayoutViolationError struct {
	Type  string
	Field string
	Chain []string
}

func (e *LayoutViolationError) Error() string {
	return fmt.Sprintf("type %s: field %q is variable-sized but not in tail position (chain: %v)", e.Type, e.Field, e.Chain)
}

// UnknownTypeReferenceError reports a TypeRef to a name with no matching TypeDef.
type UnknownTypeReferenceError struct {
	Name string
}

func (e *UnknownTypeReferenceError) Error() string {
	return fmt.Sprintf("unknown type reference %q", e.Name)
}

// DuplicateTypeNameError reports two TypeDefs declaring the same name within a package.
type DuplicateTypeNameError struct {
	Name string
}

func (e *DuplicateTypeNameError) Error() string {
	return fmt.Sprintf("duplicate type name %q", e.Name)
}

// UnresolvedTypeError reports a type that could not be resolved (e.g. its
// TypeRef target failed to resolve first).
type UnresolvedTypeError struct {
	Name string
	Err  error
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("unresolved type %q: %v", e.Name, e.Err)
}

func (e *UnresolvedTypeError) Unwrap() error { return e.Err }

// AlignmentViolationError reports a resolved type whose alignment is not 1.
type AlignmentViolationError struct {
	Type      string
	Alignment uint64
}

func (e *AlignmentViolationError) Error() string {
	return fmt.Sprintf("type %s: alignment %d != 1 (explicit alignment is not yet supported)", e.Type, e.Alignment)
}

// IrBuildError reports a failure while lowering a ResolvedType to IR.
type IrBuildError struct {
	Type   string
	Reason string
}

func (e *IrBuildError) Error() string {
	return fmt.Sprintf("building IR for %s: %s", e.Type, e.Reason)
}

// MissingIrParameterError reports a FieldRef with no matching parameter at evaluation time.
type MissingIrParameterError struct {
	Type  string
	Param string
}

func (e *MissingIrParameterError) Error() string {
	return fmt.Sprintf("%s: missing IR parameter %q", e.Type, e.Param)
}

// ArithmeticOverflowError reports a checked-arithmetic node overflowing u64.
type ArithmeticOverflowError struct {
	Type string
	Op   string
}

func (e *ArithmeticOverflowError) Error() string {
	return fmt.Sprintf("%s: arithmetic overflow in %s", e.Type, e.Op)
}

// InvalidTagValueError reports a Switch node with no matching case and no default.
type InvalidTagValueError struct {
	Type  string
	Tag   string
	Value uint64
}

func (e *InvalidTagValueError) Error() string {
	return fmt.Sprintf("%s: tag %q has no matching case for value %d", e.Type, e.Tag, e.Value)
}

// BufferTooSmallError reports that a buffer is shorter than a type's computed footprint.
type BufferTooSmallError struct {
	Type      string
	Required  uint64
	Available uint64
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("%s: buffer too small: need %d bytes, have %d", e.Type, e.Required, e.Available)
}

// UnsupportedEndiannessError reports an IR node declaring big-endian wire encoding.
type UnsupportedEndiannessError struct {
	Type string
}

func (e *UnsupportedEndiannessError) Error() string {
	return fmt.Sprintf("%s: unsupported endianness (only little-endian is supported)", e.Type)
}

// UnsupportedOperationError reports an IR node the interpreter cannot evaluate directly.
type UnsupportedOperationError struct {
	Description string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation: %s", e.Description)
}

// UnknownTypeError reports a CallNested referencing a type absent from the IR index.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string { return fmt.Sprintf("unknown type %q", e.Type) }

// NegativeDynamicParamError reports a dynamic parameter that decoded to a
// negative value where only non-negative counts/sizes are meaningful.
type NegativeDynamicParamError struct {
	Param string
}

func (e *NegativeDynamicParamError) Error() string {
	return fmt.Sprintf("dynamic parameter %q decoded to a negative value", e.Param)
}

// UnsupportedDynamicParamError reports a dynamic parameter of a primitive
// type the extractor does not know how to peel (e.g. a float used as a count).
type UnsupportedDynamicParamError struct {
	Param string
	Kind  string
}

func (e *UnsupportedDynamicParamError) Error() string {
	return fmt.Sprintf("dynamic parameter %q has unsupported kind %s", e.Param, e.Kind)
}

// MissingRootTypeError reports a reflect_instruction/account/event/errors
// call against a schema with no matching program-metadata root type.
type MissingRootTypeError struct {
	Root string
}

func (e *MissingRootTypeError) Error() string {
	return fmt.Sprintf("schema declares no root type for %q", e.Root)
}

// DecodeError reports that decoding failed after the IR validated the
// buffer's length, indicating a schema/data mismatch rather than a
// straightforward size violation.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Type, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }
