package abi

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/coreos/go-semver/semver"
)

// PackageIdent identifies a schema's package, parsed from its dotted
// `package` field (e.g. "chain.token.v1") together with the separately
// declared abi-version integer and package-version semver string.
type PackageIdent struct {
	Name           string
	AbiVersion     int
	PackageVersion *semver.Version
}

// ParsePackageIdent validates name as a dotted identifier and parses
// version as a semver string, returning the combined PackageIdent.
func ParsePackageIdent(name string, abiVersion int, version string) (PackageIdent, error) {
	if err := ValidatePackageName(name); err != nil {
		return PackageIdent{}, err
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return PackageIdent{}, fmt.Errorf("package %q: invalid package-version %q: %w", name, version, err)
	}
	return PackageIdent{Name: name, AbiVersion: abiVersion, PackageVersion: v}, nil
}

// ValidatePackageName reports whether name is a well-formed dotted
// identifier: one or more dot-separated segments, each starting with a
// letter and containing only letters, digits, and hyphens.
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name must not be empty")
	}
	segments := strings.Split(name, ".")
	for _, seg := range segments {
		if err := validateSegment(seg); err != nil {
			return fmt.Errorf("package name %q: %w", name, err)
		}
	}
	return nil
}

func validateSegment(seg string) error {
	if seg == "" {
		return fmt.Errorf("empty segment")
	}
	for i, r := range seg {
		switch {
		case i == 0 && !unicode.IsLetter(r):
			return fmt.Errorf("segment %q must start with a letter", seg)
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			continue
		default:
			return fmt.Errorf("segment %q contains invalid character %q", seg, r)
		}
	}
	return nil
}

// String returns the canonical "name@package-version" form.
func (id PackageIdent) String() string {
	if id.PackageVersion == nil {
		return id.Name
	}
	return fmt.Sprintf("%s@%s", id.Name, id.PackageVersion.String())
}

// LessThan reports whether id's package-version precedes other's.
// Both must share the same Name; callers are responsible for that check.
func (id PackageIdent) LessThan(other PackageIdent) bool {
	if id.PackageVersion == nil || other.PackageVersion == nil {
		return false
	}
	return id.PackageVersion.LessThan(*other.PackageVersion)
}
