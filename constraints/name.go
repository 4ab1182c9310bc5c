// Package constraints is a thin facade over version-range and
// framework-restriction algebra. The resolver core never parses a version
// string or evaluates a framework lattice directly; it only calls through
// the types in this package, which in turn delegate to Masterminds/semver
// and a small set-backed framework lattice.
package constraints

import "strings"

// PackageName is an opaque package identifier with case-insensitive
// equality. The casing a resolution ultimately exposes is whichever one
// was first bound to a resolved package (see resolve.CleanupNames).
type PackageName string

// Equal reports whether two names are the same package, ignoring case.
func (n PackageName) Equal(o PackageName) bool {
	return strings.EqualFold(string(n), string(o))
}

// Key returns a case-folded comparison key, suitable for use as a map key
// when names must be deduplicated case-insensitively.
func (n PackageName) Key() string {
	return strings.ToLower(string(n))
}

func (n PackageName) String() string { return string(n) }
