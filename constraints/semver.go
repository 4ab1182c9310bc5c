package constraints

import (
	"fmt"

	mmsemver "github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// SemVer is a totally ordered version, optionally carrying a prerelease
// label. It is a thin wrapper around Masterminds/semver.Version so that the
// rest of the resolver never imports that package directly.
type SemVer struct {
	v *mmsemver.Version
}

// ParseSemVer parses a version string into a SemVer.
func ParseSemVer(s string) (SemVer, error) {
	v, err := mmsemver.NewVersion(s)
	if err != nil {
		return SemVer{}, errors.Wrapf(err, "parsing version %q", s)
	}
	return SemVer{v: v}, nil
}

// MustSemVer parses s and panics on failure. Intended for literals in tests
// and constructor call sites, never for oracle-supplied data.
func MustSemVer(s string) SemVer {
	v, err := ParseSemVer(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsPrerelease reports whether the version carries a prerelease label.
func (v SemVer) IsPrerelease() bool {
	return v.v != nil && v.v.Prerelease() != ""
}

// Prerelease returns the prerelease label, or "" if none.
func (v SemVer) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than o.
func (v SemVer) Compare(o SemVer) int {
	if v.v == nil || o.v == nil {
		return 0
	}
	return v.v.Compare(o.v)
}

// LessThan reports whether v orders strictly before o.
func (v SemVer) LessThan(o SemVer) bool { return v.Compare(o) < 0 }

// Equal reports exact version equality (including prerelease label).
func (v SemVer) Equal(o SemVer) bool { return v.Compare(o) == 0 }

func (v SemVer) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

func (v SemVer) IsZero() bool { return v.v == nil }

func (v SemVer) raw() *mmsemver.Version { return v.v }

var _ fmt.Stringer = SemVer{}
