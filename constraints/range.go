package constraints

import (
	"fmt"

	mmsemver "github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// rangeKind discriminates the three shapes a VersionRange can take: an
// ordinary range predicate, a pin to one specific version, or a global
// override that is meant to silence every other requirement on the same
// name (spec.md §3, §4.1's "global-override exception").
type rangeKind int

const (
	kindRange rangeKind = iota
	kindSpecific
	kindOverrideAll
)

// VersionRange is a range predicate over SemVer. It is constructed either
// from an arbitrary range expression (ParseVersionRange), or pinned to one
// version (Specific, OverrideAll).
type VersionRange struct {
	kind   rangeKind
	expr   string
	pinned SemVer
	raw    *mmsemver.Constraints
}

// ParseVersionRange parses a semver range expression (e.g. ">= 1.0, < 2.0").
func ParseVersionRange(expr string) (VersionRange, error) {
	c, err := mmsemver.NewConstraint(expr)
	if err != nil {
		return VersionRange{}, errors.Wrapf(err, "parsing version range %q", expr)
	}
	return VersionRange{kind: kindRange, expr: expr, raw: c}, nil
}

// Specific returns a VersionRange that admits exactly one version.
func Specific(v SemVer) VersionRange {
	return VersionRange{kind: kindSpecific, pinned: v, expr: "=" + v.String()}
}

// OverrideAll returns a VersionRange that pins to one version and, per
// spec.md §4.1, is meant to suppress every other requirement's constraint
// on the same package name during matching.
func OverrideAll(v SemVer) VersionRange {
	return VersionRange{kind: kindOverrideAll, pinned: v, expr: "!!=" + v.String()}
}

// IsSpecific reports whether this range admits exactly one version (either
// a plain pin or a global override).
func (r VersionRange) IsSpecific() bool {
	return r.kind == kindSpecific || r.kind == kindOverrideAll
}

// IsGlobalOverride reports whether this range is a global override.
func (r VersionRange) IsGlobalOverride() bool { return r.kind == kindOverrideAll }

// Pinned returns the pinned version and true if IsSpecific.
func (r VersionRange) Pinned() (SemVer, bool) {
	if r.IsSpecific() {
		return r.pinned, true
	}
	return SemVer{}, false
}

// Admits reports whether v satisfies the range predicate, ignoring
// prerelease policy (that is layered on by VersionRequirement.InRange).
// A prerelease that the range expression does not admit as written is
// tested by its release version instead, so 1.1.0-beta satisfies
// ">= 1.0.0" exactly when 1.1.0 does.
func (r VersionRange) Admits(v SemVer) bool {
	switch r.kind {
	case kindSpecific, kindOverrideAll:
		return v.Equal(r.pinned)
	default:
		if r.raw == nil {
			return false
		}
		if ok, _ := r.raw.Validate(v.raw()); ok || !v.IsPrerelease() {
			return ok
		}
		rel, err := mmsemver.NewVersion(fmt.Sprintf("%d.%d.%d", v.raw().Major(), v.raw().Minor(), v.raw().Patch()))
		if err != nil {
			return false
		}
		ok, _ := r.raw.Validate(rel)
		return ok
	}
}

// Includes reports whether r is a superset of o, i.e. every version o
// admits is also admitted by r. Used by the dependency-compression step of
// the requirement-merge (spec.md §4.2 step 1) to decide which of two
// ranges to retain, and by closed-requirement subsumption (§4.2 step 3).
//
// A precise superset test over arbitrary semver range expressions would
// require range-interval algebra the adapter does not implement; this
// approximates it with the common, practically sufficient cases: identical
// ranges, and one specific version contained in the other's range.
func (r VersionRange) Includes(o VersionRange) bool {
	if r.expr == o.expr {
		return true
	}
	if o.IsSpecific() {
		pin, _ := o.Pinned()
		return r.Admits(pin)
	}
	return false
}

func (r VersionRange) String() string { return r.expr }

// VersionRequirement combines a VersionRange with a prerelease admission
// policy, per spec.md §3.
type VersionRequirement struct {
	Range       VersionRange
	Prereleases PreReleaseStatus
}

// NewVersionRequirement builds a VersionRequirement from its two parts.
func NewVersionRequirement(r VersionRange, p PreReleaseStatus) VersionRequirement {
	return VersionRequirement{Range: r, Prereleases: p}
}

// InRange reports whether v is admitted: the range predicate must hold, and
// either the version is stable, the prerelease policy admits its label, or
// allowTransitivePrerelease forces admission (spec.md §4.1, §4.3).
func (r VersionRequirement) InRange(v SemVer, allowTransitivePrerelease bool) bool {
	if !r.Range.Admits(v) {
		return false
	}
	if !v.IsPrerelease() {
		return true
	}
	if allowTransitivePrerelease {
		return true
	}
	return r.Prereleases.Admits(v)
}

// IsGlobalOverride delegates to the underlying range.
func (r VersionRequirement) IsGlobalOverride() bool { return r.Range.IsGlobalOverride() }

// IsSpecific delegates to the underlying range.
func (r VersionRequirement) IsSpecific() bool { return r.Range.IsSpecific() }

func (r VersionRequirement) String() string { return r.Range.String() }
