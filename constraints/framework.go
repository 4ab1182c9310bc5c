package constraints

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Framework is an opaque target-framework moniker (e.g. "net6.0",
// "netstandard2.0"). The resolver core never interprets these strings; it
// only intersects and unions the sets a FrameworkRestriction represents.
type Framework string

// FrameworkRestriction is a boolean-algebra element over sets of
// Frameworks: either the universal "no restriction" element, or a finite
// set of explicitly represented frameworks. And/Or are the meet/join of
// that algebra (spec.md §3).
type FrameworkRestriction struct {
	universal bool
	set       mapset.Set[Framework]
}

// NoRestriction is the universal element: it represents every framework.
func NoRestriction() FrameworkRestriction {
	return FrameworkRestriction{universal: true}
}

// RestrictTo builds a FrameworkRestriction representing exactly the given
// frameworks.
func RestrictTo(fws ...Framework) FrameworkRestriction {
	return FrameworkRestriction{set: mapset.NewSet(fws...)}
}

// IsNoRestriction reports whether r is the universal element.
func (r FrameworkRestriction) IsNoRestriction() bool { return r.universal }

// RepresentedFrameworks returns the set of frameworks this restriction
// represents. For NoRestriction this is conceptually "all frameworks"; the
// adapter has no enumerable universe to hand back, so callers that need to
// test intersection against NoRestriction should special-case it via
// IsNoRestriction rather than iterating RepresentedFrameworks.
func (r FrameworkRestriction) RepresentedFrameworks() mapset.Set[Framework] {
	if r.universal {
		return mapset.NewSet[Framework]()
	}
	return r.set.Clone()
}

// And is the meet of the algebra: the frameworks represented by both.
func (r FrameworkRestriction) And(o FrameworkRestriction) FrameworkRestriction {
	switch {
	case r.universal && o.universal:
		return NoRestriction()
	case r.universal:
		return FrameworkRestriction{set: o.set.Clone()}
	case o.universal:
		return FrameworkRestriction{set: r.set.Clone()}
	default:
		return FrameworkRestriction{set: r.set.Intersect(o.set)}
	}
}

// Or is the join of the algebra: the frameworks represented by either.
func (r FrameworkRestriction) Or(o FrameworkRestriction) FrameworkRestriction {
	if r.universal || o.universal {
		return NoRestriction()
	}
	return FrameworkRestriction{set: r.set.Union(o.set)}
}

// IntersectsWith reports whether r and o represent at least one common
// framework; NoRestriction intersects with everything including itself.
// This backs the dependency-set filter of spec.md §4.1.
func (r FrameworkRestriction) IntersectsWith(o FrameworkRestriction) bool {
	if r.universal || o.universal {
		return true
	}
	return r.set.Intersect(o.set).Cardinality() > 0
}

// Equal reports structural equality, used by the open/closed requirement
// subsumption checks of spec.md §4.2.
func (r FrameworkRestriction) Equal(o FrameworkRestriction) bool {
	if r.universal != o.universal {
		return false
	}
	if r.universal {
		return true
	}
	return r.set.Equal(o.set)
}

// FrameworkRestrictionsSetting is the two-state variant of spec.md §3: a
// package's effective restriction is either pinned explicitly, or left for
// the (external, out-of-scope) project-file deducer to auto-detect.
type FrameworkRestrictionsSetting struct {
	autoDetect bool
	explicit   FrameworkRestriction
}

// Explicit pins the setting to a concrete restriction.
func Explicit(r FrameworkRestriction) FrameworkRestrictionsSetting {
	return FrameworkRestrictionsSetting{explicit: r}
}

// AutoDetect leaves the restriction to be resolved by the caller's project
// analysis, which lies outside the resolver core.
func AutoDetect() FrameworkRestrictionsSetting {
	return FrameworkRestrictionsSetting{autoDetect: true}
}

// Resolve returns the explicit restriction, or fallback if this setting is
// AutoDetect (the resolver core cannot itself auto-detect; it always needs
// a concrete restriction to filter by, so AutoDetect resolves to whatever
// the caller determined and threaded in as fallback).
func (s FrameworkRestrictionsSetting) Resolve(fallback FrameworkRestriction) FrameworkRestriction {
	if s.autoDetect {
		return fallback
	}
	return s.explicit
}

// IsAutoDetect reports whether this setting defers to AutoDetect.
func (s FrameworkRestrictionsSetting) IsAutoDetect() bool { return s.autoDetect }

// Equal reports structural equality: two AutoDetect settings are always
// equal to each other (both defer the same way), two Explicit settings are
// equal iff their restrictions are, and the two kinds are never equal to
// each other. Used by the open/closed requirement subsumption checks of
// spec.md §4.2, which must not treat a yet-unresolved AutoDetect
// requirement as a duplicate of an already-pinned Explicit one.
func (s FrameworkRestrictionsSetting) Equal(o FrameworkRestrictionsSetting) bool {
	if s.autoDetect != o.autoDetect {
		return false
	}
	if s.autoDetect {
		return true
	}
	return s.explicit.Equal(o.explicit)
}
