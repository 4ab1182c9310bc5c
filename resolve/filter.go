package resolve

import (
	"github.com/Kukkik42/Paket/constraints"
)

// FilterByRestrictions keeps a dependency iff the effective restriction r
// is NoRestriction, or the dependency's own restriction intersects r. This
// deliberately avoids canonicalizing And(r, dr); it only needs to know
// whether they overlap at all (spec.md §4.1).
func FilterByRestrictions(r constraints.FrameworkRestriction, deps []DependencyEdge) []DependencyEdge {
	if r.IsNoRestriction() {
		return deps
	}
	out := make([]DependencyEdge, 0, len(deps))
	for _, d := range deps {
		if r.IntersectsWith(d.FrameworkRestrictions) {
			out = append(out, d)
		}
	}
	return out
}

// FindFirstIncompatibility returns the first dependency edge in deps that
// names the already-resolved package but whose version requirement does
// not admit the resolved version, or ok=false if none conflicts.
// allowTransitivePrereleases is true iff some requirement for resolved's
// name among closed ∪ open has its transitive-prerelease flag set
// (spec.md §4.1).
func FindFirstIncompatibility(step *ResolverStep, deps []DependencyEdge, resolved *ResolvedPackage) (DependencyEdge, bool) {
	allow := transitivePrereleaseAllowed(step, resolved.Name)
	for _, d := range deps {
		if !d.Name.Equal(resolved.Name) {
			continue
		}
		if !d.VersionRequirement.InRange(resolved.Version, allow) {
			return d, true
		}
	}
	return DependencyEdge{}, false
}

func transitivePrereleaseAllowed(step *ResolverStep, name constraints.PackageName) bool {
	allow := false
	step.Closed.Each(func(r *PackageRequirement) bool {
		if r.Name.Equal(name) && r.TransitivePrerelease {
			allow = true
			return true
		}
		return false
	})
	if allow {
		return true
	}
	step.Open.Each(func(r *PackageRequirement) bool {
		if r.Name.Equal(name) && r.TransitivePrerelease {
			allow = true
			return true
		}
		return false
	})
	return allow
}
