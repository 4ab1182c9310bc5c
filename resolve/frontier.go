package resolve

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Kukkik42/Paket/constraints"
)

// compressDependencies implements spec.md §4.2 step 1: duplicate entries
// for the same package name are merged when they share a prerelease
// policy (their framework restrictions Or'd together, the superset range
// retained), and simply overwritten by the later occurrence otherwise.
func compressDependencies(deps []DependencyEdge) []DependencyEdge {
	order := make([]constraints.PackageName, 0, len(deps))
	byName := make(map[string]DependencyEdge, len(deps))

	for _, d := range deps {
		key := d.Name.Key()
		prev, ok := byName[key]
		if !ok {
			order = append(order, d.Name)
			byName[key] = d
			continue
		}

		if prev.VersionRequirement.Prereleases.Equal(d.VersionRequirement.Prereleases) {
			merged := prev
			merged.FrameworkRestrictions = prev.FrameworkRestrictions.Or(d.FrameworkRestrictions)
			switch {
			case prev.VersionRequirement.Range.Includes(d.VersionRequirement.Range):
				// keep prev's (superset) range
			case d.VersionRequirement.Range.Includes(prev.VersionRequirement.Range):
				merged.VersionRequirement.Range = d.VersionRequirement.Range
			default:
				merged.VersionRequirement.Range = d.VersionRequirement.Range
			}
			byName[key] = merged
		} else {
			byName[key] = d
		}
	}

	out := make([]DependencyEdge, 0, len(order))
	for _, n := range order {
		out = append(out, byName[n.Key()])
	}
	return out
}

// narrowRestriction intersects a dependency's own declared restriction
// with the two scoping restrictions the requirement-merge threads through
// it (spec.md §4.2 step 2): the explored package's own effective
// restriction, then the global restriction. If the result collapses to
// NoRestriction, the explored package's restriction is used instead, so a
// dependency declared without its own restriction doesn't silently widen
// past the scope it was discovered under.
func narrowRestriction(dr, exploredRestriction, global constraints.FrameworkRestriction) constraints.FrameworkRestriction {
	fr := dr.And(exploredRestriction).And(global)
	if fr.IsNoRestriction() {
		return exploredRestriction
	}
	return fr
}

// subsumedByClosed implements spec.md §4.2 step 3. A closed global override
// subsumes a new same-name requirement regardless of framework restriction
// — an override pins the package for the whole resolution, not just the
// framework it happened to first appear under — so that check runs before,
// not behind, the restriction-equality gate the other two cases need.
func subsumedByClosed(step *ResolverStep, n *PackageRequirement) bool {
	subsumed := false
	step.Closed.Each(func(c *PackageRequirement) bool {
		if !c.Name.Equal(n.Name) {
			return false
		}
		if c.VersionRequirement.IsGlobalOverride() {
			subsumed = true
			return true
		}
		if !c.Settings.FrameworkRestrictions.Equal(n.Settings.FrameworkRestrictions) {
			return false
		}
		switch {
		case c.VersionRequirement.Range.String() == n.VersionRequirement.Range.String():
			subsumed = true
		case c.VersionRequirement.Range.Includes(n.VersionRequirement.Range):
			subsumed = true
		}
		return subsumed
	})
	return subsumed
}

// dupInOpen implements spec.md §4.2 step 4, with the same global-override
// precedence as subsumedByClosed above.
func dupInOpen(open mapset.Set[*PackageRequirement], n *PackageRequirement) bool {
	dup := false
	open.Each(func(o *PackageRequirement) bool {
		if !o.Name.Equal(n.Name) {
			return false
		}
		if o.VersionRequirement.IsGlobalOverride() {
			dup = true
			return true
		}
		if !o.Settings.FrameworkRestrictions.Equal(n.Settings.FrameworkRestrictions) {
			return false
		}
		if o.VersionRequirement.Range.String() == n.VersionRequirement.Range.String() {
			dup = true
		}
		return dup
	})
	return dup
}

// CalcOpenRequirements computes the next open-requirement frontier after
// accepting exploredPackage as the resolution of `satisfied` (spec.md
// §4.2). global is the resolver-wide framework restriction setting.
//
// It panics via a returned error, not a runtime panic, when the new open
// set is identical to step.Open — spec.md §4.6 calls this an invariant
// violation that should never occur and must abort the search.
func CalcOpenRequirements(step *ResolverStep, exploredPackage *ResolvedPackage, satisfied *PackageRequirement, global constraints.FrameworkRestriction) (mapset.Set[*PackageRequirement], error) {
	residual := step.Open.Clone()
	residual.Remove(satisfied)

	compressed := compressDependencies(exploredPackage.Dependencies)

	next := residual.Clone()
	exploredRestriction := exploredPackage.InstallSettings.FrameworkRestrictions

	for _, d := range compressed {
		fr := narrowRestriction(d.FrameworkRestrictions, exploredRestriction, global)

		graph := satisfied.Graph.Clone()
		graph.Add(satisfied)

		nr := &PackageRequirement{
			Name:               d.Name,
			VersionRequirement: d.VersionRequirement,
			Sources:            satisfied.Sources,
			Settings: RequirementSettings{
				FrameworkRestrictions: constraints.Explicit(fr),
			},
			Parent:               PackageParent(exploredPackage.Name, exploredPackage.Version, exploredPackage.Source),
			Graph:                graph,
			Depth:                satisfied.Depth + 1,
			TransitivePrerelease: satisfied.TransitivePrerelease && exploredPackage.Version.IsPrerelease(),
		}

		if subsumedByClosed(step, nr) {
			continue
		}
		if dupInOpen(next, nr) {
			continue
		}
		next.Add(nr)
	}

	if setsEqual(next, step.Open) {
		return nil, &InvariantViolationError{Detail: "calcOpenRequirements produced an unchanged open set"}
	}

	return next, nil
}

func setsEqual(a, b mapset.Set[*PackageRequirement]) bool {
	if a.Cardinality() != b.Cardinality() {
		return false
	}
	equal := true
	a.Each(func(r *PackageRequirement) bool {
		if !b.Contains(r) {
			equal = false
			return true
		}
		return false
	})
	return equal
}
