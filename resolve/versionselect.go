package resolve

import (
	"context"
	"sort"

	"github.com/Kukkik42/Paket/constraints"
	"github.com/Kukkik42/Paket/workqueue"
)

// ChooseStrategy implements spec.md §4.4: it decides which resolver
// strategy governs the candidate ordering for current, given every other
// open requirement on the same name (sameName, which must include
// current) and the two resolve-wide defaults.
func ChooseStrategy(current *PackageRequirement, sameName []*PackageRequirement, globalDirect, globalTransitive constraints.ResolverStrategy) constraints.ResolverStrategy {
	if current.Parent.IsRoot && len(sameName) == 1 {
		return current.Settings.StrategyOverride.Combine(constraints.OverrideStrategy(globalDirect)).OrDefault(constraints.Max)
	}

	sorted := sortSameNameForStrategy(sameName, globalTransitive)
	acc := constraints.NoOverride()
	for _, r := range sorted {
		acc = acc.Combine(r.Settings.StrategyOverride)
	}
	return acc.Combine(constraints.OverrideStrategy(globalTransitive)).OrDefault(constraints.Max)
}

// sortSameNameForStrategy orders R by (depth ascending, strategy =
// globalTransitive descending, strategy = Some Max descending) so that the
// left-biased fold in ChooseStrategy favours the shallowest, most globally
// aligned requirement's override first.
func sortSameNameForStrategy(reqs []*PackageRequirement, globalTransitive constraints.ResolverStrategy) []*PackageRequirement {
	out := make([]*PackageRequirement, len(reqs))
	copy(out, reqs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		aMatch := a.Settings.StrategyOverride.IsSet() && a.Settings.StrategyOverride.Value() == globalTransitive
		bMatch := b.Settings.StrategyOverride.IsSet() && b.Settings.StrategyOverride.Value() == globalTransitive
		if aMatch != bMatch {
			return aMatch
		}
		aMax := a.Settings.StrategyOverride.IsSet() && a.Settings.StrategyOverride.Value() == constraints.Max
		bMax := b.Settings.StrategyOverride.IsSet() && b.Settings.StrategyOverride.Value() == constraints.Max
		if aMax != bMax {
			return aMax
		}
		return false
	})
	return out
}

// CandidateSelection is the result handed back to the state machine: the
// ordered candidate list, whether it came from a global override, and
// whether the empty-fallback surfaced a non-empty prerelease-admitting set
// that should only be used after a relaxed-mode retry (spec.md §4.3's
// try-relaxed signal, §7).
type CandidateSelection struct {
	Candidates []VersionCache
	TryRelaxed bool
}

// effectivePrereleasePolicy implements the per-requirement policy spec.md
// §4.3's empty-fallback (b) consults: a root requirement that didn't
// already ask for every prerelease keeps its own (possibly still
// restrictive) policy; everyone else is treated as admitting all of them.
func effectivePrereleasePolicy(r *PackageRequirement) constraints.PreReleaseStatus {
	if r.Parent.IsRoot && !r.VersionRequirement.Prereleases.IsAllReleases() {
		return r.VersionRequirement.Prereleases
	}
	return constraints.AllPrereleases()
}

func admitsWithPolicy(vr constraints.VersionRequirement, v constraints.SemVer, policy constraints.PreReleaseStatus) bool {
	if !vr.Range.Admits(v) {
		return false
	}
	if !v.IsPrerelease() {
		return true
	}
	return policy.Admits(v)
}

// filterByAllRequirements keeps a candidate iff every requirement in reqs
// admits it, optionally forcing transitive-prerelease admission.
func filterByAllRequirements(all []VersionCache, reqs []*PackageRequirement, allowTransitivePrerelease bool) []VersionCache {
	out := make([]VersionCache, 0, len(all))
	for _, vc := range all {
		ok := true
		for _, r := range reqs {
			if !r.VersionRequirement.InRange(vc.Version, allowTransitivePrerelease) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, vc)
		}
	}
	return out
}

// filterByPerRequirementPolicy implements empty-fallback (b).
func filterByPerRequirementPolicy(all []VersionCache, reqs []*PackageRequirement) []VersionCache {
	out := make([]VersionCache, 0, len(all))
	for _, vc := range all {
		ok := true
		for _, r := range reqs {
			if !admitsWithPolicy(r.VersionRequirement, vc.Version, effectivePrereleasePolicy(r)) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, vc)
		}
	}
	return out
}

func allArePrerelease(all []VersionCache) bool {
	if len(all) == 0 {
		return false
	}
	for _, vc := range all {
		if !vc.Version.IsPrerelease() {
			return false
		}
	}
	return true
}

// orderCandidates honours the resolver strategy (spec.md §4.3's final
// ordering rule) then prepends the oracle's preferred versions, deduped
// against the strategy-sorted remainder.
func orderCandidates(all, preferred []VersionCache, strategy constraints.ResolverStrategy) []VersionCache {
	sorted := make([]VersionCache, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool {
		if strategy == constraints.Min {
			return sorted[i].Version.LessThan(sorted[j].Version)
		}
		return sorted[j].Version.LessThan(sorted[i].Version)
	})

	seen := make(map[string]struct{}, len(preferred))
	out := make([]VersionCache, 0, len(sorted)+len(preferred))
	for _, vc := range preferred {
		seen[vc.Version.String()] = struct{}{}
		out = append(out, vc)
	}
	for _, vc := range sorted {
		if _, dup := seen[vc.Version.String()]; dup {
			continue
		}
		out = append(out, vc)
	}
	return out
}

// filterPriorEntry implements spec.md §4.3's "prior filtered-versions
// entry" branch.
func filterPriorEntry(prior FilteredVersions, current *PackageRequirement, relaxed bool) CandidateSelection {
	if prior.GlobalOverride {
		return CandidateSelection{Candidates: prior.Candidates}
	}

	disallowPrereleases := current.Parent.IsRoot
	strict := make([]VersionCache, 0, len(prior.Candidates))
	for _, vc := range prior.Candidates {
		if disallowPrereleases && vc.Version.IsPrerelease() {
			continue
		}
		if !current.VersionRequirement.InRange(vc.Version, false) {
			continue
		}
		strict = append(strict, vc)
	}
	if len(strict) > 0 {
		return CandidateSelection{Candidates: strict}
	}

	loose := make([]VersionCache, 0, len(prior.Candidates))
	for _, vc := range prior.Candidates {
		if !current.VersionRequirement.InRange(vc.Version, true) {
			continue
		}
		loose = append(loose, vc)
	}
	if len(loose) == 0 {
		return CandidateSelection{}
	}
	if relaxed {
		return CandidateSelection{Candidates: loose}
	}
	return CandidateSelection{Candidates: loose, TryRelaxed: true}
}

// SelectCandidates implements spec.md §4.3 in full: it consults and
// populates step.FilteredVersions for current.Name, fetching from the
// bridge only on the first encounter of that name within this step.
// sameName must contain every open requirement sharing current's name,
// including current itself.
func SelectCandidates(ctx context.Context, step *ResolverStep, current *PackageRequirement, sameName []*PackageRequirement, bridge *Bridge, strategy constraints.ResolverStrategy) (CandidateSelection, error) {
	key := keyFor(current.Name)

	if prior, ok := step.FilteredVersions[key]; ok {
		return filterPriorEntry(prior, current, step.Relax), nil
	}

	if current.VersionRequirement.IsSpecific() {
		// This filters only against current's own pinned version, not
		// against the rest of sameName — unlike the general branch below.
		// A sibling open requirement that conflicts with this pin is
		// caught later by conflictsWithClosed/FindFirstIncompatibility and
		// repaired by backtracking rather than rejected here.
		pinned, _ := current.VersionRequirement.Range.Pinned()

		h := bridge.SubmitListVersions(current.Sources, current.Name, strategy, workqueue.LikelyRequired)
		listing, err := bridge.AwaitVersions(ctx, h)
		if err != nil {
			return CandidateSelection{}, err
		}

		var candidates []VersionCache
		for _, vc := range listing.All {
			if vc.Version.Equal(pinned) {
				candidates = append(candidates, vc)
			}
		}
		if len(candidates) == 0 {
			var srcs []constraints.PackageSource
			if !current.Parent.IsRoot {
				srcs = constraints.PrependDeduped(current.Parent.Source, current.Sources)
			} else {
				srcs = constraints.SortSourcesForSelection(current.Sources)
			}
			candidates = []VersionCache{{Version: pinned, CandidateSources: srcs, AssumedVersion: true}}
		}

		fv := FilteredVersions{
			Candidates:     orderCandidates(candidates, listing.Preferred, strategy),
			GlobalOverride: current.VersionRequirement.IsGlobalOverride(),
		}
		step.FilteredVersions[key] = fv
		return CandidateSelection{Candidates: fv.Candidates}, nil
	}

	h := bridge.SubmitListVersions(current.Sources, current.Name, strategy, workqueue.LikelyRequired)
	listing, err := bridge.AwaitVersions(ctx, h)
	if err != nil {
		return CandidateSelection{}, err
	}
	if len(listing.All) == 0 {
		return CandidateSelection{}, &NoVersionsError{Name: current.Name, Range: current.VersionRequirement.String(), Sources: current.Sources}
	}

	filtered := filterByAllRequirements(listing.All, sameName, false)
	if len(filtered) == 0 {
		if !current.Parent.IsRoot && current.TransitivePrerelease {
			filtered = filterByAllRequirements(listing.All, sameName, true)
		} else if allArePrerelease(listing.All) {
			filtered = filterByPerRequirementPolicy(listing.All, sameName)
		}
	}

	fv := FilteredVersions{
		Candidates:     orderCandidates(filtered, listing.Preferred, strategy),
		GlobalOverride: false,
	}
	step.FilteredVersions[key] = fv
	return CandidateSelection{Candidates: fv.Candidates}, nil
}
