package resolve

import (
	"testing"

	"github.com/Kukkik42/Paket/constraints"
)

func reqNamed(name string) *PackageRequirement {
	return NewRootRequirement(
		constraints.PackageName(name),
		constraints.VersionRequirement{},
		nil,
		RequirementSettings{FrameworkRestrictions: constraints.Explicit(constraints.NoRestriction())},
	)
}

func reqNamedRange(name, rangeExpr string) *PackageRequirement {
	return NewRootRequirement(
		constraints.PackageName(name),
		constraints.NewVersionRequirement(mustRange(rangeExpr), constraints.NoPrereleases()),
		nil,
		RequirementSettings{FrameworkRestrictions: constraints.Explicit(constraints.NoRestriction())},
	)
}

func TestConflictTrackerBoostsHistoricallyTroublesomeNames(t *testing.T) {
	tracker := NewConflictTracker(nil)
	x := reqNamed("X")
	y := reqNamed("Y")

	for i := 0; i < 3; i++ {
		tracker.BoostConflicts(map[string]FilteredVersions{}, x, NewRequirementSet(x).members)
	}

	open := NewRequirementSet(y, x).members
	picked := tracker.GetCurrentRequirement(open, nil)
	if !picked.Name.Equal(x.Name) {
		t.Fatalf("expected X (3 prior conflicts) to be picked before untouched Y, got %s", picked.Name)
	}
}

func TestConflictTrackerGetConflictsEmptyWhenNothingReplays(t *testing.T) {
	tracker := NewConflictTracker(nil)
	step := NewInitialStep(nil, false)
	current := reqNamed("Z")
	got := tracker.GetConflicts(step, current)
	if got.Cardinality() != 0 {
		t.Fatalf("expected no replay against an empty known-conflicts set, got %v", got)
	}
}

// TestGetCurrentRequirementIsTotallyOrderedAcrossSameName proves the
// selector no longer treats two distinct same-name requirements as
// interchangeable: with history, depth, and name all tied, it must break
// the tie on the requirement's own range text regardless of which order
// the candidates are fed in (standing in for mapset's nondeterministic
// iteration order), so which one becomes current is reproducible run to
// run.
func TestGetCurrentRequirementIsTotallyOrderedAcrossSameName(t *testing.T) {
	tracker := NewConflictTracker(nil)

	low := reqNamedRange("C", "<2.0.0")
	high := reqNamedRange("C", ">=2.0.0")

	pickedA := tracker.GetCurrentRequirement(NewRequirementSet(low, high).members, nil)
	pickedB := tracker.GetCurrentRequirement(NewRequirementSet(high, low).members, nil)

	if pickedA.VersionRequirement.String() != pickedB.VersionRequirement.String() {
		t.Fatalf("selection depends on input order: got %q vs %q", pickedA.VersionRequirement, pickedB.VersionRequirement)
	}
	if pickedA.VersionRequirement.String() != low.VersionRequirement.String() {
		t.Fatalf("expected the lexicographically smaller range text to win deterministically, got %q", pickedA.VersionRequirement)
	}
}

func TestConflictTrackerResetClearsHistory(t *testing.T) {
	tracker := NewConflictTracker(nil)
	x := reqNamed("X")
	tracker.BoostConflicts(map[string]FilteredVersions{}, x, NewRequirementSet(x).members)
	if tracker.History(x.Name) == 0 {
		t.Fatalf("expected history to record the conflict")
	}
	tracker.Reset()
	if tracker.History(x.Name) != 0 {
		t.Fatalf("expected Reset to clear conflict-history")
	}
}
