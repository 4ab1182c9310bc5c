package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Kukkik42/Paket/constraints"
)

// TestResolveSoundnessEveryDependencyEdgeIsSatisfiedByItsResolvedTarget
// checks spec.md §8 property 1: for every resolved package, every one of
// its (restriction-surviving) dependency edges names a package that is
// itself resolved to a version within that edge's requirement.
func TestResolveSoundnessEveryDependencyEdgeIsSatisfiedByItsResolvedTarget(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0", "2.0.0")
	o.addVersions("B", "1.0.0", "2.0.0")
	o.addVersions("C", "1.0.0", "2.0.0")
	o.addDeps("A", "2.0.0", fakeDep{"B", ">=1.0.0"})
	o.addDeps("B", "2.0.0", fakeDep{"C", ">=2.0.0"})
	o.addDeps("C", "2.0.0")

	res := runResolve(t, o, []*PackageRequirement{root("A", ">=1.0.0")})
	if !res.Ok() {
		t.Fatalf("expected Ok, got conflict: %v", res.Report(context.Background()))
	}
	for name, rp := range res.Mapping() {
		for _, edge := range rp.Dependencies {
			target, ok := res.Mapping()[edge.Name.Key()]
			if !ok {
				t.Fatalf("%s depends on %s but nothing in the mapping resolves it", name, edge.Name)
			}
			if !edge.VersionRequirement.InRange(target.Version, true) {
				t.Fatalf("%s's requirement on %s (%v) is not satisfied by the resolved version %v", name, edge.Name, edge.VersionRequirement, target.Version)
			}
		}
	}
}

// TestResolveClosureEveryRootsTransitiveClosureIsResolved checks spec.md §8
// property 2: the resolved mapping contains exactly the transitive closure
// reachable from the roots, no more and no less.
func TestResolveClosureEveryRootsTransitiveClosureIsResolved(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0")
	o.addVersions("B", "1.0.0")
	o.addVersions("C", "1.0.0")
	o.addVersions("Unrelated", "1.0.0")
	o.addDeps("A", "1.0.0", fakeDep{"B", ">=1.0.0"})
	o.addDeps("B", "1.0.0", fakeDep{"C", ">=1.0.0"})
	o.addDeps("C", "1.0.0")
	o.addDeps("Unrelated", "1.0.0")

	res := runResolve(t, o, []*PackageRequirement{root("A", ">=1.0.0")})
	if !res.Ok() {
		t.Fatalf("expected Ok, got conflict: %v", res.Report(context.Background()))
	}
	wantNames := []string{"a", "b", "c"}
	for _, n := range wantNames {
		if _, ok := res.Mapping()[n]; !ok {
			t.Fatalf("expected %s in the transitive closure, mapping was %v", n, res.Mapping())
		}
	}
	if _, ok := res.Mapping()["unrelated"]; ok {
		t.Fatalf("a package never reachable from the roots must not be resolved")
	}
	if len(res.Mapping()) != len(wantNames) {
		t.Fatalf("expected exactly %d resolved packages, got %d: %v", len(wantNames), len(res.Mapping()), res.Mapping())
	}
}

// TestResolveUniquenessOneVersionPerName checks spec.md §8 property 3.
func TestResolveUniquenessOneVersionPerName(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0")
	o.addVersions("B", "1.0.0")
	o.addVersions("Shared", "1.0.0", "2.0.0")
	o.addDeps("A", "1.0.0", fakeDep{"Shared", ">=1.0.0"})
	o.addDeps("B", "1.0.0", fakeDep{"Shared", ">=2.0.0"})
	o.addDeps("Shared", "1.0.0")
	o.addDeps("Shared", "2.0.0")

	res := runResolve(t, o, []*PackageRequirement{root("A", ">=1.0.0"), root("B", ">=1.0.0")})
	if !res.Ok() {
		t.Fatalf("expected Ok, got conflict: %v", res.Report(context.Background()))
	}
	seen := map[string]constraints.SemVer{}
	for name, rp := range res.Mapping() {
		if prior, ok := seen[name]; ok && !prior.Equal(rp.Version) {
			t.Fatalf("%s resolved to two different versions: %v and %v", name, prior, rp.Version)
		}
		seen[name] = rp.Version
	}
}

// TestResolveConflictReplayIsDeterministic checks spec.md §8 property 6:
// two sequential Resolve runs over identical inputs, each starting from
// an empty known-conflicts/conflict-history state, produce byte-identical
// resolutions.
func TestResolveConflictReplayIsDeterministic(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0")
	o.addVersions("B", "1.0.0")
	o.addVersions("C", "1.0.0", "2.0.0")
	o.addDeps("A", "1.0.0", fakeDep{"C", ">=2.0.0"})
	o.addDeps("B", "1.0.0", fakeDep{"C", "<2.0.0"})
	o.addDeps("C", "1.0.0")
	o.addDeps("C", "2.0.0")
	roots := []*PackageRequirement{root("A", "=1.0.0"), root("B", "=1.0.0")}

	first := runResolve(t, o, roots)
	second := runResolve(t, o, roots)

	if first.Ok() != second.Ok() {
		t.Fatalf("expected both runs to agree on Ok/Conflict, got %v and %v", first.Ok(), second.Ok())
	}
	// Graph carries unexported set internals that cmp cannot traverse, so
	// the trail is projected down to the comparable surface of each
	// requirement before diffing.
	if diff := cmp.Diff(conflictShape(first.Conflict()), conflictShape(second.Conflict())); diff != "" {
		t.Fatalf("expected identical conflicts across runs, diff:\n%s", diff)
	}
}

type comparableConflict struct {
	Name       string
	TryRelaxed bool
	LastReason string
	TrailNames []string
}

func conflictShape(c *ConflictError) comparableConflict {
	if c == nil {
		return comparableConflict{}
	}
	names := make([]string, len(c.Trail))
	for i, r := range c.Trail {
		names[i] = r.Name.Key()
	}
	return comparableConflict{Name: c.Name.Key(), TryRelaxed: c.TryRelaxed, LastReason: c.LastReason, TrailNames: names}
}

// TestResolveCycleSafetyTerminates checks spec.md §8 property 7: a cyclic
// declaration (A depends on B, B depends on A) must terminate in Ok or
// Conflict rather than looping.
func TestResolveCycleSafetyTerminates(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0")
	o.addVersions("B", "1.0.0")
	o.addDeps("A", "1.0.0", fakeDep{"B", ">=1.0.0"})
	o.addDeps("B", "1.0.0", fakeDep{"A", ">=1.0.0"})

	done := make(chan Resolution, 1)
	go func() { done <- runResolve(t, o, []*PackageRequirement{root("A", ">=1.0.0")}) }()

	select {
	case res := <-done:
		if !res.Ok() {
			t.Fatalf("expected the cycle to resolve, got conflict: %v", res.Report(context.Background()))
		}
		if res.Mapping()["a"].Version.String() != "1.0.0" || res.Mapping()["b"].Version.String() != "1.0.0" {
			t.Fatalf("unexpected mapping: %+v", res.Mapping())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cyclic dependency declaration did not terminate")
	}
}
