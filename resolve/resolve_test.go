package resolve

import (
	"context"
	"testing"

	"github.com/Kukkik42/Paket/constraints"
)

// fakeOracle is an in-memory stand-in for the three injected oracles,
// driven entirely by literal version/dependency tables so the concrete
// scenarios of spec.md §8 can be expressed directly as test data.
type fakeOracle struct {
	versions map[string][]string
	deps     map[string]map[string][]fakeDep
	unlisted map[string]map[string]bool
}

type fakeDep struct {
	name string
	rng  string
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		versions: map[string][]string{},
		deps:     map[string]map[string][]fakeDep{},
		unlisted: map[string]map[string]bool{},
	}
}

func (f *fakeOracle) addVersions(name string, versions ...string) {
	f.versions[name] = append(f.versions[name], versions...)
}

func (f *fakeOracle) addDeps(name, version string, deps ...fakeDep) {
	if f.deps[name] == nil {
		f.deps[name] = map[string][]fakeDep{}
	}
	f.deps[name][version] = deps
}

func (f *fakeOracle) markUnlisted(name, version string) {
	if f.unlisted[name] == nil {
		f.unlisted[name] = map[string]bool{}
	}
	f.unlisted[name][version] = true
}

func (f *fakeOracle) getVersions(_ context.Context, sources []constraints.PackageSource, _ string, name constraints.PackageName) ([]VersionCache, error) {
	var out []VersionCache
	for _, v := range f.versions[string(name)] {
		out = append(out, VersionCache{Version: constraints.MustSemVer(v), CandidateSources: sources})
	}
	return out, nil
}

func (f *fakeOracle) getPreferred(context.Context, constraints.ResolverStrategy, []constraints.PackageSource, string, constraints.PackageName) ([]VersionCache, error) {
	return nil, nil
}

func (f *fakeOracle) getDetails(_ context.Context, sources []constraints.PackageSource, _ string, name constraints.PackageName, v constraints.SemVer) (*PackageDetails, error) {
	var edges []DependencyEdge
	for _, d := range f.deps[string(name)][v.String()] {
		rng, err := constraints.ParseVersionRange(d.rng)
		if err != nil {
			return nil, err
		}
		edges = append(edges, DependencyEdge{
			Name:                  constraints.PackageName(d.name),
			VersionRequirement:    constraints.NewVersionRequirement(rng, constraints.NoPrereleases()),
			FrameworkRestrictions: constraints.NoRestriction(),
		})
	}
	return &PackageDetails{
		Name:         name,
		Source:       sourceOrZero(sources),
		Unlisted:     f.unlisted[string(name)][v.String()],
		Dependencies: edges,
	}, nil
}

func sourceOrZero(sources []constraints.PackageSource) constraints.PackageSource {
	if len(sources) == 0 {
		return constraints.PackageSource{}
	}
	return sources[0]
}

func root(name, rng string) *PackageRequirement {
	vr, err := constraints.ParseVersionRange(rng)
	if err != nil {
		panic(err)
	}
	return NewRootRequirement(
		constraints.PackageName(name),
		constraints.NewVersionRequirement(vr, constraints.NoPrereleases()),
		[]constraints.PackageSource{constraints.NewSource("https://example.test/feed")},
		RequirementSettings{FrameworkRestrictions: constraints.Explicit(constraints.NoRestriction())},
	)
}

func runResolve(t *testing.T, oracle *fakeOracle, roots []*PackageRequirement) Resolution {
	t.Helper()
	return Resolve(
		oracle.getVersions,
		oracle.getPreferred,
		oracle.getDetails,
		"main",
		constraints.Max, constraints.Max,
		constraints.NoRestriction(),
		roots,
		UpdateMode{Kind: Install},
		nil,
	)
}

func TestResolveTrivial(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0", "1.1.0")
	o.addDeps("A", "1.1.0")
	o.addDeps("A", "1.0.0")

	res := runResolve(t, o, []*PackageRequirement{root("A", ">=1.0.0")})
	if !res.Ok() {
		t.Fatalf("expected Ok, got conflict: %v", res.Report(context.Background()))
	}
	got, ok := res.Mapping()["a"]
	if !ok || got.Version.String() != "1.1.0" {
		t.Fatalf("expected A resolved to 1.1.0, got %+v", got)
	}
}

func TestResolveTransitivePin(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0", "2.0.0")
	o.addVersions("B", "1.0.0", "2.0.0")
	o.addDeps("A", "2.0.0", fakeDep{"B", ">=1.0.0"})
	o.addDeps("A", "1.0.0", fakeDep{"B", ">=1.0.0"})
	o.addDeps("B", "1.0.0")
	o.addDeps("B", "2.0.0")

	res := runResolve(t, o, []*PackageRequirement{root("A", ">=1.0.0"), root("B", "=2.0.0")})
	if !res.Ok() {
		t.Fatalf("expected Ok, got conflict: %v", res.Report(context.Background()))
	}
	if res.Mapping()["a"].Version.String() != "2.0.0" || res.Mapping()["b"].Version.String() != "2.0.0" {
		t.Fatalf("unexpected mapping: %+v", res.Mapping())
	}
}

func TestResolveConflict(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0")
	o.addVersions("B", "1.0.0")
	o.addVersions("C", "1.0.0", "2.0.0")
	o.addDeps("A", "1.0.0", fakeDep{"C", ">=2.0.0"})
	o.addDeps("B", "1.0.0", fakeDep{"C", "<2.0.0"})
	o.addDeps("C", "1.0.0")
	o.addDeps("C", "2.0.0")

	res := runResolve(t, o, []*PackageRequirement{root("A", "=1.0.0"), root("B", "=1.0.0")})
	if res.Ok() {
		t.Fatalf("expected Conflict, got Ok: %+v", res.Mapping())
	}
	if res.Conflict().Name.Key() != "c" {
		t.Fatalf("expected conflict on C, got %s", res.Conflict().Name)
	}
}

func TestResolveUnlistedFallback(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0")
	o.addDeps("A", "1.0.0")
	o.markUnlisted("A", "1.0.0")

	res := runResolve(t, o, []*PackageRequirement{root("A", ">=1.0.0")})
	if !res.Ok() {
		t.Fatalf("expected unlisted fallback to still resolve, got conflict: %v", res.Report(context.Background()))
	}
	if res.Mapping()["a"].Version.String() != "1.0.0" {
		t.Fatalf("unexpected mapping: %+v", res.Mapping())
	}
	found := false
	for _, w := range res.Warnings() {
		if _, ok := w.(*UnlistedFallbackError); ok {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an UnlistedFallbackError warning, got %v", res.Warnings())
	}
}

func TestResolveGlobalOverride(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0", "2.0.0")
	o.addVersions("B", "1.0.0")
	o.addDeps("A", "1.0.0")
	o.addDeps("A", "2.0.0")
	o.addDeps("B", "1.0.0", fakeDep{"A", ">=2.0.0"})

	overrideRoot := NewRootRequirement(
		constraints.PackageName("A"),
		constraints.NewVersionRequirement(constraints.OverrideAll(constraints.MustSemVer("1.0.0")), constraints.NoPrereleases()),
		[]constraints.PackageSource{constraints.NewSource("https://example.test/feed")},
		RequirementSettings{FrameworkRestrictions: constraints.Explicit(constraints.NoRestriction())},
	)

	res := runResolve(t, o, []*PackageRequirement{overrideRoot, root("B", ">=1.0.0")})
	if !res.Ok() {
		t.Fatalf("expected Ok, got conflict: %v", res.Report(context.Background()))
	}
	if res.Mapping()["a"].Version.String() != "1.0.0" {
		t.Fatalf("global override should pin A to 1.0.0, got %+v", res.Mapping()["a"])
	}
}

func TestCleanupNamesIdempotent(t *testing.T) {
	resolution := map[string]*ResolvedPackage{
		"a": {Name: "A", Dependencies: []DependencyEdge{{Name: "b"}}},
		"b": {Name: "B"},
	}
	once := CleanupNames(resolution)
	twice := CleanupNames(once)

	if once["a"].Dependencies[0].Name != "B" {
		t.Fatalf("expected dependency name canonicalized to B, got %s", once["a"].Dependencies[0].Name)
	}
	if twice["a"].Dependencies[0].Name != once["a"].Dependencies[0].Name {
		t.Fatalf("CleanupNames should be idempotent: %v vs %v", once, twice)
	}
}

func TestFilterByRestrictionsNoRestrictionIsIdentity(t *testing.T) {
	deps := []DependencyEdge{
		{Name: "A", FrameworkRestrictions: constraints.RestrictTo("net6.0")},
		{Name: "B", FrameworkRestrictions: constraints.NoRestriction()},
	}
	out := FilterByRestrictions(constraints.NoRestriction(), deps)
	if len(out) != len(deps) {
		t.Fatalf("NoRestriction filter should be the identity, got %d of %d", len(out), len(deps))
	}
}

func TestFilterByRestrictionsKeepsOnlyIntersecting(t *testing.T) {
	deps := []DependencyEdge{
		{Name: "A", FrameworkRestrictions: constraints.RestrictTo("net6.0")},
		{Name: "B", FrameworkRestrictions: constraints.RestrictTo("netstandard2.0")},
	}
	out := FilterByRestrictions(constraints.RestrictTo("net6.0"), deps)
	if len(out) != 1 || out[0].Name != "A" {
		t.Fatalf("expected only A to survive, got %+v", out)
	}
}
