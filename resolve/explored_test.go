package resolve

import (
	"context"
	"testing"

	"github.com/Kukkik42/Paket/constraints"
	"github.com/Kukkik42/Paket/workqueue"
)

func TestExploredCacheAssumedVersionSkipsBridge(t *testing.T) {
	cache := NewExploredCache()
	req := root("A", ">=1.0.0")
	vc := VersionCache{Version: constraints.MustSemVer("1.0.0"), AssumedVersion: true}

	rp, err := cache.Explore(context.Background(), nil, req, vc, constraints.NoRestriction(), workqueue.LikelyRequired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rp.Unlisted {
		t.Fatalf("an assumed version should synthesize an unlisted package, got %+v", rp)
	}
	if rp.Version.String() != "1.0.0" {
		t.Fatalf("expected synthesized version 1.0.0, got %s", rp.Version)
	}
}

func TestExploreAutoDetectResolvesAgainstGlobal(t *testing.T) {
	cache := NewExploredCache()
	req := NewRootRequirement(
		constraints.PackageName("A"),
		constraints.NewVersionRequirement(mustRange(">=1.0.0"), constraints.NoPrereleases()),
		nil,
		RequirementSettings{FrameworkRestrictions: constraints.AutoDetect()},
	)
	global := constraints.RestrictTo("net6.0")
	vc := VersionCache{Version: constraints.MustSemVer("1.0.0"), AssumedVersion: true}

	rp, err := cache.Explore(context.Background(), nil, req, vc, global, workqueue.LikelyRequired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rp.InstallSettings.FrameworkRestrictions.Equal(global) {
		t.Fatalf("an AutoDetect requirement should resolve to the global restriction, got %v", rp.InstallSettings.FrameworkRestrictions)
	}
}

func TestExploredCacheHitNeverTouchesBridge(t *testing.T) {
	cache := NewExploredCache()
	req := root("A", ">=1.0.0")
	v := constraints.MustSemVer("1.0.0")
	want := &ResolvedPackage{Name: "A", Version: v}
	cache.Put(req.Name, v, req.Sources, want)

	// Passing a nil Bridge proves the cache hit never dereferences it.
	got, err := cache.Explore(context.Background(), nil, req, VersionCache{Version: v}, constraints.NoRestriction(), workqueue.LikelyRequired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected the cached ResolvedPackage to be returned verbatim, got %+v", got)
	}
}

func TestExploredCacheFetchesAndCachesOnFirstEncounter(t *testing.T) {
	o := newFakeOracle()
	o.addVersions("A", "1.0.0")
	o.addDeps("A", "1.0.0", fakeDep{"B", ">=1.0.0"})

	pool := workqueue.NewPool(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	defer pool.Wait()
	defer cancel()

	bridge := NewBridge(o.getVersions, o.getPreferred, o.getDetails, pool, workqueue.DefaultTaskTimeout, nil, "main")
	cache := NewExploredCache()
	req := root("A", ">=1.0.0")
	v := constraints.MustSemVer("1.0.0")

	rp, err := cache.Explore(ctx, bridge, req, VersionCache{Version: v}, constraints.NoRestriction(), workqueue.LikelyRequired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rp.Dependencies) != 1 || rp.Dependencies[0].Name != "B" {
		t.Fatalf("expected one dependency edge on B, got %+v", rp.Dependencies)
	}

	cached, ok := cache.Get(req.Name, v, req.Sources)
	if !ok || cached != rp {
		t.Fatalf("expected Explore to cache the result it computed")
	}
}
