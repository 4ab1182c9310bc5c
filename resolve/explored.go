package resolve

import (
	"context"
	"sync"

	"github.com/Kukkik42/Paket/constraints"
	"github.com/Kukkik42/Paket/workqueue"
)

// exploredKey identifies one (name, version, sources) combination in the
// explored-package cache.
func exploredKey(name constraints.PackageName, v constraints.SemVer, sources []constraints.PackageSource) string {
	return detailsKey(sources, name, v)
}

// ExploredCache memoizes the DependencyEdge/InstallSettings fanout already
// computed for a given (name, version) pair, so that re-encountering the
// same candidate later in the search — on a different branch, or after a
// backtrack — never re-asks the oracle or re-runs the restriction filter.
// It is grounded on the teacher's per-ProjectIdentifier vlists cache in
// bridge.go, generalized from "list of versions" to "fully explored
// package record".
type ExploredCache struct {
	mu sync.Mutex
	m  map[string]*ResolvedPackage
}

// NewExploredCache returns an empty cache.
func NewExploredCache() *ExploredCache {
	return &ExploredCache{m: make(map[string]*ResolvedPackage)}
}

// Get returns the cached ResolvedPackage for (name, v, sources), if any.
func (c *ExploredCache) Get(name constraints.PackageName, v constraints.SemVer, sources []constraints.PackageSource) (*ResolvedPackage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rp, ok := c.m[exploredKey(name, v, sources)]
	return rp, ok
}

// Put stores the ResolvedPackage computed for (name, v, sources).
func (c *ExploredCache) Put(name constraints.PackageName, v constraints.SemVer, sources []constraints.PackageSource, rp *ResolvedPackage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[exploredKey(name, v, sources)] = rp
}

// Explore resolves the PackageDetails for (req.Name, v) via the bridge —
// using the cache when available — applies the restriction filter of
// spec.md §4.1, and builds the ResolvedPackage the state machine closes
// req against. priority controls how eagerly the bridge schedules the
// underlying get-details call if it isn't already in flight.
func (c *ExploredCache) Explore(ctx context.Context, b *Bridge, req *PackageRequirement, vc VersionCache, global constraints.FrameworkRestriction, priority workqueue.Priority) (*ResolvedPackage, error) {
	if vc.AssumedVersion {
		return &ResolvedPackage{
			Name:            req.Name,
			Version:         vc.Version,
			Unlisted:        true,
			Source:          primarySource(vc.CandidateSources),
			InstallSettings: InstallSettings{FrameworkRestrictions: req.Settings.FrameworkRestrictions.Resolve(global)},
		}, nil
	}

	if rp, ok := c.Get(req.Name, vc.Version, req.Sources); ok {
		return rp, nil
	}

	h := b.SubmitGetDetails(req.Sources, req.Name, vc.Version, priority)
	details, err := b.AwaitDetails(ctx, h)
	if err != nil {
		return nil, err
	}

	effective := req.Settings.FrameworkRestrictions.Resolve(global)
	rp := &ResolvedPackage{
		Name:         details.Name,
		Version:      vc.Version,
		Dependencies: FilterByRestrictions(effective, details.Dependencies),
		Unlisted:     details.Unlisted,
		Source:       details.Source,
		InstallSettings: InstallSettings{
			FrameworkRestrictions: effective,
		},
	}
	c.Put(req.Name, vc.Version, req.Sources, rp)
	return rp, nil
}

func primarySource(sources []constraints.PackageSource) constraints.PackageSource {
	if len(sources) == 0 {
		return constraints.PackageSource{}
	}
	return sources[0]
}
