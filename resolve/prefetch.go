package resolve

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Kukkik42/Paket/constraints"
	"github.com/Kukkik42/Paket/workqueue"
)

// Prefetch implements spec.md §4.8's prefetch pipeline: on accepting an
// exploration, every one of its dependency edges gets a background
// list-versions request, raised to LikelyRequired once scheduled, and — as
// soon as versions arrive — get-details requests for up to two
// representative versions at LikelyRequired plus up to ten more at
// MightBeRequired. It never blocks the caller: the await-and-fan-out runs
// in a detached goroutine, so runInner moves on to the next candidate
// immediately; failures are swallowed since prefetching is advisory (the
// state machine re-fetches synchronously through Bridge/ExploredCache if a
// prefetch never lands in time).
//
// The fan-out uses errgroup the way rhansen-gomoddepgraph wires its own
// concurrent graph walk.
func Prefetch(ctx context.Context, bridge *Bridge, deps []DependencyEdge, sources []constraints.PackageSource, strategy constraints.ResolverStrategy) {
	go func() {
		g, gctx := errgroup.WithContext(ctx)
		for _, d := range deps {
			d := d
			g.Go(func() error {
				prefetchOne(gctx, bridge, d, sources, strategy)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func prefetchOne(ctx context.Context, bridge *Bridge, d DependencyEdge, sources []constraints.PackageSource, strategy constraints.ResolverStrategy) {
	h := bridge.SubmitListVersions(sources, d.Name, strategy, workqueue.BackgroundWork)
	h.TryReprioritize(true, workqueue.LikelyRequired)

	// Wait on the handle directly rather than through Bridge.AwaitVersions:
	// that helper goes through Pool.GetAndReport, which unconditionally
	// bumps the request to BlockingWork. Doing that here would undo the
	// LikelyRequired priority just set above and make every prefetch
	// contend at the same top priority as the driver's genuinely-blocking
	// fetches, defeating the §4.8 priority ladder this pipeline exists to
	// maintain.
	listing, err := awaitListVersionsNoEscalate(ctx, h)
	if err != nil || len(listing.All) == 0 {
		return
	}

	representatives := pickRepresentatives(listing.All, d.VersionRequirement)
	seen := make(map[string]struct{}, len(representatives))
	for _, vc := range representatives {
		seen[vc.Version.String()] = struct{}{}
		bridge.SubmitGetDetails(sources, d.Name, vc.Version, workqueue.LikelyRequired)
	}

	more := 0
	for _, vc := range listing.All {
		if more >= 10 {
			break
		}
		if _, dup := seen[vc.Version.String()]; dup {
			continue
		}
		seen[vc.Version.String()] = struct{}{}
		bridge.SubmitGetDetails(sources, d.Name, vc.Version, workqueue.MightBeRequired)
		more++
	}
}

// awaitListVersionsNoEscalate waits for a list-versions handle without
// reprioritizing it, unlike Bridge.AwaitVersions/Pool.GetAndReport. It has
// no timeout of its own beyond ctx, since an unbounded background wait is
// exactly what "never blocks the caller" requires here — the driver's own
// synchronous Bridge.AwaitVersions call is what enforces the real
// taskTimeout budget if this prefetch never lands in time.
func awaitListVersionsNoEscalate(ctx context.Context, h *workqueue.Handle) (VersionListing, error) {
	select {
	case <-h.Done():
		v, err := h.Result()
		if err != nil {
			return VersionListing{}, err
		}
		vl, _ := v.(VersionListing)
		return vl, nil
	case <-ctx.Done():
		return VersionListing{}, ctx.Err()
	}
}

// pickRepresentatives returns up to two candidates: the first in range
// when prereleases are admitted transitively, and the first strictly in
// range (spec.md §4.8's "two representative versions").
func pickRepresentatives(all []VersionCache, vr constraints.VersionRequirement) []VersionCache {
	var reps []VersionCache
	for _, vc := range all {
		if vr.InRange(vc.Version, true) {
			reps = append(reps, vc)
			break
		}
	}
	for _, vc := range all {
		if vr.InRange(vc.Version, false) {
			if len(reps) == 0 || !reps[0].Version.Equal(vc.Version) {
				reps = append(reps, vc)
			}
			break
		}
	}
	return reps
}
