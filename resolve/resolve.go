package resolve

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kukkik42/Paket/constraints"
	"github.com/Kukkik42/Paket/workqueue"
)

// Resolution is the Ok | Conflict sum of spec.md §6: either a resolved
// mapping, or a conflict together with whatever non-fatal errors were
// captured along the way.
type Resolution struct {
	ok       bool
	mapping  map[string]*ResolvedPackage
	conflict *ConflictError
	warnings []error
}

// Ok reports whether the search produced a resolution.
func (r Resolution) Ok() bool { return r.ok }

// Mapping returns the resolved name → package mapping; only meaningful
// when Ok() is true.
func (r Resolution) Mapping() map[string]*ResolvedPackage { return r.mapping }

// Conflict returns the terminal conflict; only meaningful when Ok() is
// false.
func (r Resolution) Conflict() *ConflictError { return r.conflict }

// Warnings returns the accumulated non-fatal errors from the search,
// reported as warnings on the final Ok result per spec.md §7
// (SUPPLEMENTED FEATURES: Resolution.Warnings()).
func (r Resolution) Warnings() []error { return r.warnings }

// Report renders a printable explanation of a Conflict resolution,
// combining the conflict's own report with any accumulated warnings
// (spec.md §6's "rendered error text"). ctx bounds the get-versions-thunk
// call the conflict's Report makes; the search's own context may already
// be canceled by the time a caller asks for this.
func (r Resolution) Report(ctx context.Context) string {
	if r.ok {
		return ""
	}
	text := r.conflict.Report(ctx)
	for _, w := range r.warnings {
		text += "warning: " + w.Error() + "\n"
	}
	return text
}

// Resolve is the main entry of spec.md §6. It wires the three injected
// oracles into a Bridge/work-queue pair sized from the environment
// (config.go), runs the backtracking search, and — if the strict pass
// signals try-relaxed — clears conflict state and retries once in
// relaxed mode per spec.md §7.
func Resolve(
	getVersions GetVersionsFunc,
	getPreferred GetPreferredVersionsFunc,
	getDetails GetPackageDetailsFunc,
	group string,
	globalDirectStrategy, globalTransitiveStrategy constraints.ResolverStrategy,
	globalFrameworkRestrictions constraints.FrameworkRestriction,
	rootRequirements []*PackageRequirement,
	updateMode UpdateMode,
	log *logrus.Logger,
) Resolution {
	if log == nil {
		log = logrus.New()
	}
	cfg := LoadConfig(log)

	pool := workqueue.NewPool(cfg.Workers, log)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	defer func() {
		cancel()
		pool.Wait()
	}()

	bridge := NewBridge(getVersions, getPreferred, getDetails, pool, cfg.TaskTimeout, log, group)
	explored := NewExploredCache()

	var packageFilter func(constraints.PackageName) bool
	if updateMode.Kind == UpdateFiltered && updateMode.Group == group {
		packageFilter = updateMode.Filter
	}

	res := runOnce(ctx, bridge, explored, globalDirectStrategy, globalTransitiveStrategy, globalFrameworkRestrictions, rootRequirements, packageFilter, log, false)
	if res.ok || res.conflict == nil || !res.conflict.TryRelaxed {
		return res
	}

	relaxed := runOnce(ctx, bridge, explored, globalDirectStrategy, globalTransitiveStrategy, globalFrameworkRestrictions, rootRequirements, packageFilter, log, true)
	relaxed.warnings = append(res.warnings, relaxed.warnings...)
	return relaxed
}

func runOnce(
	ctx context.Context,
	bridge *Bridge,
	explored *ExploredCache,
	globalDirect, globalTrans constraints.ResolverStrategy,
	global constraints.FrameworkRestriction,
	roots []*PackageRequirement,
	packageFilter func(constraints.PackageName) bool,
	log *logrus.Logger,
	relax bool,
) Resolution {
	tracker := NewConflictTracker(log)
	driver := NewDriver(bridge, explored, tracker, global, globalDirect, globalTrans, packageFilter, log)

	step := NewInitialStep(roots, relax)
	mapping, conflict, err := driver.Run(ctx, step)
	warnings := driver.Warnings()
	if err != nil {
		warnings = append(warnings, err)
	}

	if conflict != nil {
		return Resolution{ok: false, conflict: conflict, warnings: warnings}
	}
	return Resolution{ok: true, mapping: mapping, warnings: warnings}
}
