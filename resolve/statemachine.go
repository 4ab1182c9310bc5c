package resolve

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/Kukkik42/Paket/constraints"
	"github.com/Kukkik42/Paket/workqueue"
)

// frame is one level of the explicit backtracking stack spec.md §4.6 and
// §9 call for in place of native recursion: the step it was reached from,
// the requirement chosen at that step, the ordered candidates for it, and
// how far through both the listed and unlisted trial this level has got.
type frame struct {
	step        *ResolverStep
	current     *PackageRequirement
	sameName    []*PackageRequirement
	candidates  []VersionCache
	idx         int
	hasUnlisted bool
	useUnlisted bool
	unlistedRun bool
	tryRelaxed  bool
}

// Driver runs the three-stage Step/Outer/Inner loop over an explicit stack
// of frame values. It is grounded on the teacher's solver.go selection
// loop, restructured from the teacher's recursive descent into the
// iterative stack form spec.md §4.6 and §9 require.
type Driver struct {
	bridge        *Bridge
	explored      *ExploredCache
	tracker       *ConflictTracker
	global        constraints.FrameworkRestriction
	globalDirect  constraints.ResolverStrategy
	globalTrans   constraints.ResolverStrategy
	packageFilter func(constraints.PackageName) bool
	log           *logrus.Logger
	warnings      []error
}

// NewDriver builds a Driver for one search attempt (one Run call covers
// one pass of the search; the relaxation retry of spec.md §7 constructs a
// fresh Driver sharing the same Bridge/ExploredCache but a reset tracker).
func NewDriver(bridge *Bridge, explored *ExploredCache, tracker *ConflictTracker, global constraints.FrameworkRestriction, globalDirect, globalTrans constraints.ResolverStrategy, packageFilter func(constraints.PackageName) bool, log *logrus.Logger) *Driver {
	if log == nil {
		log = logrus.New()
	}
	return &Driver{
		bridge:        bridge,
		explored:      explored,
		tracker:       tracker,
		global:        global,
		globalDirect:  globalDirect,
		globalTrans:   globalTrans,
		packageFilter: packageFilter,
		log:           log,
	}
}

// Warnings returns the non-fatal errors accumulated during Run (spec.md
// §7's "source unavailable during exploration" captures).
func (d *Driver) Warnings() []error { return d.warnings }

// Run drives the search from the given initial step to either a resolved
// mapping or a *ConflictError.
func (d *Driver) Run(ctx context.Context, initial *ResolverStep) (map[string]*ResolvedPackage, *ConflictError, error) {
	step := initial
	var stack []*frame

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		if step.Open.Cardinality() == 0 {
			return CleanupNames(step.CurrentResolution), nil, nil
		}

		current := d.tracker.GetCurrentRequirement(step.Open, d.packageFilter)
		sameName := sameNameOpen(step.Open, current.Name)

		replay := d.tracker.GetConflicts(step, current)
		if replay.Cardinality() > 0 {
			newStep, ok := d.backtrack(ctx, &stack, replay)
			if !ok {
				return nil, d.conflictError(step, current, replay, false, ""), nil
			}
			step = newStep
			continue
		}

		strategy := ChooseStrategy(current, sameName, d.globalDirect, d.globalTrans)
		sel, err := SelectCandidates(ctx, step, current, sameName, d.bridge, strategy)
		if err != nil {
			d.warnings = append(d.warnings, err)
			conflicts := conflictGraph(sameName, current)
			d.tracker.BoostConflicts(step.FilteredVersions, current, conflicts)
			newStep, ok := d.backtrack(ctx, &stack, conflicts)
			if !ok {
				return nil, d.conflictError(step, current, conflicts, false, err.Error()), nil
			}
			step = newStep
			continue
		}
		if len(sel.Candidates) == 0 {
			conflicts := conflictGraph(sameName, current)
			if w := d.tracker.BoostConflicts(step.FilteredVersions, current, conflicts); w != nil {
				d.warnings = append(d.warnings, w)
			}
			newStep, ok := d.backtrack(ctx, &stack, conflicts)
			if !ok {
				return nil, d.conflictError(step, current, conflicts, sel.TryRelaxed, ""), nil
			}
			step = newStep
			continue
		}

		f := &frame{step: step, current: current, sameName: sameName, candidates: sel.Candidates, tryRelaxed: sel.TryRelaxed}
		nextStep, status, err := d.runInner(ctx, f)
		if err != nil {
			d.warnings = append(d.warnings, err)
		}

		switch status {
		case innerAccepted:
			stack = append(stack, f)
			step = nextStep
		case innerExhausted:
			conflicts := conflictGraph(f.sameName, f.current)
			if w := d.tracker.BoostConflicts(f.step.FilteredVersions, f.current, conflicts); w != nil {
				d.warnings = append(d.warnings, w)
			}
			newStep, ok := d.backtrack(ctx, &stack, conflicts)
			if !ok {
				return nil, d.conflictError(f.step, f.current, conflicts, f.tryRelaxed, ""), nil
			}
			step = newStep
		}
	}
}

type innerStatus int

const (
	innerAccepted innerStatus = iota
	innerExhausted
)

// runInner implements spec.md §4.6's Inner stage and §4.7's unlisted
// second pass for one frame: it walks f.candidates, accepting the first
// one whose explored package doesn't conflict with an already-closed
// requirement, flipping into the unlisted-accepting trial once the listed
// trial runs dry.
func (d *Driver) runInner(ctx context.Context, f *frame) (*ResolverStep, innerStatus, error) {
	for {
		for f.idx < len(f.candidates) {
			vc := f.candidates[f.idx]
			f.idx++

			rp, err := d.explored.Explore(ctx, d.bridge, f.current, vc, d.global, workqueue.LikelyRequired)
			if err != nil {
				return nil, innerExhausted, err
			}

			if rp.Unlisted && !f.useUnlisted {
				if !f.hasUnlisted && d.log.Level >= logrus.TraceLevel {
					d.log.WithField("package", rp.Name).Trace("skipping unlisted candidate on first pass")
				}
				f.hasUnlisted = true
				continue
			}

			if incompatible := d.conflictsWithClosed(f.step, rp); incompatible {
				continue
			}

			if rp.Unlisted {
				d.warnings = append(d.warnings, &UnlistedFallbackError{Name: rp.Name, Version: rp.Version})
			}

			Prefetch(ctx, d.bridge, rp.Dependencies, f.current.Sources, ChooseStrategy(f.current, f.sameName, d.globalDirect, d.globalTrans))

			next := f.step.clone()
			next.Closed.Add(f.current)
			next.CurrentResolution[keyFor(f.current.Name)] = rp

			open, err := CalcOpenRequirements(next, rp, f.current, d.global)
			if err != nil {
				return nil, innerExhausted, err
			}
			next.Open = open

			return next, innerAccepted, nil
		}

		if f.hasUnlisted && !f.useUnlisted && !f.unlistedRun {
			f.useUnlisted = true
			f.unlistedRun = true
			f.idx = 0
			continue
		}

		return nil, innerExhausted, nil
	}
}

// conflictsWithClosed implements spec.md §4.1's find-first-incompatibility
// check against every already-resolved package. A package whose
// filtered-versions entry is a global override is skipped: other
// requirements on its name are ignored.
func (d *Driver) conflictsWithClosed(step *ResolverStep, rp *ResolvedPackage) bool {
	for key, resolved := range step.CurrentResolution {
		if fv, ok := step.FilteredVersions[key]; ok && fv.GlobalOverride {
			continue
		}
		if _, ok := FindFirstIncompatibility(step, rp.Dependencies, resolved); ok {
			return true
		}
	}
	return false
}

// sameNameOpen collects every open requirement sharing name, current
// included.
func sameNameOpen(open mapset.Set[*PackageRequirement], name constraints.PackageName) []*PackageRequirement {
	var out []*PackageRequirement
	open.Each(func(r *PackageRequirement) bool {
		if r.Name.Equal(name) {
			out = append(out, r)
		}
		return false
	})
	return out
}

// conflictGraph builds the requirement set spec.md §4.6's fuse-conflicts
// reasons over: the same-name requirement set that constrained current's
// candidate list, plus current itself.
func conflictGraph(sameName []*PackageRequirement, current *PackageRequirement) mapset.Set[*PackageRequirement] {
	s := mapset.NewSet[*PackageRequirement]()
	s.Add(current)
	for _, r := range sameName {
		s.Add(r)
	}
	return s
}

// backtrack implements spec.md §4.6's fuse-conflicts: it computes the
// union of every conflicting requirement's own name and its ancestors'
// names, then pops frames until one whose chosen requirement's name lies
// in that union, resuming that frame's Inner loop at its next candidate.
// Returns ok=false if the stack is exhausted — the whole search fails.
func (d *Driver) backtrack(ctx context.Context, stack *[]*frame, conflicts mapset.Set[*PackageRequirement]) (*ResolverStep, bool) {
	names := mapset.NewSet[string]()
	conflicts.Each(func(r *PackageRequirement) bool {
		names.Add(keyFor(r.Name))
		r.Graph.Each(func(p *PackageRequirement) bool {
			names.Add(keyFor(p.Name))
			return false
		})
		return false
	})

	for len(*stack) > 0 {
		n := len(*stack)
		top := (*stack)[n-1]
		*stack = (*stack)[:n-1]

		if !names.Contains(keyFor(top.current.Name)) {
			continue
		}

		next, status, err := d.runInner(ctx, top)
		if err != nil {
			d.warnings = append(d.warnings, err)
		}
		if status == innerAccepted {
			*stack = append(*stack, top)
			return next, true
		}
		// This frame's own trials are exhausted too; keep popping.
	}
	return nil, false
}

// conflictError builds the terminal *ConflictError of spec.md §6's
// `Conflict(step, requirement-set, requirement, get-versions-thunk)`: step
// and requirement are captured as-is, conflicts becomes both the exported
// RequirementSet and the rendering Trail, and the get-versions-thunk is
// bound to requirement's own name/sources so Report(ctx) can later
// re-query the oracle for that name's available versions lazily.
func (d *Driver) conflictError(step *ResolverStep, requirement *PackageRequirement, conflicts mapset.Set[*PackageRequirement], tryRelaxed bool, lastReason string) *ConflictError {
	return &ConflictError{
		Name:           requirement.Name,
		TryRelaxed:     tryRelaxed,
		LastReason:     lastReason,
		Trail:          conflicts.ToSlice(),
		Step:           step,
		RequirementSet: conflicts,
		Requirement:    requirement,
		getVersions:    d.bridge.VersionsThunk(requirement.Sources, requirement.Name),
	}
}
