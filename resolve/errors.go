package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Kukkik42/Paket/constraints"
)

// InvariantViolationError signals that an internal bookkeeping invariant
// the search relies on to terminate did not hold (spec.md §4.6). It is
// always a bug in the resolver itself, never a consequence of the input
// requirements, and aborts the search rather than being retried.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("resolver invariant violated: %s", e.Detail)
}

// NoVersionsError reports that the oracle listed no versions at all for a
// requirement's name under the sources in scope. Listed versions that the
// range does not admit are not reported through this error.
type NoVersionsError struct {
	Name    constraints.PackageName
	Range   string
	Sources []constraints.PackageSource
}

func (e *NoVersionsError) Error() string {
	srcs := make([]string, len(e.Sources))
	for i, s := range e.Sources {
		srcs[i] = s.String()
	}
	return fmt.Sprintf("no versions of %s satisfy %s in [%s]", e.Name, e.Range, strings.Join(srcs, ", "))
}

// ConflictError is the terminal failure of a search that exhausted every
// candidate at the root without finding a consistent resolution. It is
// spec.md §6's `Conflict(step, requirement-set, requirement,
// get-versions-thunk)` result: Step is the last search state the failure
// was detected against, RequirementSet is the fused conflict set that
// §4.6's backtrack exhausted, and Requirement is the one requirement that
// triggered the failure. getVersions is the captured get-versions-thunk —
// unexported because it is a closure, not data a caller can usefully hold
// onto directly; Report(ctx) is the supported way to consume it.
// TryRelaxed reports whether a prerelease-admitting candidate set existed
// but was withheld because the step was not yet in relaxed mode (spec.md
// §4.3, §7); the caller should then clear known-conflicts/conflict-history
// and retry with step.relax = true.
type ConflictError struct {
	Name           constraints.PackageName
	TryRelaxed     bool
	LastReason     string
	Trail          []*PackageRequirement
	Step           *ResolverStep
	RequirementSet mapset.Set[*PackageRequirement]
	Requirement    *PackageRequirement

	getVersions func(ctx context.Context) ([]VersionCache, error)
}

func (e *ConflictError) Error() string {
	if e.LastReason != "" {
		return fmt.Sprintf("could not resolve %s: %s", e.Name, e.LastReason)
	}
	return fmt.Sprintf("could not resolve %s: no compatible version found", e.Name)
}

// Report renders spec.md §6's "rendered error text": the packages resolved
// so far, the triggering requirement (with a prerelease annotation if any
// requirement in the conflict fused into this failure admits
// prereleases), and the available versions for the conflicting name — by
// calling back into the captured get-versions-thunk, lazily, only when a
// report is actually asked for. ctx bounds that one call; it is not the
// context the search itself ran under, which may already be canceled by
// the time a caller renders a report.
func (e *ConflictError) Report(ctx context.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "conflict on %s\n", e.Name)

	b.WriteString("resolved so far:\n")
	resolved := resolvedSoFar(e.Step)
	if len(resolved) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, line := range resolved {
		fmt.Fprintf(&b, "  %s\n", line)
	}

	if e.Requirement != nil {
		annotation := ""
		if conflictRequiresPrereleases(e.RequirementSet, e.Requirement) {
			annotation = " (prerelease)"
		}
		fmt.Fprintf(&b, "triggering requirement: %s %s%s\n", e.Requirement.Name, e.Requirement.VersionRequirement, annotation)
	}

	b.WriteString(renderAvailableVersions(ctx, e.getVersions))

	for _, r := range e.Trail {
		parent := "root"
		if !r.Parent.IsRoot {
			parent = fmt.Sprintf("%s %s", r.Parent.Name, r.Parent.Version)
		}
		fmt.Fprintf(&b, "  %s %s <- %s\n", r.Name, r.VersionRequirement, parent)
	}
	if e.LastReason != "" {
		fmt.Fprintf(&b, "reason: %s\n", e.LastReason)
	}
	return b.String()
}

func resolvedSoFar(step *ResolverStep) []string {
	if step == nil {
		return nil
	}
	lines := make([]string, 0, len(step.CurrentResolution))
	for _, rp := range step.CurrentResolution {
		lines = append(lines, fmt.Sprintf("%s %s", rp.Name, rp.Version))
	}
	sort.Strings(lines)
	return lines
}

func conflictRequiresPrereleases(set mapset.Set[*PackageRequirement], triggering *PackageRequirement) bool {
	if triggering != nil && triggering.VersionRequirement.Prereleases.Kind() != constraints.PreReleaseNo {
		return true
	}
	requires := false
	if set != nil {
		set.Each(func(r *PackageRequirement) bool {
			if r.VersionRequirement.Prereleases.Kind() != constraints.PreReleaseNo {
				requires = true
				return true
			}
			return false
		})
	}
	return requires
}

func renderAvailableVersions(ctx context.Context, thunk func(context.Context) ([]VersionCache, error)) string {
	if thunk == nil {
		return "available versions: no versions available\n"
	}
	versions, err := thunk(ctx)
	if err != nil || len(versions) == 0 {
		return "available versions: no versions available\n"
	}
	vs := make([]string, len(versions))
	for i, v := range versions {
		vs[i] = v.Version.String()
	}
	return fmt.Sprintf("available versions: %s\n", strings.Join(vs, ", "))
}

// UnlistedFallbackError is a non-fatal diagnostic recorded whenever the
// search accepts an unlisted package version: one taken by the
// unlisted-package second pass (spec.md §4.7), including an assumed
// version synthesized for a pin that no source listed.
type UnlistedFallbackError struct {
	Name    constraints.PackageName
	Version constraints.SemVer
}

func (e *UnlistedFallbackError) Error() string {
	return fmt.Sprintf("%s %s is unlisted; assuming it satisfies all requirements", e.Name, e.Version)
}

// TimeoutWarning is a non-fatal diagnostic that BoostConflicts returns
// for a repeat conflict on a name ≥10s after the previous conflict, the
// "taking longer than expected" mark (spec.md §4.5).
type TimeoutWarning struct {
	Name constraints.PackageName
}

func (e *TimeoutWarning) Error() string {
	return fmt.Sprintf("resolution of %s is taking longer than expected; boosting its priority", e.Name)
}
