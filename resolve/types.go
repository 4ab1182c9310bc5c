// Package resolve implements the backtracking package dependency resolver
// core: the state machine, version-selection policy, conflict tracking,
// and work-queue-driven prefetch pipeline described by the specification
// this module implements. Parsing of manifests/lockfiles, registry HTTP
// clients, and VCS plumbing are not here; they are reached only through
// the oracle interfaces in oracle.go.
package resolve

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Kukkik42/Paket/constraints"
)

// Parent identifies where a requirement came from: the root requirement
// file, or a specific package's specific resolved version.
type Parent struct {
	IsRoot  bool
	Name    constraints.PackageName
	Version constraints.SemVer
	Source  constraints.PackageSource
}

// RootParent returns the Parent value for a root requirement.
func RootParent() Parent { return Parent{IsRoot: true} }

// PackageParent returns the Parent value for a requirement introduced by a
// dependency edge.
func PackageParent(name constraints.PackageName, v constraints.SemVer, src constraints.PackageSource) Parent {
	return Parent{Name: name, Version: v, Source: src}
}

// RequirementSettings carries the parts of a PackageRequirement that travel
// together with a dependency edge: the framework restriction — possibly
// still deferred to AutoDetect, per spec.md §3's two-state variant — and
// any per-requirement resolver-strategy override.
type RequirementSettings struct {
	FrameworkRestrictions constraints.FrameworkRestrictionsSetting
	StrategyOverride      constraints.StrategyOverride
}

// PackageRequirement is one constraint on the frontier (spec.md §3).
type PackageRequirement struct {
	Name                  constraints.PackageName
	VersionRequirement    constraints.VersionRequirement
	Sources               []constraints.PackageSource
	Settings              RequirementSettings
	Parent                Parent
	Graph                 mapset.Set[*PackageRequirement]
	Depth                 int
	TransitivePrerelease  bool
	CLITool               bool
}

// NewRootRequirement builds a depth-0 requirement with no ancestry.
func NewRootRequirement(name constraints.PackageName, vr constraints.VersionRequirement, sources []constraints.PackageSource, settings RequirementSettings) *PackageRequirement {
	return &PackageRequirement{
		Name:               name,
		VersionRequirement: vr,
		Sources:            sources,
		Settings:           settings,
		Parent:             RootParent(),
		Graph:              mapset.NewSet[*PackageRequirement](),
	}
}

// DependencyEdge is one of a package's declared dependencies: a name, a
// version requirement, and the framework restriction it was declared
// under (spec.md §3's PackageDetails.direct-dependencies).
type DependencyEdge struct {
	Name                   constraints.PackageName
	VersionRequirement     constraints.VersionRequirement
	FrameworkRestrictions  constraints.FrameworkRestriction
}

// PackageDetails is the authoritative per-version record an oracle
// returns (spec.md §3, §6).
type PackageDetails struct {
	Name         constraints.PackageName
	Source       constraints.PackageSource
	DownloadLink string
	LicenseURL   string
	Unlisted     bool
	Dependencies []DependencyEdge
}

// InstallSettings is the effective, post-filter settings a resolved
// package carries forward.
type InstallSettings struct {
	FrameworkRestrictions constraints.FrameworkRestriction
}

// ResolvedPackage is one entry of a resolution (spec.md §3).
type ResolvedPackage struct {
	Name               constraints.PackageName
	Version            constraints.SemVer
	Dependencies       []DependencyEdge
	Unlisted           bool
	IsRuntimeDependency bool
	IsCLITool          bool
	InstallSettings    InstallSettings
	Source             constraints.PackageSource
}

// VersionCache is one candidate version together with the sources that
// reported it (spec.md §3).
type VersionCache struct {
	Version         constraints.SemVer
	CandidateSources []constraints.PackageSource
	AssumedVersion  bool
}

// FilteredVersions is the per-name cache entry the version candidate
// selector consults and populates: an ordered candidate list, plus
// whether that list came from a global override (spec.md §3, §4.3).
type FilteredVersions struct {
	Candidates     []VersionCache
	GlobalOverride bool
}

// ResolverStep is an immutable snapshot of search progress (spec.md §3).
type ResolverStep struct {
	Relax             bool
	FilteredVersions  map[string]FilteredVersions
	CurrentResolution map[string]*ResolvedPackage
	Closed            mapset.Set[*PackageRequirement]
	Open              mapset.Set[*PackageRequirement]
}

// NewInitialStep builds the step the search starts from: nothing explored
// or closed yet, and the given root requirements as the open frontier.
func NewInitialStep(roots []*PackageRequirement, relax bool) *ResolverStep {
	open := mapset.NewSet[*PackageRequirement]()
	for _, r := range roots {
		open.Add(r)
	}
	return &ResolverStep{
		Relax:             relax,
		FilteredVersions:  make(map[string]FilteredVersions),
		CurrentResolution: make(map[string]*ResolvedPackage),
		Closed:            mapset.NewSet[*PackageRequirement](),
		Open:              open,
	}
}

// clone produces a shallow-structure copy suitable for the immutable
// re-creation-on-descent discipline of spec.md §9: maps and sets are
// cloned one level deep (their *PackageRequirement / *ResolvedPackage
// values themselves are never mutated after construction, so a shallow
// clone is safe to share).
func (s *ResolverStep) clone() *ResolverStep {
	fv := make(map[string]FilteredVersions, len(s.FilteredVersions))
	for k, v := range s.FilteredVersions {
		fv[k] = v
	}
	cr := make(map[string]*ResolvedPackage, len(s.CurrentResolution))
	for k, v := range s.CurrentResolution {
		cr[k] = v
	}
	return &ResolverStep{
		Relax:             s.Relax,
		FilteredVersions:  fv,
		CurrentResolution: cr,
		Closed:            s.Closed.Clone(),
		Open:              s.Open.Clone(),
	}
}

func keyFor(name constraints.PackageName) string { return name.Key() }
