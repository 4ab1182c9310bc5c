package constraints

// PreReleaseKind discriminates the three prerelease admission policies a
// VersionRequirement can carry.
type PreReleaseKind int

const (
	// PreReleaseNo admits no prerelease versions.
	PreReleaseNo PreReleaseKind = iota
	// PreReleaseAll admits any prerelease version.
	PreReleaseAll
	// PreReleaseConcrete admits only versions whose prerelease label is in
	// the attached allow-list.
	PreReleaseConcrete
)

// PreReleaseStatus is the No | All | Concrete <labels> policy attached to a
// VersionRequirement.
type PreReleaseStatus struct {
	kind   PreReleaseKind
	labels map[string]struct{}
}

// NoPrereleases returns the policy that admits only stable versions.
func NoPrereleases() PreReleaseStatus { return PreReleaseStatus{kind: PreReleaseNo} }

// AllPrereleases returns the policy that admits every prerelease label.
func AllPrereleases() PreReleaseStatus { return PreReleaseStatus{kind: PreReleaseAll} }

// ConcretePrereleases returns the policy that admits only the given labels.
func ConcretePrereleases(labels ...string) PreReleaseStatus {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return PreReleaseStatus{kind: PreReleaseConcrete, labels: set}
}

// Kind reports which of the three policies this status is.
func (p PreReleaseStatus) Kind() PreReleaseKind { return p.kind }

// IsAllReleases reports whether this is the PreReleaseAll policy; it is
// consulted by the empty-fallback logic of the version candidate selector
// to decide whether a root requirement's own policy, rather than a blanket
// All, should be used when every available version turns out to be a
// prerelease.
func (p PreReleaseStatus) IsAllReleases() bool { return p.kind == PreReleaseAll }

// Equal reports structural equality of two prerelease policies, used by
// the dependency-compression step of the requirement-merge (spec.md §4.2
// step 1) to decide whether two entries for the same package name share a
// policy and can be merged.
func (p PreReleaseStatus) Equal(o PreReleaseStatus) bool {
	if p.kind != o.kind {
		return false
	}
	if p.kind != PreReleaseConcrete {
		return true
	}
	if len(p.labels) != len(o.labels) {
		return false
	}
	for l := range p.labels {
		if _, ok := o.labels[l]; !ok {
			return false
		}
	}
	return true
}

// Admits reports whether v is allowed under this policy: a stable version
// always is, and a prerelease is judged by its prerelease label.
func (p PreReleaseStatus) Admits(v SemVer) bool {
	if !v.IsPrerelease() {
		return true
	}
	switch p.kind {
	case PreReleaseAll:
		return true
	case PreReleaseConcrete:
		_, ok := p.labels[v.Prerelease()]
		return ok
	default:
		return false
	}
}
