package resolve

import (
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/Kukkik42/Paket/constraints"
)

// RequirementSet is an unordered group of requirements implicated together
// in a single conflict (spec.md §4.5's `C`).
type RequirementSet struct {
	members mapset.Set[*PackageRequirement]
}

// NewRequirementSet builds a RequirementSet from the given requirements.
func NewRequirementSet(reqs ...*PackageRequirement) RequirementSet {
	s := mapset.NewSet[*PackageRequirement]()
	for _, r := range reqs {
		s.Add(r)
	}
	return RequirementSet{members: s}
}

// Contains reports whether req is a member.
func (s RequirementSet) Contains(req *PackageRequirement) bool { return s.members.Contains(req) }

// IsSubsetOf reports whether every member of s is also in other.
func (s RequirementSet) IsSubsetOf(other mapset.Set[*PackageRequirement]) bool {
	return s.members.IsSubset(other)
}

// Each iterates members; f returning true stops iteration early.
func (s RequirementSet) Each(f func(*PackageRequirement) bool) { s.members.Each(f) }

// anyMember returns an arbitrary member, or nil if s is empty. Members of a
// conflict set share the name the conflict was raised against, so picking
// any one suffices for spec.md §4.5's `C.any.name`.
func (s RequirementSet) anyMember() *PackageRequirement {
	var r *PackageRequirement
	s.members.Each(func(m *PackageRequirement) bool {
		r = m
		return true
	})
	return r
}

// anyName is spec.md §4.5's `C.any.name`.
func (s RequirementSet) anyName() constraints.PackageName {
	if m := s.anyMember(); m != nil {
		return m.Name
	}
	return constraints.PackageName("")
}

type knownConflict struct {
	set      RequirementSet
	selected *FilteredVersions // nil means the `None` case of spec.md §4.5
	name     string            // key of the requirement the selected entry was captured for
}

// ConflictTracker is the mutable, monotonically-accumulating collaborator
// of spec.md §4.5 and §9's "StackPack": known-conflicts and
// conflict-history survive backtracking even though ResolverStep does not.
// It is grounded on the teacher's own backtrack bookkeeping in
// solver.go, generalized to an explicit struct since this module's
// state machine does not recurse on the native stack.
type ConflictTracker struct {
	mu             sync.Mutex
	known          []knownConflict
	history        map[string]int
	lastConflictAt time.Time
	haveLast       bool
	log            *logrus.Logger
}

// NewConflictTracker returns an empty tracker.
func NewConflictTracker(log *logrus.Logger) *ConflictTracker {
	if log == nil {
		log = logrus.New()
	}
	return &ConflictTracker{history: make(map[string]int), log: log}
}

// Reset clears known-conflicts and conflict-history, used by the
// top-level relaxation retry of spec.md §7.
func (t *ConflictTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.known = nil
	t.history = make(map[string]int)
	t.haveLast = false
}

// GetConflicts implements spec.md §4.5's get-conflicts: it replays every
// known conflict still reachable from the current search position and
// returns their union, or an empty set if nothing replays.
func (t *ConflictTracker) GetConflicts(step *ResolverStep, current *PackageRequirement) mapset.Set[*PackageRequirement] {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := mapset.NewSet[*PackageRequirement]()
	step.Open.Each(func(r *PackageRequirement) bool {
		if !r.Graph.Contains(current) {
			a.Add(r)
		}
		return false
	})
	step.Closed.Each(func(r *PackageRequirement) bool {
		a.Add(r)
		return false
	})

	union := mapset.NewSet[*PackageRequirement]()
	for _, kc := range t.known {
		if !kc.set.IsSubsetOf(a) {
			continue
		}
		if kc.selected == nil {
			union = union.Union(kc.set.members)
			continue
		}
		if fv, ok := step.FilteredVersions[kc.name]; ok && candidatesEqual(fv, *kc.selected) {
			union = union.Union(kc.set.members)
		}
	}
	return union
}

func candidatesEqual(a, b FilteredVersions) bool {
	if a.GlobalOverride != b.GlobalOverride || len(a.Candidates) != len(b.Candidates) {
		return false
	}
	for i := range a.Candidates {
		if !a.Candidates[i].Version.Equal(b.Candidates[i].Version) {
			return false
		}
	}
	return true
}

// BoostConflicts implements spec.md §4.5's boost-conflicts: it records the
// conflict, bumps conflict-history for current's name, and surfaces a
// *TimeoutWarning when this is a repeat conflict observed ≥10s after the
// last user-visible one.
func (t *ConflictTracker) BoostConflicts(filteredVersions map[string]FilteredVersions, current *PackageRequirement, conflicts mapset.Set[*PackageRequirement]) *TimeoutWarning {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := keyFor(current.Name)
	isNew := t.history[key] == 0
	t.history[key]++

	rs := RequirementSet{members: conflicts}
	if mpc := minimumParentConflict(conflicts); mpc != nil {
		if fv, ok := filteredVersions[keyFor(mpc.Name)]; ok {
			fvCopy := fv
			t.known = append(t.known, knownConflict{set: rs, selected: &fvCopy, name: keyFor(mpc.Name)})
		} else {
			t.known = append(t.known, knownConflict{set: rs})
		}
	} else {
		t.known = append(t.known, knownConflict{set: rs})
	}

	var warn *TimeoutWarning
	now := time.Now()
	if t.haveLast && !isNew && now.Sub(t.lastConflictAt) >= 10*time.Second {
		warn = &TimeoutWarning{Name: current.Name}
	}
	t.lastConflictAt = now
	t.haveLast = true
	return warn
}

// minimumParentConflict picks the requirement in conflicts whose parent
// sorts first under (parent name, parent version) — spec.md §9's
// recommended total order, used here to resolve the open question about
// the underspecified `minimum-parent-conflict` selection deterministically.
func minimumParentConflict(conflicts mapset.Set[*PackageRequirement]) *PackageRequirement {
	all := conflicts.ToSlice()
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].Parent, all[j].Parent
		if a.Name.Key() != b.Name.Key() {
			return a.Name.Key() < b.Name.Key()
		}
		return a.Version.String() < b.Version.String()
	})
	return all[0]
}

// History returns the current conflict-history count for name.
func (t *ConflictTracker) History(name constraints.PackageName) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history[keyFor(name)]
}

// GetCurrentRequirement implements spec.md §4.5's get-current-requirement:
// a composite minimum over open that front-loads names UpdateFiltered's
// packageFilter admits, then names with the deepest conflict history, then
// shallower, then lexicographic name as a deterministic tiebreaker.
func (t *ConflictTracker) GetCurrentRequirement(open mapset.Set[*PackageRequirement], packageFilter func(constraints.PackageName) bool) *PackageRequirement {
	all := open.ToSlice()
	if len(all) == 0 {
		return nil
	}

	t.mu.Lock()
	history := make(map[string]int, len(t.history))
	for k, v := range t.history {
		history[k] = v
	}
	t.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if packageFilter != nil {
			af, bf := !packageFilter(a.Name), !packageFilter(b.Name)
			if af != bf {
				return !af
			}
		}
		ah, bh := history[keyFor(a.Name)], history[keyFor(b.Name)]
		if ah != bh {
			return ah > bh
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Name.Key() != b.Name.Key() {
			return a.Name.Key() < b.Name.Key()
		}
		// Same name, same depth, same history: two distinct requirements
		// on the same package (e.g. ">=2" and "<2") would otherwise compare
		// equal and leave the pick to ToSlice's hash-set iteration order.
		// Break the tie on the requirement's own range text for a total,
		// run-to-run-stable order (spec.md §9's "pick a total order
		// explicitly").
		return a.VersionRequirement.String() < b.VersionRequirement.String()
	})
	return all[0]
}
