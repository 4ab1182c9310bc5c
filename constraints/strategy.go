package constraints

// ResolverStrategy is the version-ordering policy used in the absence of a
// pin: Max prefers the newest admissible version, Min the oldest.
type ResolverStrategy int

const (
	// Max orders candidates newest-first. It is the default strategy
	// whenever no override applies (spec.md §4.4).
	Max ResolverStrategy = iota
	Min
)

func (s ResolverStrategy) String() string {
	if s == Min {
		return "Min"
	}
	return "Max"
}

// StrategyOverride is an optional, per-requirement strategy override. The
// zero value means "no override", distinct from an explicit Max override.
type StrategyOverride struct {
	set   bool
	value ResolverStrategy
}

// OverrideStrategy returns a set override pinned to s.
func OverrideStrategy(s ResolverStrategy) StrategyOverride {
	return StrategyOverride{set: true, value: s}
}

// NoOverride returns the unset override.
func NoOverride() StrategyOverride { return StrategyOverride{} }

// IsSet reports whether this override carries an explicit strategy.
func (o StrategyOverride) IsSet() bool { return o.set }

// Value returns the overridden strategy; only meaningful when IsSet.
func (o StrategyOverride) Value() ResolverStrategy { return o.value }

// Combine left-biasedly folds two overrides: if o is set, it wins;
// otherwise other is used. This is the monoidal combine spec.md §4.4
// requires when folding a sorted list of same-name requirements' strategy
// overrides.
func (o StrategyOverride) Combine(other StrategyOverride) StrategyOverride {
	if o.set {
		return o
	}
	return other
}

// OrDefault resolves an override to a concrete strategy, falling back to
// def (typically Max, per spec.md §4.4's "defaulting to Max").
func (o StrategyOverride) OrDefault(def ResolverStrategy) ResolverStrategy {
	if o.set {
		return o.value
	}
	return def
}
