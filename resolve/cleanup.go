package resolve

import "github.com/Kukkik42/Paket/constraints"

// CleanupNames implements spec.md §4.6's cleanupNames: package names
// compare case-insensitively throughout the search (constraints.PackageName
// keys on a lowercased form), but the user-visible casing should be
// whichever one actually got bound to a resolution. This rewrites every
// resolved package's dependency name tokens to that canonical casing.
//
// Applying it twice is idempotent (spec.md §8 property 4): the second pass
// finds every dependency edge's name already equal to the canonical one it
// would rewrite it to.
func CleanupNames(resolution map[string]*ResolvedPackage) map[string]*ResolvedPackage {
	canonical := make(map[string]string, len(resolution))
	for _, rp := range resolution {
		canonical[rp.Name.Key()] = string(rp.Name)
	}

	out := make(map[string]*ResolvedPackage, len(resolution))
	for key, rp := range resolution {
		deps := make([]DependencyEdge, len(rp.Dependencies))
		for i, d := range rp.Dependencies {
			deps[i] = d
			if name, ok := canonical[d.Name.Key()]; ok {
				deps[i].Name = constraints.PackageName(name)
			}
		}
		clone := *rp
		clone.Dependencies = deps
		out[key] = &clone
	}
	return out
}
