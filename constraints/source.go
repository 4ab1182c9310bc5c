package constraints

// PackageSource is an origin a package may be fetched from: a remote feed
// URL, or a local path feed (spec.md §3).
type PackageSource struct {
	URL         string
	IsLocalFeed bool
}

// NewSource builds a remote PackageSource.
func NewSource(url string) PackageSource { return PackageSource{URL: url} }

// NewLocalFeed builds a local-path PackageSource.
func NewLocalFeed(path string) PackageSource { return PackageSource{URL: path, IsLocalFeed: true} }

func (s PackageSource) String() string { return s.URL }

// NugetOrg is the well-known default remote feed; the version candidate
// selector (spec.md §4.3) sorts it last among a requirement's own sources.
const NugetOrg = "https://api.nuget.org/v3/index.json"

// SortSourcesForSelection orders sources with local feeds first and
// nuget.org last, de-duplicating by URL, per spec.md §4.3's synthesized
// assumed-version cache entry rule.
func SortSourcesForSelection(sources []PackageSource) []PackageSource {
	seen := make(map[string]struct{}, len(sources))
	var local, mid, nuget []PackageSource
	for _, s := range sources {
		if _, dup := seen[s.URL]; dup {
			continue
		}
		seen[s.URL] = struct{}{}
		switch {
		case s.IsLocalFeed:
			local = append(local, s)
		case s.URL == NugetOrg:
			nuget = append(nuget, s)
		default:
			mid = append(mid, s)
		}
	}
	out := make([]PackageSource, 0, len(local)+len(mid)+len(nuget))
	out = append(out, local...)
	out = append(out, mid...)
	out = append(out, nuget...)
	return out
}

// PrependDeduped prepends src to the front of sources, de-duplicating by
// URL. Used when synthesizing an assumed-version cache entry whose sources
// are "the parent's source prepended to the requirement's own sources"
// (spec.md §4.3).
func PrependDeduped(src PackageSource, sources []PackageSource) []PackageSource {
	out := make([]PackageSource, 0, len(sources)+1)
	out = append(out, src)
	for _, s := range sources {
		if s.URL == src.URL {
			continue
		}
		out = append(out, s)
	}
	return out
}
