package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Kukkik42/Paket/constraints"
	"github.com/Kukkik42/Paket/workqueue"
)

// GetVersionsFunc lists the available versions for a name across the
// given sources (spec.md §6's get-versions oracle).
type GetVersionsFunc func(ctx context.Context, sources []constraints.PackageSource, group string, name constraints.PackageName) ([]VersionCache, error)

// GetPreferredVersionsFunc returns a priority prefix of preferred
// versions (pinned/locked/last-known) to prepend to the strategy-sorted
// candidate list (spec.md §6).
type GetPreferredVersionsFunc func(ctx context.Context, strategy constraints.ResolverStrategy, sources []constraints.PackageSource, group string, name constraints.PackageName) ([]VersionCache, error)

// GetPackageDetailsFunc fetches the authoritative per-version record
// (spec.md §6's get-package-details oracle).
type GetPackageDetailsFunc func(ctx context.Context, sources []constraints.PackageSource, group string, name constraints.PackageName, version constraints.SemVer) (*PackageDetails, error)

// UpdateKind discriminates the four update modes of spec.md §6.
type UpdateKind int

const (
	Install UpdateKind = iota
	UpdateAll
	UpdateGroup
	UpdateFiltered
)

// UpdateMode is the resolve-time policy passed to Resolve.
type UpdateMode struct {
	Kind   UpdateKind
	Group  string
	Filter func(constraints.PackageName) bool
}

// Bridge adapts the three injected oracle functions to the work queue:
// it memoizes in-flight requests by (sources, name[, version]), submits
// them at a caller-chosen priority, and exposes a blocking consume helper
// via GetAndReport (spec.md §4.8). It plays the same role in this module
// that bridge.go's sourceBridge plays for the teacher's solver: a
// solve-run-scoped adapter in front of the raw oracle.
type Bridge struct {
	getVersions  GetVersionsFunc
	getPreferred GetPreferredVersionsFunc
	getDetails   GetPackageDetailsFunc

	pool        *workqueue.Pool
	versionMemo *workqueue.RequestMemo
	detailMemo  *workqueue.RequestMemo
	taskTimeout time.Duration
	log         *logrus.Logger
	group       string
}

// NewBridge builds a Bridge over the given oracles and pool.
func NewBridge(getVersions GetVersionsFunc, getPreferred GetPreferredVersionsFunc, getDetails GetPackageDetailsFunc, pool *workqueue.Pool, taskTimeout time.Duration, log *logrus.Logger, group string) *Bridge {
	if log == nil {
		log = logrus.New()
	}
	return &Bridge{
		getVersions:  getVersions,
		getPreferred: getPreferred,
		getDetails:   getDetails,
		pool:         pool,
		versionMemo:  workqueue.NewRequestMemo(),
		detailMemo:   workqueue.NewRequestMemo(),
		taskTimeout:  taskTimeout,
		log:          log,
		group:        group,
	}
}

func sourceKey(sources []constraints.PackageSource) string {
	urls := make([]string, len(sources))
	for i, s := range sources {
		urls[i] = s.URL
	}
	return strings.Join(urls, "|")
}

func versionsKey(sources []constraints.PackageSource, name constraints.PackageName) string {
	return sourceKey(sources) + "#" + name.Key()
}

func detailsKey(sources []constraints.PackageSource, name constraints.PackageName, v constraints.SemVer) string {
	return versionsKey(sources, name) + "@" + v.String()
}

func sourceURLs(sources []constraints.PackageSource) []string {
	urls := make([]string, len(sources))
	for i, s := range sources {
		urls[i] = s.URL
	}
	return urls
}

// VersionListing is the result of a list-versions oracle round-trip:
// the strategy-sorted preferred prefix (spec.md §4.3's "preferred
// versions") and the full candidate list it should be prepended to.
type VersionListing struct {
	Preferred []VersionCache
	All       []VersionCache
}

// SubmitListVersions memoizes and submits a list-versions request for name
// at the given priority, returning a shared Handle. strategy controls the
// preferred-versions ordering prefix (spec.md §4.3's "preferred versions").
func (b *Bridge) SubmitListVersions(sources []constraints.PackageSource, name constraints.PackageName, strategy constraints.ResolverStrategy, priority workqueue.Priority) *workqueue.Handle {
	key := versionsKey(sources, name)
	return b.versionMemo.GetOrCreate(key, func() *workqueue.Handle {
		return b.pool.Submit(fmt.Sprintf("list-versions:%s", name), priority, sourceURLs(sources), func(ctx context.Context) (interface{}, error) {
			preferred, err := b.getPreferred(ctx, strategy, sources, b.group, name)
			if err != nil {
				return nil, errors.Wrapf(err, "listing preferred versions for %s", name)
			}
			versions, err := b.getVersions(ctx, sources, b.group, name)
			if err != nil {
				return nil, errors.Wrapf(err, "listing versions for %s", name)
			}
			return VersionListing{Preferred: preferred, All: versions}, nil
		})
	})
}

// SubmitGetDetails memoizes and submits a get-details request.
func (b *Bridge) SubmitGetDetails(sources []constraints.PackageSource, name constraints.PackageName, v constraints.SemVer, priority workqueue.Priority) *workqueue.Handle {
	key := detailsKey(sources, name, v)
	return b.detailMemo.GetOrCreate(key, func() *workqueue.Handle {
		return b.pool.Submit(fmt.Sprintf("get-details:%s@%s", name, v), priority, sourceURLs(sources), func(ctx context.Context) (interface{}, error) {
			d, err := b.getDetails(ctx, sources, b.group, name, v)
			if err != nil {
				return nil, errors.Wrapf(err, "fetching details for %s@%s", name, v)
			}
			return d, nil
		})
	})
}

// AwaitVersions is the blocking consume helper of spec.md §4.8 specialized
// to list-versions results.
func (b *Bridge) AwaitVersions(ctx context.Context, h *workqueue.Handle) (VersionListing, error) {
	v, err := b.pool.GetAndReport(ctx, h, b.taskTimeout)
	if err != nil {
		return VersionListing{}, err
	}
	vl, _ := v.(VersionListing)
	return vl, nil
}

// VersionsThunk returns spec.md §6's get-versions-thunk: a lazy callback
// that re-queries the raw get-versions oracle directly for name, bypassing
// the work queue entirely. A Conflict's Report is rendered well after the
// search that produced it returns, by which point the pool backing this
// Bridge may already be stopped — so the thunk talks straight to the
// oracle function instead of going through SubmitListVersions/AwaitVersions.
func (b *Bridge) VersionsThunk(sources []constraints.PackageSource, name constraints.PackageName) func(context.Context) ([]VersionCache, error) {
	return func(ctx context.Context) ([]VersionCache, error) {
		return b.getVersions(ctx, sources, b.group, name)
	}
}

// AwaitDetails is the blocking consume helper specialized to
// get-package-details results.
func (b *Bridge) AwaitDetails(ctx context.Context, h *workqueue.Handle) (*PackageDetails, error) {
	v, err := b.pool.GetAndReport(ctx, h, b.taskTimeout)
	if err != nil {
		return nil, err
	}
	d, _ := v.(*PackageDetails)
	return d, nil
}
