package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/chronodose-cli/internal/fetcher"
)

// Source downloads department snapshots. Unchanged documents are served from
// an in-memory ETag cache so a long-running server does not re-download them.
type Source struct {
	fetcher     fetcher.Fetcher
	baseURL     string
	concurrency int

	mu    sync.Mutex
	cache map[string]cachedDepartment
}

type cachedDepartment struct {
	etag string
	dept *Department
}

// NewSource creates a Source reading <baseURL>/<NN>.json documents.
func NewSource(f fetcher.Fetcher, baseURL string, concurrency int) *Source {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Source{
		fetcher:     f,
		baseURL:     strings.TrimRight(baseURL, "/"),
		concurrency: concurrency,
		cache:       make(map[string]cachedDepartment),
	}
}

// DepartmentURL returns the snapshot URL of a department code.
func (s *Source) DepartmentURL(code int) string {
	return fmt.Sprintf("%s/%02d.json", s.baseURL, code)
}

// Department downloads and decodes one department snapshot.
func (s *Source) Department(ctx context.Context, code int) (*Department, error) {
	u := s.DepartmentURL(code)

	s.mu.Lock()
	prev, hasPrev := s.cache[u]
	s.mu.Unlock()

	body, etag, changed, err := s.fetcher.DownloadIfChanged(ctx, u, prev.etag)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: download department %02d", code)
	}
	if !changed && hasPrev {
		zap.L().Debug("feed: department unchanged", zap.Int("department", code))
		return prev.dept, nil
	}
	if body == nil {
		return nil, eris.Errorf("feed: department %02d: empty response", code)
	}
	defer body.Close() //nolint:errcheck

	dept, err := fetcher.DecodeJSONObject[Department](body)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: decode department %02d", code)
	}
	if etag != "" {
		s.mu.Lock()
		s.cache[u] = cachedDepartment{etag: etag, dept: dept}
		s.mu.Unlock()
	}
	return dept, nil
}

// FetchDepartments downloads every code concurrently. A department that fails
// is logged and skipped; an error is returned only when all of them failed.
// The result keeps the order of codes.
func (s *Source) FetchDepartments(ctx context.Context, codes []int) ([]*Department, error) {
	results := make([]*Department, len(codes))
	errs := make([]error, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, code := range codes {
		g.Go(func() error {
			dept, err := s.Department(gctx, code)
			if err != nil {
				zap.L().Warn("feed: skipping department", zap.Int("department", code), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = dept
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*Department, 0, len(codes))
	for _, d := range results {
		if d != nil {
			out = append(out, d)
		}
	}
	zap.L().Info("feed: parsed departments", zap.Int("ok", len(out)), zap.Int("requested", len(codes)))

	if len(out) == 0 && len(codes) > 0 {
		return nil, eris.Wrap(errs[0], "feed: every department failed")
	}
	return out, nil
}
