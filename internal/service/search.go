package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"metcatalog/internal/cache"
	"metcatalog/internal/errors"
	"metcatalog/internal/logging"
	"metcatalog/internal/model"
	"metcatalog/internal/nationality"
)

// Search finds works by department, artist nationality or artist name.
type Search struct {
	fetcher       Fetcher
	store         *cache.Store
	works         *Works
	nationalities *nationality.Registry
	logger        *slog.Logger
	concurrency   int
	group         singleflight.Group
}

// NewSearch creates the search service. works resolves ids into works and
// must share store.
func NewSearch(fetcher Fetcher, store *cache.Store, works *Works, nationalities *nationality.Registry, logger *slog.Logger) *Search {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Search{
		fetcher:       fetcher,
		store:         store,
		works:         works,
		nationalities: nationalities,
		logger:        logger.With(slog.String("service", "search")),
		concurrency:   5,
	}
}

// Departments lists the museum departments sorted by name.
func (s *Search) Departments(ctx context.Context) ([]model.Department, error) {
	depts, ok := s.store.Departments()
	if !ok {
		v, err, _ := s.group.Do("departments", func() (any, error) {
			raw, err := s.fetcher.Departments(ctx)
			if err != nil {
				return nil, err
			}
			depts := departmentsFromAPI(raw)
			if err := s.store.PutDepartments(depts); err != nil {
				return nil, err
			}
			return depts, nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "service", "Departments", "load departments")
		}
		depts = slices.Clone(v.([]model.Department))
	}

	slices.SortStableFunc(depts, func(a, b model.Department) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return depts, nil
}

// ByDepartment returns up to 20 works of a department. It fails when more
// than half of them cannot be loaded.
func (s *Search) ByDepartment(ctx context.Context, deptID int) ([]*model.Work, error) {
	if deptID <= 0 {
		return nil, errors.WrapInvalid(ErrInvalidDepartment, "service", "ByDepartment",
			fmt.Sprintf("department id must be positive, got %d", deptID))
	}
	logger := s.logger.With(slog.Int("department_id", deptID))

	ids, ok := s.store.DepartmentIDs(deptID)
	if ok {
		logger.Debug("department ids cache hit", slog.Int("count", len(ids)))
	} else {
		v, err, _ := s.group.Do(fmt.Sprintf("department:%d", deptID), func() (any, error) {
			ids, err := s.fetcher.ObjectsByDepartment(ctx, deptID)
			if err != nil {
				return nil, err
			}
			if ids == nil {
				ids = []int{}
			}
			if err := s.store.PutDepartmentIDs(deptID, ids); err != nil {
				return nil, err
			}
			return ids, nil
		})
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.WrapInvalid(ErrInvalidDepartment, "service", "ByDepartment",
					fmt.Sprintf("department %d not found", deptID))
			}
			return nil, errors.Wrap(err, "service", "ByDepartment", "load department ids")
		}
		ids = v.([]int)
		logger.Info("department ids loaded from api", slog.Int("count", len(ids)))
	}

	ids = ids[:min(len(ids), departmentLimit)]
	works, failures, err := s.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(failures) > len(ids)/2 {
		return nil, errors.WrapTransient(ErrTooManyFailures, "service", "ByDepartment",
			fmt.Sprintf("%d of %d works failed, first: %v", len(failures), len(ids), failures[0]))
	}
	return works, nil
}

// ByNationality returns works, among the first 30 search hits, whose
// artist nationality contains nat.
func (s *Search) ByNationality(ctx context.Context, nat string) ([]*model.Work, error) {
	nat = strings.TrimSpace(nat)
	if nat == "" {
		return nil, errors.WrapInvalid(ErrInvalidNationality, "service", "ByNationality", "nationality cannot be empty")
	}
	if s.nationalities != nil && !s.nationalities.Valid(nat) {
		return nil, errors.WrapInvalid(ErrInvalidNationality, "service", "ByNationality",
			fmt.Sprintf("unknown nationality %q", nat))
	}

	ids, err := s.searchIDs(ctx, cache.SearchKey("nationality", nat), nat)
	if err != nil {
		return nil, errors.Wrap(err, "service", "ByNationality", "search "+nat)
	}

	ids = ids[:min(len(ids), nationalityLimit)]
	works, _, err := s.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(nat)
	return slices.DeleteFunc(works, func(w *model.Work) bool {
		return !strings.Contains(strings.ToLower(w.Artist.Nationality), needle)
	}), nil
}

// ByArtist returns works, among the first 25 search hits, whose artist
// name contains the sanitized name.
func (s *Search) ByArtist(ctx context.Context, name string) ([]*model.Work, error) {
	name = SanitizeArtistName(name)
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "service", "ByArtist", "artist name cannot be empty")
	}

	ids, err := s.searchIDs(ctx, cache.SearchKey("artist", name), name)
	if err != nil {
		return nil, errors.Wrap(err, "service", "ByArtist", "search "+name)
	}

	ids = ids[:min(len(ids), artistLimit)]
	works, failures, err := s.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		s.logger.Warn("some works could not be loaded",
			slog.String("artist", name), slog.Int("failed", len(failures)), slog.Int("total", len(ids)))
	}
	needle := strings.ToLower(name)
	return slices.DeleteFunc(works, func(w *model.Work) bool {
		return !strings.Contains(strings.ToLower(w.Artist.Name), needle)
	}), nil
}

// searchIDs returns the ids of a free-text search, cache first.
func (s *Search) searchIDs(ctx context.Context, key, query string) ([]int, error) {
	if ids, ok := s.store.SearchResult(key); ok {
		s.logger.Debug("search cache hit", slog.String("key", key), slog.Int("count", len(ids)))
		return ids, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		ids, err := s.fetcher.Search(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []int{}
		}
		if err := s.store.PutSearchResult(key, ids); err != nil {
			return nil, err
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	ids := v.([]int)
	s.logger.Info("search loaded from api", slog.String("key", key), slog.Int("count", len(ids)))
	return ids, nil
}

// resolve loads works for ids concurrently, keeping id order. Per-work
// failures are collected; only cancellation aborts the whole call.
func (s *Search) resolve(ctx context.Context, ids []int) ([]*model.Work, []error, error) {
	results := make([]*model.Work, len(ids))
	failed := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			w, err := s.works.Work(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed[i] = err
				return nil
			}
			results[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	works := make([]*model.Work, 0, len(ids))
	var failures []error
	for i := range ids {
		if failed[i] != nil {
			failures = append(failures, failed[i])
			continue
		}
		works = append(works, results[i])
	}
	return works, failures, nil
}

// SanitizeArtistName keeps ASCII letters, digits, spaces and . - ' and
// collapses runs of spaces.
func SanitizeArtistName(name string) string {
	kept := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '.', r == '-', r == '\'':
			return r
		default:
			return -1
		}
	}, name)
	return strings.Join(strings.Fields(kept), " ")
}
