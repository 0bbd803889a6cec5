package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"metcatalog/internal/cache"
	"metcatalog/internal/errors"
	"metcatalog/internal/logging"
	"metcatalog/internal/model"
)

// Works resolves work details, cache first.
type Works struct {
	fetcher Fetcher
	store   *cache.Store
	logger  *slog.Logger
	group   singleflight.Group
}

// NewWorks creates the work-details service.
func NewWorks(fetcher Fetcher, store *cache.Store, logger *slog.Logger) *Works {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Works{fetcher: fetcher, store: store, logger: logger.With(slog.String("service", "works"))}
}

// Work returns the work with the given id.
func (s *Works) Work(ctx context.Context, id int) (*model.Work, error) {
	if id <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "service", "Work",
			fmt.Sprintf("work id must be positive, got %d", id))
	}

	if w, ok := s.store.Work(id); ok {
		s.logger.Debug("work cache hit", slog.Int("id", id))
		return w, nil
	}

	v, err, shared := s.group.Do(strconv.Itoa(id), func() (any, error) {
		obj, err := s.fetcher.Object(ctx, id)
		if err != nil {
			return nil, err
		}
		w, err := WorkFromObject(obj)
		if err != nil {
			return nil, err
		}
		if err := s.store.PutWork(w); err != nil {
			return nil, err
		}
		return w, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "service", "Work", "load work "+strconv.Itoa(id))
	}
	s.logger.Debug("work loaded from api", slog.Int("id", id), slog.Bool("shared", shared))
	return v.(*model.Work), nil
}

// CachedByClassification lists cached works of a classification, matched
// case-insensitively, without calling the API.
func (s *Works) CachedByClassification(classification string) []*model.Work {
	classification = strings.TrimSpace(classification)
	return s.store.FindWorks(func(w *model.Work) bool {
		return strings.EqualFold(w.Classification, classification)
	})
}

// FormatDetails renders the full detail view of w.
func FormatDetails(w *model.Work) string {
	rule := strings.Repeat("=", 60)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nWORK DETAILS\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "ID: %d\n", w.ID)
	fmt.Fprintf(&b, "Title: %s\n\n", w.Title)

	b.WriteString("ARTIST:\n")
	fmt.Fprintf(&b, "  Name: %s\n", w.Artist.Name)
	if w.Artist.Nationality != "" {
		fmt.Fprintf(&b, "  Nationality: %s\n", w.Artist.Nationality)
	}
	if w.Artist.BeginDate != "" || w.Artist.EndDate != "" {
		fmt.Fprintf(&b, "  Lifespan: %s\n", w.Artist.Lifespan())
	}
	b.WriteString("\n")

	if w.Classification != "" {
		fmt.Fprintf(&b, "Classification: %s\n", w.Classification)
	}
	if w.ObjectDate != "" {
		fmt.Fprintf(&b, "Date: %s\n", w.ObjectDate)
	}
	if w.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", w.Department)
	}
	if w.HasImage() {
		fmt.Fprintf(&b, "Image: %s\n", w.ImageURL)
	} else {
		b.WriteString("Image: not available\n")
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	return b.String()
}
