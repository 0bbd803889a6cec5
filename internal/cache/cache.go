package cache

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"metcatalog/internal/errors"
	"metcatalog/internal/model"
)

// Default region lifetimes and the auto-cleanup threshold.
const (
	DefaultWorksTTL             = 600 * time.Second
	DefaultDepartmentsTTL       = 1800 * time.Second
	DefaultSearchesTTL          = 300 * time.Second
	DefaultDepartmentIDsTTL     = 180 * time.Second
	DefaultAutoCleanupThreshold = 1000
)

// Config controls region lifetimes and maintenance behavior.
//
// Zero values fall back to the defaults above.
// CleanupInterval <= 0 disables background cleanup; lazy expiration and the
// size-triggered sweep still work without it.
type Config struct {
	WorksTTL             time.Duration
	DepartmentsTTL       time.Duration
	SearchesTTL          time.Duration
	DepartmentIDsTTL     time.Duration
	AutoCleanupThreshold int
	CleanupInterval      time.Duration
}

// DefaultConfig returns the production region settings.
func DefaultConfig() Config {
	return Config{
		WorksTTL:             DefaultWorksTTL,
		DepartmentsTTL:       DefaultDepartmentsTTL,
		SearchesTTL:          DefaultSearchesTTL,
		DepartmentIDsTTL:     DefaultDepartmentIDsTTL,
		AutoCleanupThreshold: DefaultAutoCleanupThreshold,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorksTTL <= 0 {
		c.WorksTTL = d.WorksTTL
	}
	if c.DepartmentsTTL <= 0 {
		c.DepartmentsTTL = d.DepartmentsTTL
	}
	if c.SearchesTTL <= 0 {
		c.SearchesTTL = d.SearchesTTL
	}
	if c.DepartmentIDsTTL <= 0 {
		c.DepartmentIDsTTL = d.DepartmentIDsTTL
	}
	if c.AutoCleanupThreshold <= 0 {
		c.AutoCleanupThreshold = d.AutoCleanupThreshold
	}
	return c
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for maintenance events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now as the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the catalog cache: four independent TTL regions (works,
// departments, search results, department id lists) plus hit/miss
// counters.
//
// A single mutex guards every region and every counter, and each public
// method holds it for its whole duration, including the size-triggered
// sweep run from inside a write.
//
// Ownership model:
// Store owns its maintenance goroutine (if enabled). Call Close to stop it.
type Store struct {
	mu sync.Mutex

	cfg    Config
	now    func() time.Time
	logger *slog.Logger

	works         map[int]*Entry[*model.Work]
	departments   *Entry[[]model.Department] // single slot, nil when empty
	searches      map[string]*Entry[[]int]
	departmentIDs map[int]*Entry[[]int]

	counters     [regionCount]regionCounters
	autoCleanups int64

	// Goroutine ownership.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New constructs a store and starts background maintenance (if enabled).
//
// New never returns a nil Store.
func New(cfg Config, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Store{
		cfg:           cfg.withDefaults(),
		now:           time.Now,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		works:         make(map[int]*Entry[*model.Work]),
		searches:      make(map[string]*Entry[[]int]),
		departmentIDs: make(map[int]*Entry[[]int]),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.cfg.CleanupInterval > 0 {
		s.wg.Add(1)
		go s.expiryLoop()
	}

	return s
}

// Close stops background maintenance. The store stays usable afterwards;
// only the periodic sweep ends.
//
// Close is safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	return nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// SearchKey builds the canonical search-result key, e.g.
// SearchKey("artist", " Monet") == "artist:monet".
func SearchKey(kind, term string) string {
	return kind + ":" + strings.ToLower(strings.TrimSpace(term))
}

// Work returns a cached work. Absent or expired entries count as a miss;
// expired entries are removed.
func (s *Store) Work(id int) (*model.Work, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getLocked(s, RegionWorks, s.works, id)
}

// PutWork stores w under its id, replacing any previous entry.
func (s *Store) PutWork(w *model.Work) error {
	if err := w.Validate(); err != nil {
		return errors.WrapInvalid(err, "cache", "PutWork", "reject work")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.works[w.ID] = newEntryAt(w, s.cfg.WorksTTL, s.now())
	s.autoCleanupLocked()
	return nil
}

// Departments returns the cached department list.
func (s *Store) Departments() ([]model.Department, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.departments; e != nil {
		if e.validAt(s.now()) {
			s.counters[RegionDepartments].hits++
			return slices.Clone(e.value), true
		}
		s.departments = nil
		s.counters[RegionDepartments].expired++
	}
	s.counters[RegionDepartments].misses++
	return nil, false
}

// PutDepartments replaces the department list slot. A nil slice is
// rejected; an empty one is stored.
func (s *Store) PutDepartments(departments []model.Department) error {
	if departments == nil {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "cache", "PutDepartments", "departments list is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.departments = newEntryAt(slices.Clone(departments), s.cfg.DepartmentsTTL, s.now())
	return nil
}

// SearchResult returns the cached work ids for a search key.
func (s *Store) SearchResult(key string) ([]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := getLocked(s, RegionSearches, s.searches, key)
	return slices.Clone(ids), ok
}

// PutSearchResult stores the work ids matched by a search key.
func (s *Store) PutSearchResult(key string, ids []int) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "cache", "PutSearchResult", "search key cannot be empty")
	}
	if ids == nil {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "cache", "PutSearchResult", "ids list is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.searches[key] = newEntryAt(slices.Clone(ids), s.cfg.SearchesTTL, s.now())
	s.autoCleanupLocked()
	return nil
}

// DepartmentIDs returns the cached work ids of a department.
func (s *Store) DepartmentIDs(deptID int) ([]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := getLocked(s, RegionDepartmentIDs, s.departmentIDs, deptID)
	return slices.Clone(ids), ok
}

// PutDepartmentIDs stores the work ids of a department.
func (s *Store) PutDepartmentIDs(deptID int, ids []int) error {
	if deptID <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "cache", "PutDepartmentIDs",
			fmt.Sprintf("department id must be positive, got %d", deptID))
	}
	if ids == nil {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "cache", "PutDepartmentIDs", "ids list is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.departmentIDs[deptID] = newEntryAt(slices.Clone(ids), s.cfg.DepartmentIDsTTL, s.now())
	s.autoCleanupLocked()
	return nil
}

// FindWorks returns the currently valid works matching pred, ordered by id.
// Expired entries are skipped but left in place.
//
// pred runs under the store lock and must not call back into the store.
func (s *Store) FindWorks(pred func(*model.Work) bool) []*model.Work {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []*model.Work
	for _, e := range s.works {
		if e.validAt(now) && pred(e.value) {
			out = append(out, e.value)
		}
	}
	slices.SortFunc(out, func(a, b *model.Work) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// InvalidateWorks empties the works region.
func (s *Store) InvalidateWorks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.works)
}

// InvalidateDepartments empties the department list slot.
func (s *Store) InvalidateDepartments() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments = nil
}

// InvalidateSearches empties the search-results region.
func (s *Store) InvalidateSearches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.searches)
}

// InvalidateDepartmentIDs empties the department id lists region.
func (s *Store) InvalidateDepartmentIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.departmentIDs)
}

// InvalidateAll empties every region in one step. Counters are kept.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.works)
	s.departments = nil
	clear(s.searches)
	clear(s.departmentIDs)
}

// getLocked performs a lookup with hit/miss accounting and lazy expiry.
func getLocked[K comparable, V any](s *Store, r Region, m map[K]*Entry[V], key K) (V, bool) {
	if e, ok := m[key]; ok {
		if e.validAt(s.now()) {
			s.counters[r].hits++
			return e.value, true
		}
		delete(m, key)
		s.counters[r].expired++
	}
	s.counters[r].misses++
	var zero V
	return zero, false
}

// autoCleanupLocked sweeps expired entries once the unbounded regions
// together hold more than the configured threshold.
func (s *Store) autoCleanupLocked() {
	total := len(s.works) + len(s.searches) + len(s.departmentIDs)
	if total <= s.cfg.AutoCleanupThreshold {
		return
	}

	report := s.deleteExpiredLocked(s.now())
	s.autoCleanups++
	s.logger.Debug("cache auto cleanup",
		slog.Int("entries", total),
		slog.Int("removed", report.Total()),
		slog.Int64("auto_cleanups", s.autoCleanups))
}

// deleteExpiredLocked removes every invalid entry from every region.
//
// This is O(n) over all regions.
func (s *Store) deleteExpiredLocked(now time.Time) CleanupReport {
	report := CleanupReport{
		Works:         sweep(s.works, now),
		Searches:      sweep(s.searches, now),
		DepartmentIDs: sweep(s.departmentIDs, now),
	}
	if s.departments != nil && !s.departments.validAt(now) {
		s.departments = nil
		report.Departments = 1
	}

	s.counters[RegionWorks].expired += int64(report.Works)
	s.counters[RegionSearches].expired += int64(report.Searches)
	s.counters[RegionDepartmentIDs].expired += int64(report.DepartmentIDs)
	s.counters[RegionDepartments].expired += int64(report.Departments)
	return report
}

func sweep[K comparable, V any](m map[K]*Entry[V], now time.Time) int {
	removed := 0
	for key, e := range m {
		if !e.validAt(now) {
			delete(m, key)
			removed++
		}
	}
	return removed
}
