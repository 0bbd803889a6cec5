package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metcatalog/internal/errors"
	"metcatalog/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, cfg Config) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	s := New(cfg, WithClock(clock.Now))
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func work(id int, classification string) *model.Work {
	return &model.Work{
		ID:             id,
		Title:          fmt.Sprintf("Work %d", id),
		Artist:         model.Artist{Name: "Claude Monet", Nationality: "French"},
		Classification: classification,
	}
}

func TestWork_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	w := work(1, "Paintings")
	require.NoError(t, s.PutWork(w))

	got, ok := s.Work(1)
	require.True(t, ok)
	assert.Equal(t, w, got)

	_, ok = s.Work(999)
	assert.False(t, ok)
}

func TestWork_ExpiredIsMissAndRemoved(t *testing.T) {
	s, clock := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(1, "")))
	clock.Advance(DefaultWorksTTL)

	_, ok := s.Work(1)
	assert.False(t, ok)

	st := s.Stats()
	assert.Equal(t, 0, st.Works.Entries, "expired entry should be removed on read")
	assert.Equal(t, int64(1), st.Works.Misses)
	assert.Equal(t, int64(1), st.Works.Expired)
}

func TestPutWork_OverwriteKeepsOneEntry(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(7, "Paintings")))
	newer := work(7, "Sculpture")
	newer.Title = "Renamed"
	require.NoError(t, s.PutWork(newer))

	assert.Equal(t, 1, s.Stats().Works.Entries)
	got, ok := s.Work(7)
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Title)
}

func TestPutWork_RejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	err := s.PutWork(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	assert.True(t, errors.IsInvalid(err))

	err = s.PutWork(&model.Work{ID: -1, Title: "x", Artist: model.Artist{Name: "a"}})
	assert.True(t, errors.IsInvalid(err))

	assert.Equal(t, 0, s.Stats().Works.Entries, "rejected puts must not touch the store")
}

func TestPut_RejectsNilLists(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	assert.True(t, errors.IsInvalid(s.PutDepartments(nil)))
	assert.True(t, errors.IsInvalid(s.PutSearchResult("artist:monet", nil)))
	assert.True(t, errors.IsInvalid(s.PutSearchResult("", []int{1})))
	assert.True(t, errors.IsInvalid(s.PutDepartmentIDs(3, nil)))
	assert.True(t, errors.IsInvalid(s.PutDepartmentIDs(-3, []int{1})))

	assert.Zero(t, s.Stats().TotalEntries())
}

func TestPut_EmptyListsAreStored(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	require.NoError(t, s.PutDepartments([]model.Department{}))
	require.NoError(t, s.PutSearchResult("artist:nobody", []int{}))

	d, ok := s.Departments()
	assert.True(t, ok)
	assert.Empty(t, d)

	ids, ok := s.SearchResult("artist:nobody")
	assert.True(t, ok)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestDepartments_EndToEnd(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	dept := model.Department{ID: 1, Name: "European Paintings"}
	require.NoError(t, s.PutDepartments([]model.Department{dept}))

	got, ok := s.Departments()
	require.True(t, ok)
	if diff := cmp.Diff([]model.Department{dept}, got); diff != "" {
		t.Errorf("departments mismatch (-want +got):\n%s", diff)
	}

	s.InvalidateDepartments()
	_, ok = s.Departments()
	assert.False(t, ok)
}

func TestDepartments_Expire(t *testing.T) {
	s, clock := newTestStore(t, Config{})

	require.NoError(t, s.PutDepartments([]model.Department{{ID: 1, Name: "Arms and Armor"}}))
	clock.Advance(DefaultDepartmentsTTL - time.Second)
	_, ok := s.Departments()
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = s.Departments()
	assert.False(t, ok)

	st := s.Stats().Departments
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 0, st.Entries)
}

func TestSearchResult_ReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	ids := []int{1, 2, 3}
	require.NoError(t, s.PutSearchResult(SearchKey("artist", "Monet"), ids))
	ids[0] = 100

	got, ok := s.SearchResult("artist:monet")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, got)

	got[1] = 200
	again, _ := s.SearchResult("artist:monet")
	assert.Equal(t, []int{1, 2, 3}, again)
}

func TestSearchKey(t *testing.T) {
	assert.Equal(t, "nationality:french", SearchKey("nationality", "  French "))
	assert.Equal(t, "artist:claude monet", SearchKey("artist", "Claude Monet"))
	assert.NotEqual(t, SearchKey("artist", "x"), SearchKey("nationality", "x"))
}

func TestRegionTTLs(t *testing.T) {
	s, clock := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(1, "")))
	require.NoError(t, s.PutSearchResult("artist:monet", []int{1}))
	require.NoError(t, s.PutDepartmentIDs(11, []int{1}))

	clock.Advance(DefaultDepartmentIDsTTL)
	_, ok := s.DepartmentIDs(11)
	assert.False(t, ok, "department id lists live 180s")
	_, ok = s.SearchResult("artist:monet")
	assert.True(t, ok)

	clock.Advance(DefaultSearchesTTL - DefaultDepartmentIDsTTL)
	_, ok = s.SearchResult("artist:monet")
	assert.False(t, ok, "search results live 300s")
	_, ok = s.Work(1)
	assert.True(t, ok)

	clock.Advance(DefaultWorksTTL - DefaultSearchesTTL)
	_, ok = s.Work(1)
	assert.False(t, ok, "works live 600s")
}

func TestInvalidate_RegionsAreIndependent(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(1, "")))
	require.NoError(t, s.PutDepartments([]model.Department{{ID: 1, Name: "Drawings"}}))
	require.NoError(t, s.PutSearchResult("artist:monet", []int{1}))
	require.NoError(t, s.PutDepartmentIDs(1, []int{1}))

	s.InvalidateWorks()

	st := s.Stats()
	assert.Equal(t, 0, st.Works.Entries)
	assert.Equal(t, 1, st.Departments.Entries)
	assert.Equal(t, 1, st.Searches.Entries)
	assert.Equal(t, 1, st.DepartmentIDs.Entries)

	s.InvalidateSearches()
	s.InvalidateDepartmentIDs()
	st = s.Stats()
	assert.Equal(t, 1, st.Departments.Entries)
	assert.Equal(t, 0, st.Searches.Entries)
	assert.Equal(t, 0, st.DepartmentIDs.Entries)
}

func TestInvalidateAll(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(1, "")))
	require.NoError(t, s.PutDepartments([]model.Department{{ID: 1, Name: "Drawings"}}))
	require.NoError(t, s.PutSearchResult("artist:monet", []int{1}))
	require.NoError(t, s.PutDepartmentIDs(1, []int{1}))
	_, _ = s.Work(1)

	s.InvalidateAll()

	st := s.Stats()
	assert.Zero(t, st.TotalEntries())
	assert.Zero(t, st.EstimatedMemoryKB)
	assert.Equal(t, int64(1), st.Works.Hits, "invalidation keeps counters")
}

func TestStats_HitRatio(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	assert.Zero(t, s.Stats().Works.HitRatio, "no lookups yields a zero ratio")

	require.NoError(t, s.PutWork(work(1, "")))
	_, _ = s.Work(1)
	_, _ = s.Work(2)

	st := s.Stats()
	assert.Equal(t, int64(1), st.Works.Hits)
	assert.Equal(t, int64(1), st.Works.Misses)
	assert.InDelta(t, 0.5, st.Works.HitRatio, 1e-9)

	s.ResetStats()
	st = s.Stats()
	assert.Zero(t, st.Works.Hits)
	assert.Equal(t, 1, st.Works.Entries)
}

func TestStats_EstimatedMemory(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(1, "")))
	require.NoError(t, s.PutWork(work(2, "")))
	depts := make([]model.Department, 10)
	for i := range depts {
		depts[i] = model.Department{ID: i + 1, Name: fmt.Sprintf("Dept %d", i+1)}
	}
	require.NoError(t, s.PutDepartments(depts))
	require.NoError(t, s.PutSearchResult("a:b", []int{1}))
	require.NoError(t, s.PutSearchResult("a:c", []int{1}))
	require.NoError(t, s.PutDepartmentIDs(3, []int{1}))

	// 2 works * 2KB + 10 departments * 0.1KB + 2 searches * 0.5KB + 1 list * 1KB
	assert.InDelta(t, 7.0, s.Stats().EstimatedMemoryKB, 1e-9)
}

func TestStats_CountsStaleEntries(t *testing.T) {
	s, clock := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(1, "")))
	clock.Advance(DefaultWorksTTL + time.Second)

	assert.Equal(t, 1, s.Stats().Works.Entries, "stale entries count until evicted")
}

func TestDepartmentIDsRegionIsSymmetric(t *testing.T) {
	// The department id list region counts hits and misses and triggers the
	// size-based sweep exactly like the works and search regions.
	s, clock := newTestStore(t, Config{AutoCleanupThreshold: 2})

	require.NoError(t, s.PutDepartmentIDs(5, []int{10, 11}))
	_, ok := s.DepartmentIDs(5)
	require.True(t, ok)
	_, ok = s.DepartmentIDs(6)
	require.False(t, ok)

	st := s.Stats().DepartmentIDs
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.InDelta(t, 0.5, st.HitRatio, 1e-9)

	require.NoError(t, s.PutWork(work(1, "")))
	clock.Advance(DefaultWorksTTL)
	require.NoError(t, s.PutDepartmentIDs(6, []int{12}))

	st2 := s.Stats()
	assert.Equal(t, int64(1), st2.AutoCleanups)
	assert.Equal(t, 0, st2.Works.Entries)
	assert.Equal(t, 1, st2.DepartmentIDs.Entries, "the fresh list survives, the 180s-old one expired")
}

func TestAutoCleanup_TriggeredAboveThreshold(t *testing.T) {
	s, clock := newTestStore(t, Config{})

	for i := 1; i <= 500; i++ {
		require.NoError(t, s.PutWork(work(i, "")))
	}
	clock.Advance(DefaultWorksTTL + time.Second)

	for i := 0; i <= 500; i++ {
		require.NoError(t, s.PutSearchResult(fmt.Sprintf("artist:%d", i), []int{i}))
	}

	st := s.Stats()
	assert.GreaterOrEqual(t, st.AutoCleanups, int64(1))
	assert.Equal(t, 0, st.Works.Entries, "expired works are swept")
	assert.Equal(t, 501, st.Searches.Entries)
	assert.Equal(t, int64(500), st.Works.Expired)
}

func TestAutoCleanup_NotTriggeredAtThreshold(t *testing.T) {
	s, _ := newTestStore(t, Config{AutoCleanupThreshold: 3})

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.PutWork(work(i, "")))
	}
	assert.Zero(t, s.Stats().AutoCleanups)

	require.NoError(t, s.PutWork(work(4, "")))
	assert.Equal(t, int64(1), s.Stats().AutoCleanups)
}

func TestAutoCleanup_DepartmentsDoNotTrigger(t *testing.T) {
	s, _ := newTestStore(t, Config{AutoCleanupThreshold: 1})

	require.NoError(t, s.PutWork(work(1, "")))
	require.NoError(t, s.PutDepartments([]model.Department{{ID: 1, Name: "x"}}))
	require.NoError(t, s.PutDepartments([]model.Department{{ID: 2, Name: "y"}}))

	assert.Zero(t, s.Stats().AutoCleanups)
}

func TestCleanup_ReportsRemoved(t *testing.T) {
	s, clock := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(1, "")))
	require.NoError(t, s.PutDepartments([]model.Department{{ID: 1, Name: "x"}}))
	require.NoError(t, s.PutDepartmentIDs(2, []int{1}))
	clock.Advance(DefaultWorksTTL + time.Second)
	require.NoError(t, s.PutWork(work(2, "")))
	require.NoError(t, s.PutSearchResult("artist:monet", []int{2}))

	report := s.Cleanup()
	assert.Equal(t, CleanupReport{Works: 1, DepartmentIDs: 1}, report)
	assert.Equal(t, 2, report.Total())

	got, ok := s.Work(2)
	require.True(t, ok)
	assert.Equal(t, 2, got.ID)
	assert.Equal(t, 1, s.Stats().Departments.Entries, "departments live 1800s")

	clock.Advance(DefaultDepartmentsTTL)
	report = s.Cleanup()
	assert.Equal(t, 1, report.Departments)
	assert.Equal(t, 1, report.Works)
	assert.Equal(t, 1, report.Searches)
	assert.Zero(t, s.Stats().TotalEntries())
}

func TestFindWorks(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(3, "Paintings")))
	require.NoError(t, s.PutWork(work(1, "Paintings")))
	require.NoError(t, s.PutWork(work(2, "Sculptures")))

	got := s.FindWorks(func(w *model.Work) bool { return w.Classification == "Paintings" })
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)

	assert.Empty(t, s.FindWorks(func(*model.Work) bool { return false }))
}

func TestFindWorks_SkipsExpiredWithoutRemoving(t *testing.T) {
	s, clock := newTestStore(t, Config{})

	require.NoError(t, s.PutWork(work(1, "Paintings")))
	clock.Advance(DefaultWorksTTL)
	require.NoError(t, s.PutWork(work(2, "Paintings")))

	got := s.FindWorks(func(*model.Work) bool { return true })
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ID)
	assert.Equal(t, 2, s.Stats().Works.Entries, "FindWorks leaves eviction to reads and sweeps")
}

func TestConcurrentPutAndGet(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	const (
		workers = 8
		perWork = 250
	)

	var wg sync.WaitGroup
	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				id := (g*perWork+i)%100 + 1
				if err := s.PutWork(work(id, "Paintings")); err != nil {
					t.Errorf("put %d: %v", id, err)
					return
				}
				if w, ok := s.Work(id); ok && w.ID != id {
					t.Errorf("got work %d for id %d", w.ID, id)
				}
				_ = s.FindWorks(func(w *model.Work) bool { return w.ID%2 == 0 })
				_ = s.Stats()
			}
		}(g)
	}
	wg.Wait()

	st := s.Stats()
	assert.Equal(t, 100, st.Works.Entries)
	assert.Equal(t, int64(workers*perWork), st.Works.Hits+st.Works.Misses)
	for id := 1; id <= 100; id++ {
		w, ok := s.Work(id)
		require.True(t, ok)
		require.Equal(t, id, w.ID)
	}
}

func TestBackgroundCleanupRemovesWithoutGet(t *testing.T) {
	s := New(Config{WorksTTL: 20 * time.Millisecond, CleanupInterval: 10 * time.Millisecond})
	defer s.Close()

	require.NoError(t, s.PutWork(work(1, "")))

	require.Eventually(t, func() bool {
		return s.Stats().Works.Entries == 0
	}, 500*time.Millisecond, 5*time.Millisecond)
	assert.Zero(t, s.Stats().AutoCleanups, "periodic sweeps are not automatic cleanups")
}

func TestClose_Idempotent(t *testing.T) {
	s := New(Config{CleanupInterval: 10 * time.Millisecond})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	require.NoError(t, s.PutWork(work(1, "")), "the store remains usable after Close")
	_, ok := s.Work(1)
	assert.True(t, ok)
}

func TestConfigDefaults(t *testing.T) {
	s := New(Config{SearchesTTL: time.Minute})
	defer s.Close()

	cfg := s.Config()
	assert.Equal(t, DefaultWorksTTL, cfg.WorksTTL)
	assert.Equal(t, time.Minute, cfg.SearchesTTL)
	assert.Equal(t, DefaultAutoCleanupThreshold, cfg.AutoCleanupThreshold)
	assert.Zero(t, cfg.CleanupInterval)
}
