package cache

// Region identifies one of the store's independent cache collections.
type Region int

const (
	RegionWorks Region = iota
	RegionDepartments
	RegionSearches
	RegionDepartmentIDs

	regionCount
)

// Regions lists every region in display order.
var Regions = [...]Region{RegionWorks, RegionDepartments, RegionSearches, RegionDepartmentIDs}

func (r Region) String() string {
	switch r {
	case RegionWorks:
		return "works"
	case RegionDepartments:
		return "departments"
	case RegionSearches:
		return "searches"
	case RegionDepartmentIDs:
		return "department_ids"
	default:
		return "unknown"
	}
}

// Memory estimate heuristics, in KB.
const (
	workKB         = 2.0
	departmentKB   = 0.1
	searchKB       = 0.5
	departmentIDKB = 1.0
)

type regionCounters struct {
	hits    int64
	misses  int64
	expired int64
}

// RegionStats is the snapshot of a single region.
type RegionStats struct {
	// Entries counts stored entries, valid or stale-but-not-yet-evicted.
	Entries  int     `json:"entries"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Expired  int64   `json:"expired"`
	HitRatio float64 `json:"hit_ratio"`
}

// Stats is a point-in-time snapshot of the store.
type Stats struct {
	Works             RegionStats `json:"works"`
	Departments       RegionStats `json:"departments"`
	Searches          RegionStats `json:"searches"`
	DepartmentIDs     RegionStats `json:"department_ids"`
	AutoCleanups      int64       `json:"auto_cleanups"`
	EstimatedMemoryKB float64     `json:"estimated_memory_kb"`
}

// Region returns the snapshot of r.
func (st Stats) Region(r Region) RegionStats {
	switch r {
	case RegionWorks:
		return st.Works
	case RegionDepartments:
		return st.Departments
	case RegionSearches:
		return st.Searches
	case RegionDepartmentIDs:
		return st.DepartmentIDs
	default:
		return RegionStats{}
	}
}

// TotalEntries sums the entries of every region.
func (st Stats) TotalEntries() int {
	return st.Works.Entries + st.Departments.Entries + st.Searches.Entries + st.DepartmentIDs.Entries
}

// CleanupReport counts the entries removed by a sweep, per region.
type CleanupReport struct {
	Works         int `json:"works"`
	Searches      int `json:"searches"`
	DepartmentIDs int `json:"department_ids"`
	Departments   int `json:"departments"`
}

// Total returns the number of entries removed across all regions.
func (r CleanupReport) Total() int {
	return r.Works + r.Searches + r.DepartmentIDs + r.Departments
}

// Stats returns a snapshot of entry counts, counters and the memory
// estimate.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	departmentEntries, departmentCount := 0, 0
	if s.departments != nil {
		departmentEntries = 1
		departmentCount = len(s.departments.value)
	}

	st := Stats{
		Works:         s.regionStatsLocked(RegionWorks, len(s.works)),
		Departments:   s.regionStatsLocked(RegionDepartments, departmentEntries),
		Searches:      s.regionStatsLocked(RegionSearches, len(s.searches)),
		DepartmentIDs: s.regionStatsLocked(RegionDepartmentIDs, len(s.departmentIDs)),
		AutoCleanups:  s.autoCleanups,
	}
	st.EstimatedMemoryKB = float64(len(s.works))*workKB +
		float64(departmentCount)*departmentKB +
		float64(len(s.searches))*searchKB +
		float64(len(s.departmentIDs))*departmentIDKB
	return st
}

func (s *Store) regionStatsLocked(r Region, entries int) RegionStats {
	c := s.counters[r]
	return RegionStats{
		Entries:  entries,
		Hits:     c.hits,
		Misses:   c.misses,
		Expired:  c.expired,
		HitRatio: hitRatio(c.hits, c.misses),
	}
}

func hitRatio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Cleanup eagerly removes every expired entry from every region and
// reports how many were removed.
func (s *Store) Cleanup() CleanupReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.deleteExpiredLocked(s.now())
	s.logger.Debug("cache manual cleanup",
		"works", report.Works,
		"searches", report.Searches,
		"department_ids", report.DepartmentIDs,
		"departments", report.Departments)
	return report
}

// ResetStats zeroes hit, miss, expiry and auto-cleanup counters. Entries
// are kept.
func (s *Store) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = [regionCount]regionCounters{}
	s.autoCleanups = 0
}
