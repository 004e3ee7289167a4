package backtest

import (
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

// ReportStore keeps completed reports in memory, newest last
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]storedReport
	max     int
}

type storedReport struct {
	report  *contracts.Report
	savedAt time.Time
}

// NewReportStore creates a store holding at most max reports (0 = unlimited)
func NewReportStore(max int) *ReportStore {
	return &ReportStore{
		reports: make(map[string]storedReport),
		max:     max,
	}
}

// Put stores a report under its RunID, evicting the oldest beyond the cap
func (s *ReportStore) Put(report *contracts.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.RunID] = storedReport{report: report, savedAt: time.Now()}

	if s.max > 0 {
		for len(s.reports) > s.max {
			delete(s.reports, s.oldestLocked())
		}
	}
}

// Get returns the report with the given run id
func (s *ReportStore) Get(runID string) (*contracts.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[runID]
	return r.report, ok
}

// List returns summaries ordered by save time
func (s *ReportStore) List() []contracts.ReportSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]storedReport, 0, len(s.reports))
	for _, r := range s.reports {
		entries = append(entries, r)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].savedAt.Equal(entries[j].savedAt) {
			return entries[i].report.RunID < entries[j].report.RunID
		}
		return entries[i].savedAt.Before(entries[j].savedAt)
	})

	out := make([]contracts.ReportSummary, len(entries))
	for i, e := range entries {
		out[i] = e.report.Summary()
	}
	return out
}

// Prune removes reports saved before cutoff and returns how many were removed
func (s *ReportStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, r := range s.reports {
		if r.savedAt.Before(cutoff) {
			delete(s.reports, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored reports
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

func (s *ReportStore) oldestLocked() string {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, r := range s.reports {
		if oldestID == "" || r.savedAt.Before(oldestAt) || (r.savedAt.Equal(oldestAt) && id < oldestID) {
			oldestID, oldestAt = id, r.savedAt
		}
	}
	return oldestID
}
