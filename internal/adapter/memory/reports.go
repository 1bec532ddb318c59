// Package memory provides map-backed stores for tests and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

// ReportStore keeps reports in a map guarded by a RWMutex. Ids start at 1 and
// are never reused.
type ReportStore struct {
	mu      sync.RWMutex
	nextID  int64
	reports map[int64]domain.Report
}

// NewReportStore creates an empty in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[int64]domain.Report)}
}

func (s *ReportStore) Add(_ context.Context, r *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r.ID = s.nextID
	s.reports[r.ID] = *r
	return nil
}

func (s *ReportStore) GetByID(_ context.Context, id int64) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return domain.Report{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *ReportStore) GetOwned(_ context.Context, id int64, ownerID string) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok || r.OwnerID != ownerID {
		return domain.Report{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *ReportStore) ListByOwner(_ context.Context, ownerID string) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Report, 0)
	for _, r := range s.reports {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *ReportStore) ListAll(_ context.Context) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sortByID(out)
	return out, nil
}

func (s *ReportStore) Update(_ context.Context, r domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reports[r.ID]
	if !ok || cur.OwnerID != r.OwnerID {
		return domain.ErrNotFound
	}
	s.reports[r.ID] = r
	return nil
}

func (s *ReportStore) Delete(_ context.Context, id int64, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reports[id]
	if !ok || cur.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

// CheckReadiness always succeeds.
func (s *ReportStore) CheckReadiness(context.Context) error { return nil }

func sortByID(rs []domain.Report) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}
