package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

// ReportStore persists reports in the "reports" table. Ids come from the
// table's identity sequence.
type ReportStore struct {
	db *gorm.DB
}

// NewReportStore creates a report store on an open connection.
func NewReportStore(db *gorm.DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) Add(ctx context.Context, r *domain.Report) error {
	rec := toReportModel(*r)
	rec.ID = 0
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	r.ID = rec.ID
	return nil
}

func (s *ReportStore) GetByID(ctx context.Context, id int64) (domain.Report, error) {
	var rec reportModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.Report{}, notFound(err)
	}
	return rec.toDomain(), nil
}

func (s *ReportStore) GetOwned(ctx context.Context, id int64, ownerID string) (domain.Report, error) {
	var rec reportModel
	if err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Take(&rec).Error; err != nil {
		return domain.Report{}, notFound(err)
	}
	return rec.toDomain(), nil
}

func (s *ReportStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Report, error) {
	var recs []reportModel
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list reports by owner: %w", err)
	}
	return toDomainReports(recs), nil
}

func (s *ReportStore) ListAll(ctx context.Context) ([]domain.Report, error) {
	var recs []reportModel
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return toDomainReports(recs), nil
}

// Update rewrites every mutable column in one statement scoped by id and owner.
func (s *ReportStore) Update(ctx context.Context, r domain.Report) error {
	res := s.db.WithContext(ctx).Model(&reportModel{}).
		Where("id = ? AND owner_id = ?", r.ID, r.OwnerID).
		Updates(map[string]any{
			"type":        r.Type,
			"description": r.Description,
			"latitude":    r.Latitude,
			"longitude":   r.Longitude,
			"address":     r.Address,
			"date":        r.Date,
		})
	if res.Error != nil {
		return fmt.Errorf("update report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ReportStore) Delete(ctx context.Context, id int64, ownerID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&reportModel{})
	if res.Error != nil {
		return fmt.Errorf("delete report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CheckReadiness pings the database.
func (s *ReportStore) CheckReadiness(ctx context.Context) error {
	return CheckReadiness(ctx, s.db)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("get report: %w", err)
}
