package postgres

import (
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

type reportModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Type        string    `gorm:"column:type;size:64;not null"`
	Description string    `gorm:"column:description;size:2000;not null"`
	Latitude    float64   `gorm:"column:latitude;not null"`
	Longitude   float64   `gorm:"column:longitude;not null"`
	Address     string    `gorm:"column:address;size:500"`
	Date        time.Time `gorm:"column:date;not null"`
	OwnerID     string    `gorm:"column:owner_id;size:64;not null;index"`
}

func (reportModel) TableName() string { return "reports" }

type userModel struct {
	ID           string    `gorm:"column:id;primaryKey;size:36"`
	Email        string    `gorm:"column:email;size:254;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (userModel) TableName() string { return "users" }

func toReportModel(r domain.Report) reportModel {
	return reportModel{
		ID:          r.ID,
		Type:        r.Type,
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Address:     r.Address,
		Date:        r.Date,
		OwnerID:     r.OwnerID,
	}
}

func (m reportModel) toDomain() domain.Report {
	return domain.Report{
		ID:          m.ID,
		Type:        m.Type,
		Description: m.Description,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		Address:     m.Address,
		Date:        m.Date.UTC(),
		OwnerID:     m.OwnerID,
	}
}

func toDomainReports(ms []reportModel) []domain.Report {
	out := make([]domain.Report, len(ms))
	for i, m := range ms {
		out[i] = m.toDomain()
	}
	return out
}

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}
