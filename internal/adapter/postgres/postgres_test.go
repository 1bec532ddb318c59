package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

var reportColumns = []string{"id", "type", "description", "latitude", "longitude", "address", "date", "owner_id"}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func sampleReport() domain.Report {
	return domain.Report{
		Type:        "flood",
		Description: "street flooded",
		Latitude:    -23.56,
		Longitude:   -46.65,
		Address:     "Av. Paulista",
		Date:        time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC),
		OwnerID:     "user-a",
	}
}

func TestReportStore_AddAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewReportStore(db)

	mock.ExpectQuery(`INSERT INTO "reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	r := sampleReport()
	require.NoError(t, s.Add(context.Background(), &r))
	assert.Equal(t, int64(42), r.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_AddError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewReportStore(db)

	mock.ExpectQuery(`INSERT INTO "reports"`).WillReturnError(errors.New("connection reset"))

	r := sampleReport()
	err := s.Add(context.Background(), &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert report")
	assert.Zero(t, r.ID)
}

func TestReportStore_GetOwned(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewReportStore(db)
	want := sampleReport()
	want.ID = 7

	mock.ExpectQuery(`SELECT \* FROM "reports" WHERE id = \$1 AND owner_id = \$2`).
		WillReturnRows(sqlmock.NewRows(reportColumns).AddRow(
			want.ID, want.Type, want.Description, want.Latitude, want.Longitude, want.Address, want.Date, want.OwnerID))

	got, err := s.GetOwned(context.Background(), 7, "user-a")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_GetOwnedMissIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewReportStore(db)

	mock.ExpectQuery(`SELECT \* FROM "reports" WHERE id = \$1 AND owner_id = \$2`).
		WillReturnRows(sqlmock.NewRows(reportColumns))

	_, err := s.GetOwned(context.Background(), 7, "user-b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReportStore_ListByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewReportStore(db)
	r := sampleReport()

	mock.ExpectQuery(`SELECT \* FROM "reports" WHERE owner_id = \$1 ORDER BY id`).
		WithArgs("user-a").
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow(1, r.Type, r.Description, r.Latitude, r.Longitude, r.Address, r.Date, "user-a").
			AddRow(3, r.Type, r.Description, r.Latitude, r.Longitude, "", r.Date, "user-a"))

	got, err := s.ListByOwner(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Empty(t, got[1].Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStore_ListAllEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewReportStore(db)

	mock.ExpectQuery(`SELECT \* FROM "reports" ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(reportColumns))

	got, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReportStore_Update(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"owner match", 1, nil},
		{"no match", 0, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewReportStore(db)

			mock.ExpectExec(`UPDATE "reports" SET .+ WHERE id = \$\d+ AND owner_id = \$\d+`).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			r := sampleReport()
			r.ID = 7
			err := s.Update(context.Background(), r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReportStore_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewReportStore(db)

	mock.ExpectExec(`DELETE FROM "reports" WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(int64(7), "user-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "reports" WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(int64(7), "user-b").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), 7, "user-a"))
	assert.ErrorIs(t, s.Delete(context.Background(), 7, "user-b"), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_CreateDuplicateIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUserStore(db)

	mock.ExpectExec(`INSERT INTO "users"`).WillReturnError(gorm.ErrDuplicatedKey)

	err := s.Create(context.Background(), domain.User{ID: "u1", Email: "ana@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserStore_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUserStore(db)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u1", "ana@example.com", "hash", created))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}))

	u, err := s.GetByEmail(context.Background(), " Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "u1", Email: "ana@example.com", PasswordHash: "hash", CreatedAt: created}, u)

	_, err = s.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
