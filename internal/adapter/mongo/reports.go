package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

type reportDoc struct {
	ID          int64     `bson:"_id"`
	Type        string    `bson:"type"`
	Description string    `bson:"description"`
	Lat         float64   `bson:"lat"`
	Lng         float64   `bson:"lng"`
	Address     string    `bson:"address,omitempty"`
	Date        time.Time `bson:"date"`
	OwnerID     string    `bson:"owner_id"`
}

func toReportDoc(r domain.Report) reportDoc {
	return reportDoc{
		ID:          r.ID,
		Type:        r.Type,
		Description: r.Description,
		Lat:         r.Latitude,
		Lng:         r.Longitude,
		Address:     r.Address,
		Date:        r.Date,
		OwnerID:     r.OwnerID,
	}
}

func (d reportDoc) toDomain() domain.Report {
	return domain.Report{
		ID:          d.ID,
		Type:        d.Type,
		Description: d.Description,
		Latitude:    d.Lat,
		Longitude:   d.Lng,
		Address:     d.Address,
		Date:        d.Date.UTC(),
		OwnerID:     d.OwnerID,
	}
}

// ReportStore keeps reports in the "reports" collection with integer ids drawn
// from the "counters" collection.
type ReportStore struct {
	db  *mongo.Database
	col *mongo.Collection
}

// NewReportStore creates a report store on db.
func NewReportStore(db *mongo.Database) *ReportStore {
	return &ReportStore{db: db, col: db.Collection(reportsCollection)}
}

func (s *ReportStore) Add(ctx context.Context, r *domain.Report) error {
	id, err := nextSequence(ctx, s.db, reportsCollection)
	if err != nil {
		return err
	}
	doc := toReportDoc(*r)
	doc.ID = id
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	r.ID = id
	return nil
}

func (s *ReportStore) GetByID(ctx context.Context, id int64) (domain.Report, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *ReportStore) GetOwned(ctx context.Context, id int64, ownerID string) (domain.Report, error) {
	return s.findOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
}

func (s *ReportStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Report, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID})
}

func (s *ReportStore) ListAll(ctx context.Context) ([]domain.Report, error) {
	return s.find(ctx, bson.M{})
}

// Update replaces the whole document in one operation, scoped by id and owner.
func (s *ReportStore) Update(ctx context.Context, r domain.Report) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": r.ID, "owner_id": r.OwnerID}, toReportDoc(r))
	if err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ReportStore) Delete(ctx context.Context, id int64, ownerID string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CheckReadiness pings the primary.
func (s *ReportStore) CheckReadiness(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo not ready: %w", err)
	}
	return nil
}

func (s *ReportStore) findOne(ctx context.Context, filter bson.M) (domain.Report, error) {
	var doc reportDoc
	if err := s.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Report{}, domain.ErrNotFound
		}
		return domain.Report{}, fmt.Errorf("find report: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *ReportStore) find(ctx context.Context, filter bson.M) ([]domain.Report, error) {
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	defer cur.Close(ctx)

	var docs []reportDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	out := make([]domain.Report, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}
