// Package mongo implements the report and user stores on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportsCollection  = "reports"
	usersCollection    = "users"
	countersCollection = "counters"
)

// Connect dials MongoDB, verifies the connection, and returns the named database.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect %s: %w", RedactURI(uri), err)
	}
	if err := c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping %s: %w", RedactURI(uri), err)
	}
	return c, c.Database(dbName), nil
}

// EnsureIndexes creates the indexes the stores rely on. Failures are collected
// and returned together.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if _, err := db.Collection(reportsCollection).Indexes().CreateOne(ictx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "_id", Value: 1}},
	}); err != nil {
		errs = append(errs, fmt.Errorf("reports owner_id: %w", err))
	}
	if _, err := db.Collection(usersCollection).Indexes().CreateOne(ictx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		errs = append(errs, fmt.Errorf("users email: %w", err))
	}
	return errors.Join(errs...)
}

// RedactURI masks credentials in a connection string for logging.
func RedactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}

// nextSequence atomically increments and returns the named counter. Values start
// at 1 and are never reused.
func nextSequence(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}
