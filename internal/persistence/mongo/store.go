// Package mongo implements the person source and grouped-sum query on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"example.com/timereport/internal/domain"
	"example.com/timereport/internal/persistence"
)

// Config names the database and collections the store reads.
type Config struct {
	URI                  string
	Database             string
	UsersCollection      string
	ActivitiesCollection string
	ConnectTimeout       time.Duration
}

// Store reads users and aggregates activity memberships.
type Store struct {
	users      *mongo.Collection
	activities *mongo.Collection
}

// NewStore constructs a Store over an existing database handle.
func NewStore(db *mongo.Database, usersCollection, activitiesCollection string) *Store {
	return &Store{
		users:      db.Collection(usersCollection),
		activities: db.Collection(activitiesCollection),
	}
}

// Connect dials MongoDB, verifies the primary is reachable, and returns the client
// together with a store bound to the configured database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *Store, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}

	return client, NewStore(client.Database(cfg.Database), cfg.UsersCollection, cfg.ActivitiesCollection), nil
}

// ForEachPerson streams the users collection in natural order.
func (s *Store) ForEachPerson(ctx context.Context, fn func(domain.Person) error) (err error) {
	cursor, err := s.users.Find(ctx, bson.D{})
	if err != nil {
		return classify(err)
	}
	defer func() {
		err = errors.Join(err, cursor.Close(context.WithoutCancel(ctx)))
	}()

	for cursor.Next(ctx) {
		var doc persistence.UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("%w: users: %w", domain.ErrSchemaDecode, err)
		}
		if err := fn(doc.ToPerson()); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return classify(err)
	}
	return nil
}

// SumByCategory runs the grouped-sum aggregation for one person.
func (s *Store) SumByCategory(ctx context.Context, ref domain.PersonRef) ([]domain.CategorySum, error) {
	cursor, err := s.activities.Aggregate(ctx, CategoryPipeline(ref))
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(context.WithoutCancel(ctx))

	var groups []domain.CategorySum
	for cursor.Next(ctx) {
		var row categoryRow
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("%w: activities: %w", domain.ErrSchemaDecode, err)
		}
		groups = append(groups, domain.CategorySum{Category: domain.Category(row.Category), Duration: row.Duration})
	}
	if err := cursor.Err(); err != nil {
		return nil, classify(err)
	}
	return groups, nil
}

type categoryRow struct {
	Category string  `bson:"_id"`
	Duration float64 `bson:"duration"`
}

// CategoryPipeline matches activities referencing the person by ObjectID or by hex,
// unwinds the members, keeps the person's own memberships, and sums durations per mode.
func CategoryPipeline(ref domain.PersonRef) mongo.Pipeline {
	match := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "members._id", Value: ref.Native}},
		bson.D{{Key: "members._id", Value: ref.Key}},
	}}}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$members"}},
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$members.mode"},
			{Key: "duration", Value: bson.D{{Key: "$sum", Value: "$members.duration"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func classify(err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return err
}
