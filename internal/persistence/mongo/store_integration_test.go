//go:build integration

package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"example.com/timereport/internal/domain"
)

func TestStoreAggregatesMembershipsByEitherIdentity(t *testing.T) {
	ctx := context.Background()

	container, err := mongocontainer.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, store, err := Connect(ctx, Config{
		URI:                  uri,
		Database:             "zvms",
		UsersCollection:      "users",
		ActivitiesCollection: "activities",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	carol := primitive.NewObjectID()

	db := client.Database("zvms")
	_, err = db.Collection("users").InsertMany(ctx, []any{
		bson.D{{Key: "_id", Value: alice}, {Key: "id", Value: "20230001"}, {Key: "name", Value: "Alice"}, {Key: "group", Value: bson.A{}}},
		bson.D{{Key: "_id", Value: bob}, {Key: "id", Value: "20230002"}, {Key: "name", Value: "Bob"}},
		bson.D{{Key: "_id", Value: carol}, {Key: "id", Value: "20230003"}, {Key: "name", Value: "Carol"}},
	})
	require.NoError(t, err)

	_, err = db.Collection("activities").InsertMany(ctx, []any{
		bson.D{{Key: "name", Value: "Library shift"}, {Key: "members", Value: bson.A{
			bson.D{{Key: "_id", Value: alice}, {Key: "mode", Value: "on-campus"}, {Key: "duration", Value: 2.0}},
			bson.D{{Key: "_id", Value: carol.Hex()}, {Key: "mode", Value: "on-campus"}, {Key: "duration", Value: 2.0}},
		}}},
		bson.D{{Key: "name", Value: "Park cleanup"}, {Key: "members", Value: bson.A{
			bson.D{{Key: "_id", Value: alice.Hex()}, {Key: "mode", Value: "off-campus"}, {Key: "duration", Value: 1.5}},
			bson.D{{Key: "_id", Value: carol.Hex()}, {Key: "mode", Value: "off-campus"}, {Key: "duration", Value: 1}},
			bson.D{{Key: "_id", Value: carol.Hex()}, {Key: "mode", Value: "volunteer"}, {Key: "duration", Value: 0.5}},
		}}},
	})
	require.NoError(t, err)

	var names []string
	require.NoError(t, store.ForEachPerson(ctx, func(p domain.Person) error {
		names = append(names, p.Name)
		return nil
	}))
	require.Equal(t, []string{"Alice", "Bob", "Carol"}, names)

	agg := domain.NewAggregator(store)

	result, err := agg.Aggregate(ctx, domain.NormalizeIdentity(alice))
	require.NoError(t, err)
	require.True(t, result.IsPresent())
	require.Equal(t, domain.TimeTotals{OnCampus: 2.0, OffCampus: 1.5, Total: 3.5}, result.Totals)

	result, err = agg.Aggregate(ctx, domain.NormalizeIdentity(bob))
	require.NoError(t, err)
	require.False(t, result.IsPresent())

	result, err = agg.Aggregate(ctx, domain.NormalizeIdentity(carol))
	require.NoError(t, err)
	require.True(t, result.IsPresent())
	require.Equal(t, domain.TimeTotals{OnCampus: 2.0, OffCampus: 1.0, Total: 3.5}, result.Totals)
}
