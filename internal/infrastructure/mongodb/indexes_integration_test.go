//go:build integration

package mongodb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/lllypuk/userdesk/internal/infrastructure/mongodb"
	"github.com/lllypuk/userdesk/internal/testutil"
)

func TestCreateAllIndexes(t *testing.T) {
	db := testutil.SetupTestMongoDB(t)
	ctx := context.Background()

	require.NoError(t, mongodb.CreateAllIndexes(ctx, db))
	// idempotent
	require.NoError(t, mongodb.CreateAllIndexes(ctx, db))

	indexes := getCollectionIndexes(ctx, t, db, mongodb.CollectionUsers)
	// _id plus username and email
	assert.Len(t, indexes, 3)
}

func getCollectionIndexes(ctx context.Context, t *testing.T, db *mongo.Database, collName string) []bson.M {
	t.Helper()

	cursor, err := db.Collection(collName).Indexes().List(ctx)
	require.NoError(t, err)

	var indexes []bson.M
	require.NoError(t, cursor.All(ctx, &indexes))

	return indexes
}
