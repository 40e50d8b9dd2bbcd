package mongodb

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// listDocuments runs find with opts and converts every document with decoder.
// Documents that fail to decode are logged and skipped. The result is never nil.
func listDocuments[T any, R any](
	ctx context.Context,
	logger *slog.Logger,
	collection *mongo.Collection,
	opts *options.FindOptionsBuilder,
	decoder func(*T) R,
	collectionName string,
) ([]R, error) {
	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, HandleMongoError(err, collectionName)
	}
	defer cursor.Close(ctx)

	results := make([]R, 0)
	for cursor.Next(ctx) {
		var doc T
		if decodeErr := cursor.Decode(&doc); decodeErr != nil {
			logger.WarnContext(ctx, "skipping undecodable document",
				slog.String("collection", collectionName),
				slog.String("error", decodeErr.Error()))
			continue
		}
		results = append(results, decoder(&doc))
	}

	if err = cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return results, nil
}
