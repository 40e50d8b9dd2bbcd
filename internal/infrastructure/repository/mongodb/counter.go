package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Sequence hands out increasing int64 ids from a counters collection.
type Sequence struct {
	collection *mongo.Collection
	name       string
}

// NewSequence creates a sequence stored as the document with _id name.
func NewSequence(collection *mongo.Collection, name string) *Sequence {
	return &Sequence{collection: collection, name: name}
}

// Next atomically increments the sequence and returns the new value.
func (s *Sequence) Next(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": s.name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, HandleMongoError(err, "counter "+s.name)
	}

	return doc.Seq, nil
}
