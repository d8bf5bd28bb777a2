package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/inkpath/plotline/pkg/story"
)

// MongoStore persists stories in a MongoDB collection, one document per
// story keyed by the story ID (_id). The story model's BSON tags define the
// document shape.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig configures the MongoDB connection.
type MongoConfig struct {
	URI        string // e.g. "mongodb://localhost:27017"
	Database   string // defaults to "plotline"
	Collection string // defaults to "stories"
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "plotline"
	}
	if cfg.Collection == "" {
		cfg.Collection = "stories"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URI, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping %s: %w", cfg.URI, err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Load retrieves a story by ID.
func (ms *MongoStore) Load(ctx context.Context, id string) (*story.Story, error) {
	var s story.Story
	err := ms.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find story %s: %w", id, err)
	}
	return &s, nil
}

// Save upserts a story document.
func (ms *MongoStore) Save(ctx context.Context, s *story.Story) error {
	if s.ID == "" {
		return fmt.Errorf("story ID must not be empty")
	}
	_, err := ms.collection.ReplaceOne(ctx,
		bson.M{"_id": s.ID}, s,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save story %s: %w", s.ID, err)
	}
	return nil
}

// Delete removes a story document. Missing documents are not an error.
func (ms *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := ms.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete story %s: %w", id, err)
	}
	return nil
}

// List returns the IDs of all stored stories.
func (ms *MongoStore) List(ctx context.Context) ([]string, error) {
	cur, err := ms.collection.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode story ID: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}

// Close disconnects the client.
func (ms *MongoStore) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
