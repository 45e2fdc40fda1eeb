package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"petanco-intake-api/internal/models"
)

// MongoStore writes inbound messages as documents.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo dials uri and returns a store bound to database.collection.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(uri).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &MongoStore{client: client, collection: client.Database(database).Collection(collection)}, nil
}

// NewMongoStore uses an existing collection. Close is a no-op because the
// caller owns the client.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

func (s *MongoStore) Save(ctx context.Context, sub models.CanonicalSubmission) (string, error) {
	id := uuid.NewString()
	if _, err := s.collection.InsertOne(ctx, messageDocument(id, sub, time.Now().UTC())); err != nil {
		return "", fmt.Errorf("failed to insert inbound message: %w", err)
	}
	return id, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// messageDocument keeps fields as an ordered document.
func messageDocument(id string, sub models.CanonicalSubmission, createdAt time.Time) bson.D {
	fields := make(bson.D, 0, len(sub.Fields))
	for _, f := range sub.Fields {
		fields = append(fields, bson.E{Key: f.Name, Value: f.Value})
	}

	return bson.D{
		{Key: "_id", Value: id},
		{Key: "channel", Value: sub.Channel},
		{Key: "subject", Value: sub.Subject},
		{Key: "from", Value: sub.FromDisplay},
		{Key: "from_name", Value: sub.FromName},
		{Key: "from_email", Value: sub.FromEmail},
		{Key: "fields", Value: fields},
		{Key: "body", Value: sub.Body},
		{Key: "meta", Value: sub.Meta},
		{Key: "created_at", Value: createdAt},
	}
}
