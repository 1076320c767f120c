package sink

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
)

const mongoConnectTimeout = 10 * time.Second

// MongoSink archives bursts as documents in a MongoDB collection.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(cfg config.MongoConfig) (*MongoSink, error) {
	database := cfg.Database
	if database == "" {
		database = "netburst"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "bursts"
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	log.Printf("Connected to MongoDB, writing bursts to %s.%s", database, collection)

	return &MongoSink{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoSink) Name() string {
	return "mongo"
}

// WriteBursts inserts one batch as individual documents.
func (s *MongoSink) WriteBursts(ctx context.Context, bursts []model.Burst) error {
	docs := make([]interface{}, len(bursts))
	for i := range bursts {
		docs[i] = bursts[i]
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert bursts: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
