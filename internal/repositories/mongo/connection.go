// Package mongo implements the catalog and order stores on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/voltmart/storefront/internal/platform/config"
)

// Dial creates a client without waiting for a server. The driver keeps reconnecting in the
// background, so a store that is down at startup recovers once the server answers.
func Dial(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(uint64(cfg.MaxPoolSize)).
		SetMinPoolSize(uint64(cfg.MinPoolSize))

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	return client.Database(cfg.Database), nil
}

// Connect dials MongoDB and verifies the primary answers.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	db, err := Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
		_ = db.Client().Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return db, nil
}

// EnsureIndexes creates the indexes both repositories rely on. The unique index on
// paymentIntentId is what makes order creation idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	orderIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "paymentIntentId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(paymentIntentIndex),
		},
		{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(orderNumberIndex),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}
	if _, err := db.Collection(orderCollection).Indexes().CreateMany(ctx, orderIndexes); err != nil {
		return fmt.Errorf("mongo: create order indexes: %w", err)
	}

	productIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
	}
	if _, err := db.Collection(productCollection).Indexes().CreateMany(ctx, productIndexes); err != nil {
		return fmt.Errorf("mongo: create product indexes: %w", err)
	}
	return nil
}
