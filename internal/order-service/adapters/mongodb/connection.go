// Package mongodb implements the order service storage ports on MongoDB.
//
// Products and orders live in the "products" and "orders" collections.
// Stock reservations are single conditional updates, so they are safe under
// concurrency with or without a transaction.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

// SupportsTransactions reports whether the deployment behind db can run
// multi-document transactions: replica set members and mongos routers can,
// standalone servers cannot.
func SupportsTransactions(ctx context.Context, db *mongo.Database) (bool, error) {
	admin := db.Client().Database("admin")

	var reply helloReply
	err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&reply)
	if err != nil {
		// Servers older than 4.4.2 only know the legacy command.
		if legacyErr := admin.RunCommand(ctx, bson.D{{Key: "isMaster", Value: 1}}).Decode(&reply); legacyErr != nil {
			return false, fmt.Errorf("failed to probe deployment topology: %w", err)
		}
	}

	return reply.SetName != "" || reply.Msg == "isdbgrid", nil
}
