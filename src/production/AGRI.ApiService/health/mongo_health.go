package health

import (
	"context"
	"crypto/tls"
	"fmt"

	config "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectDBWithTimeout creates a MongoDB connection bounded by the
// configured connect timeout.
func ConnectDBWithTimeout(cfg *config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)

	// Additional TLS configuration for hosted clusters
	if clientOptions.TLSConfig != nil {
		clientOptions.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}

	// Test the connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	return client, nil
}

// GetCollection returns a collection in the configured database.
func GetCollection(client *mongo.Client, cfg *config.MongoConfig, name string) *mongo.Collection {
	return client.Database(cfg.Database).Collection(name)
}

// Ping verifies the MongoDB connection is still alive.
func Ping(ctx context.Context, client *mongo.Client) error {
	return client.Ping(ctx, readpref.Primary())
}
