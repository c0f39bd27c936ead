package testing

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoImage = "mongo:6"

// WarehouseMongo is a throwaway MongoDB holding warehouse state for
// integration tests.
type WarehouseMongo struct {
	container *mongodb.MongoDBContainer
	client    *mongo.Client
	Database  *mongo.Database
}

// StartWarehouseMongo starts a container and connects to database on it
func StartWarehouseMongo(ctx context.Context, database string) (*WarehouseMongo, error) {
	container, err := mongodb.Run(ctx, mongoImage,
		mongodb.WithUsername("cutoff"),
		mongodb.WithPassword("cutoff"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	m := &WarehouseMongo{container: container}
	if err := m.connect(ctx, database); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}
	return m, nil
}

func (m *WarehouseMongo) connect(ctx context.Context, database string) error {
	uri, err := m.container.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection string: %w", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	m.client = client

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	m.Database = client.Database(database)
	return nil
}

// Insert writes raw documents into collection, the way an upstream service
// would, bypassing the repository under test.
func (m *WarehouseMongo) Insert(ctx context.Context, collection string, docs ...any) error {
	if _, err := m.Database.Collection(collection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed %s: %w", collection, err)
	}
	return nil
}

// Close disconnects and terminates the container
func (m *WarehouseMongo) Close(ctx context.Context) error {
	if m.client != nil {
		_ = m.client.Disconnect(ctx)
	}
	if m.container == nil {
		return nil
	}
	return m.container.Terminate(ctx)
}
