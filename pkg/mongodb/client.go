package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const appName = "cutoff-service"

// Config holds the connection settings of the warehouse-state database.
// Credentials travel in the URI.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
	// ReadPreference is a mode name such as "primary" or
	// "secondaryPreferred". Empty means primary.
	ReadPreference string
}

// DefaultConfig returns the local development settings
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "cutoff_db",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    50,
		MinPoolSize:    5,
		ReadPreference: readpref.PrimaryPreferredMode.String(),
	}
}

// Client is a connected MongoDB client bound to one database
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewClient connects and pings the server chosen by the read preference
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	opts, err := clientOptions(config)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, opts.ReadPreference); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{client: client, database: client.Database(config.Database)}, nil
}

func clientOptions(config *Config) (*options.ClientOptions, error) {
	mode := readpref.PrimaryMode
	if config.ReadPreference != "" {
		var err error
		if mode, err = readpref.ModeFromString(config.ReadPreference); err != nil {
			return nil, fmt.Errorf("invalid MongoDB read preference %q: %w", config.ReadPreference, err)
		}
	}
	pref, err := readpref.New(mode)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB read preference %q: %w", config.ReadPreference, err)
	}

	return options.Client().
		ApplyURI(config.URI).
		SetAppName(appName).
		SetConnectTimeout(config.ConnectTimeout).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetReadPreference(pref), nil
}

func (c *Client) Database() *mongo.Database {
	return c.database
}

// Close disconnects the client
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// ToDecimal128 stores d exactly, as BSON decimal
func ToDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("decimal %s does not fit decimal128: %w", d, err)
	}
	return out, nil
}

// FromDecimal128 reads a BSON decimal back without going through float64
func FromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	out, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decimal128 %s is not a finite number: %w", d, err)
	}
	return out, nil
}
