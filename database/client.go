package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/natours-api/constants"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

type DBClient struct {
	logger      *slog.Logger
	mongoClient *mongo.Client
	dbName      string
}

func NewMongoClient(ctx context.Context, logger *slog.Logger, uri string, dbName string) (*DBClient, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("Connected to database", slog.String("database", dbName))
	return &DBClient{
		logger:      logger,
		mongoClient: mongoClient,
		dbName:      dbName,
	}, nil
}

func (c *DBClient) OpenCollection(collectionName string) *mongo.Collection {
	return c.mongoClient.Database(c.dbName).Collection(collectionName)
}

func (c *DBClient) Ping(ctx context.Context) error {
	return c.mongoClient.Ping(ctx, nil)
}

func (c *DBClient) Disconnect(ctx context.Context) error {
	return c.mongoClient.Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes the domain relies on: one account
// per email and one tour per name.
func (c *DBClient) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string]mongo.IndexModel{
		constants.UserCollection: {Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		constants.TourCollection: {Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
	}
	for collection, model := range indexes {
		name, err := c.OpenCollection(collection).Indexes().CreateOne(ctx, model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", collection, err)
		}
		c.logger.Info("Index ready", slog.String("collection", collection), slog.String("index", name))
	}
	return nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	default:
		return err
	}
}
