package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikolayk812/cartstore/internal/port"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "cart_state"

type stateDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoStorage struct {
	collection *mongo.Collection
}

func NewMongo(database *mongo.Database) port.Storage {
	return &mongoStorage{
		collection: database.Collection(mongoCollection),
	}
}

func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Join(fmt.Errorf("client.Ping: %w", err), client.Disconnect(ctx))
	}

	return client.Database(database), nil
}

func (m *mongoStorage) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}

	var doc stateDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", port.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("collection.FindOne: %w", err)
	}

	return doc.Value, nil
}

func (m *mongoStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errEmptyKey
	}

	update := bson.M{"$set": bson.M{
		"value":      value,
		"updated_at": time.Now().UTC(),
	}}

	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("collection.UpdateOne: %w", err)
	}

	return nil
}
