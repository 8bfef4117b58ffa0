package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/knittrack/internal/domain/models"
)

const (
	discrepancyCollection = "rate_discrepancies"
	snapshotCollection    = "summary_snapshots"
)

// Repository defines the audit storage used alongside the production backend.
type Repository interface {
	SaveDiscrepancies(ctx context.Context, items []models.RateDiscrepancy) error
	ListDiscrepancies(ctx context.Context, entryID int) ([]models.RateDiscrepancy, error)
	SaveSummarySnapshot(ctx context.Context, snapshot models.SummarySnapshot) error
	Close(ctx context.Context) error
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{client: client, dbName: dbName}
	index := mongo.IndexModel{Keys: bson.D{{Key: "entry_id", Value: 1}, {Key: "detected_at", Value: -1}}}
	if _, err := repo.collection(discrepancyCollection).Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create discrepancy index: %w", err)
	}

	return repo, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// SaveDiscrepancies stores every disagreement found for one entry.
func (r *MongoDBRepository) SaveDiscrepancies(ctx context.Context, items []models.RateDiscrepancy) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(items))
	for _, item := range items {
		docs = append(docs, item)
	}
	if _, err := r.collection(discrepancyCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert rate discrepancies: %w", err)
	}
	return nil
}

// ListDiscrepancies returns the recorded disagreements of an entry, newest first.
func (r *MongoDBRepository) ListDiscrepancies(ctx context.Context, entryID int) ([]models.RateDiscrepancy, error) {
	opts := options.Find().SetSort(bson.D{{Key: "detected_at", Value: -1}}).SetLimit(100)
	cursor, err := r.collection(discrepancyCollection).Find(ctx, bson.M{"entry_id": entryID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate discrepancies: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.RateDiscrepancy
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode rate discrepancies: %w", err)
	}
	return out, nil
}

// SaveSummarySnapshot saves a copy of the backend summary.
func (r *MongoDBRepository) SaveSummarySnapshot(ctx context.Context, snapshot models.SummarySnapshot) error {
	if _, err := r.collection(snapshotCollection).InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert summary snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// NopRepository discards audit records when no database is configured.
type NopRepository struct{}

func (NopRepository) SaveDiscrepancies(context.Context, []models.RateDiscrepancy) error { return nil }

func (NopRepository) ListDiscrepancies(context.Context, int) ([]models.RateDiscrepancy, error) {
	return nil, nil
}

func (NopRepository) SaveSummarySnapshot(context.Context, models.SummarySnapshot) error { return nil }

func (NopRepository) Close(context.Context) error { return nil }
