package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opsconsole/shipping-service/internal/domain"
	"github.com/opsconsole/shipping-service/pkg/logging"
	"github.com/opsconsole/shipping-service/pkg/metrics"
)

// CollectionName holds the shipment rows.
const CollectionName = "print_label_transport"

type RowRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

func NewRowRepository(db *mongo.Database, logger *logging.Logger, m *metrics.Metrics) *RowRepository {
	repo := &RowRepository{
		collection: db.Collection(CollectionName),
		logger:     logger,
		metrics:    m,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *RowRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "billing_document", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "transport_no", Value: 1}}},
		{Keys: bson.D{{Key: "transport_date", Value: 1}}},
		{Keys: bson.D{{Key: "print_date", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// observe records one collection operation on the metrics registry and the
// query log.
func (r *RowRepository) observe(ctx context.Context, operation string, start time.Time, err error, rowsAffected int64) {
	duration := time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordMongoDBOperation(CollectionName, operation, err == nil, duration)
	}
	if r.logger != nil {
		r.logger.DatabaseQuery(ctx, CollectionName, operation, duration, err == nil, rowsAffected)
	}
}

func (r *RowRepository) Create(ctx context.Context, row *domain.ShipmentRow) error {
	now := time.Now()
	if row.ID == "" {
		row.ID = primitive.NewObjectID().Hex()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	start := time.Now()
	_, err := r.collection.InsertOne(ctx, row)
	r.observe(ctx, "insert", start, err, 1)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("row already exists for billing document %s: %w", row.BillingDocument, err)
		}
		return fmt.Errorf("failed to insert row: %w", err)
	}
	return nil
}

func (r *RowRepository) Update(ctx context.Context, row *domain.ShipmentRow) error {
	row.UpdatedAt = time.Now()

	filter := bson.M{"_id": row.ID}
	start := time.Now()
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": row})
	if err != nil {
		r.observe(ctx, "update", start, err, 0)
		return fmt.Errorf("failed to update row: %w", err)
	}
	r.observe(ctx, "update", start, nil, result.MatchedCount)
	if result.MatchedCount == 0 {
		return domain.ErrRowNotFound
	}
	return nil
}

func (r *RowRepository) FindByBillingDocument(ctx context.Context, billingDocument string) (*domain.ShipmentRow, error) {
	var row domain.ShipmentRow
	start := time.Now()
	err := r.collection.FindOne(ctx, bson.M{"billing_document": billingDocument}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		r.observe(ctx, "findOne", start, nil, 0)
		return nil, nil
	}
	r.observe(ctx, "findOne", start, err, 1)
	return &row, err
}

func (r *RowRepository) FindAll(ctx context.Context) ([]*domain.ShipmentRow, error) {
	start := time.Now()
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		r.observe(ctx, "find", start, err, 0)
		return nil, err
	}
	defer cursor.Close(ctx)
	var rows []*domain.ShipmentRow
	err = cursor.All(ctx, &rows)
	r.observe(ctx, "find", start, err, int64(len(rows)))
	return rows, err
}

// SearchByTransportDate returns rows whose transport date falls inside
// [from, to]. With excludeBulk the bulk carrier is filtered out in the query
// so label candidates come back ready to print.
func (r *RowRepository) SearchByTransportDate(ctx context.Context, from, to time.Time, excludeBulk bool) ([]*domain.ShipmentRow, error) {
	filter := bson.M{
		"transport_date": bson.M{"$gte": from, "$lte": to},
	}
	if excludeBulk {
		filter["transport_by"] = bson.M{"$not": primitive.Regex{Pattern: "^" + domain.BulkCarrier + "$", Options: "i"}}
	}

	start := time.Now()
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "billing_document", Value: 1}}))
	if err != nil {
		r.observe(ctx, "find", start, err, 0)
		return nil, err
	}
	defer cursor.Close(ctx)
	var rows []*domain.ShipmentRow
	err = cursor.All(ctx, &rows)
	r.observe(ctx, "find", start, err, int64(len(rows)))
	return rows, err
}
