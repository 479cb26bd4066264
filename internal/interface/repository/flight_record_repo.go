package repository

import (
	"context"
	"errors"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFlightRecordRepository implements FlightRecordRepository on MongoDB.
type MongoFlightRecordRepository struct {
	collection *mongo.Collection
}

// NewMongoFlightRecordRepository creates the mirror-store repository.
func NewMongoFlightRecordRepository(db *mongo.Database) repository.FlightRecordRepository {
	collection := db.Collection("flight_records")

	// Unique index on the tracking key
	ctx := context.Background()
	keyIndex := mongo.IndexModel{
		Keys:    bson.M{"trackingKey": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, keyIndex)

	// Index serving the reconciliation scan
	commitIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "committed", Value: 1}, {Key: "nextRetryAt", Value: 1}},
	}
	collection.Indexes().CreateOne(ctx, commitIndex)

	return &MongoFlightRecordRepository{
		collection: collection,
	}
}

// FindByKey finds a flight record by tracking key. A missing record is
// returned as (nil, nil).
func (r *MongoFlightRecordRepository) FindByKey(ctx context.Context, key string) (*entity.FlightRecord, error) {
	var record entity.FlightRecord
	err := r.collection.FindOne(ctx, bson.M{"trackingKey": key}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindActive returns every record still being tracked.
func (r *MongoFlightRecordRepository) FindActive(ctx context.Context) ([]*entity.FlightRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*entity.FlightRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindUncommitted returns records whose last commit attempt failed, that are
// not dead-lettered and that are due for another try.
func (r *MongoFlightRecordRepository) FindUncommitted(ctx context.Context, now time.Time, limit int) ([]*entity.FlightRecord, error) {
	filter := bson.M{
		"committed":   false,
		"commitState": bson.M{"$ne": entity.CommitDeadLetter},
		"rawSnapshot": bson.M{"$exists": true, "$ne": nil},
		"$or": []bson.M{
			{"nextRetryAt": nil},
			{"nextRetryAt": bson.M{"$lte": now}},
		},
	}

	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.M{"updatedAt": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*entity.FlightRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Upsert creates or updates a flight record by tracking key.
func (r *MongoFlightRecordRepository) Upsert(ctx context.Context, record *entity.FlightRecord) error {
	record.UpdatedAt = time.Now()

	// For new records
	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now()
		}
	}

	updateDoc := bson.M{
		"trackingKey":           record.TrackingKey,
		"flightNumber":          record.FlightNumber,
		"carrierCode":           record.CarrierCode,
		"departureDate":         record.DepartureDate,
		"departureAirport":      record.DepartureAirport,
		"arrivalAirport":        record.ArrivalAirport,
		"status":                record.Status,
		"outUtc":                record.OutUTC,
		"offUtc":                record.OffUTC,
		"onUtc":                 record.OnUTC,
		"inUtc":                 record.InUTC,
		"departureDelayMinutes": record.DepartureDelay,
		"arrivalDelayMinutes":   record.ArrivalDelay,
		"committed":             record.Committed,
		"commitState":           record.CommitState,
		"commitAttempts":        record.CommitAttempts,
		"nextRetryAt":           record.NextRetryAt,
		"anchored":              record.Anchored,
		"ledgerTxRef":           record.LedgerTxRef,
		"ledgerBlock":           record.LedgerBlock,
		"rawSnapshot":           record.RawSnapshot,
		"active":                record.Active,
		"createdAt":             record.CreatedAt,
		"updatedAt":             record.UpdatedAt,
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"trackingKey": record.TrackingKey}

	result, err := r.collection.UpdateOne(
		ctx,
		filter,
		bson.M{"$set": updateDoc},
		opts,
	)
	if err != nil {
		return err
	}

	// If it was an insert, we need to get the new ID
	if result.UpsertedCount > 0 && result.UpsertedID != nil {
		if oid, ok := result.UpsertedID.(primitive.ObjectID); ok {
			record.ID = oid.Hex()
		}
	}

	return nil
}

// UpdateCommitResult marks a record as committed with its ledger reference.
func (r *MongoFlightRecordRepository) UpdateCommitResult(ctx context.Context, key string, receipt *entity.LedgerReceipt) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"trackingKey": key},
		bson.M{"$set": bson.M{
			"committed":      true,
			"commitState":    entity.CommitConfirmed,
			"commitAttempts": 0,
			"nextRetryAt":    nil,
			"anchored":       true,
			"ledgerTxRef":    receipt.TxRef,
			"ledgerBlock":    receipt.BlockNumber,
			"updatedAt":      time.Now(),
		}},
	)
	return err
}

// UpdateCommitFailure records a failed attempt and when to try again.
func (r *MongoFlightRecordRepository) UpdateCommitFailure(ctx context.Context, key string, attempts int, nextRetryAt time.Time) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"trackingKey": key},
		bson.M{"$set": bson.M{
			"committed":      false,
			"commitState":    entity.CommitPending,
			"commitAttempts": attempts,
			"nextRetryAt":    nextRetryAt,
			"updatedAt":      time.Now(),
		}},
	)
	return err
}

// MarkDeadLetter stops retries for a record whose commit budget is spent.
func (r *MongoFlightRecordRepository) MarkDeadLetter(ctx context.Context, key string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"trackingKey": key},
		bson.M{"$set": bson.M{
			"commitState": entity.CommitDeadLetter,
			"updatedAt":   time.Now(),
		}},
	)
	return err
}

// Deactivate stops polling a record without deleting it.
func (r *MongoFlightRecordRepository) Deactivate(ctx context.Context, key string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"trackingKey": key},
		bson.M{"$set": bson.M{
			"active":    false,
			"updatedAt": time.Now(),
		}},
	)
	return err
}

// DeleteByKey removes a record from the mirror store.
func (r *MongoFlightRecordRepository) DeleteByKey(ctx context.Context, key string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"trackingKey": key})
	return err
}
