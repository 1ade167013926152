// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReadingCollection is the document-store collection holding sensor readings.
const ReadingCollection = "parcelas"

// mongoReading is the persisted document shape. The public SensorReading
// carries the storage id as a hex string; conversion happens at this
// boundary so nothing above the store depends on the driver.
type mongoReading struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Value     float64            `bson:"value"`
	Unit      string             `bson:"unit,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`
	Coords    Coordinates        `bson:"coords"`
	Type      SensorType         `bson:"type"`
	IsDeleted bool               `bson:"isDeleted"`
}

func (d *mongoReading) toModel() SensorReading {
	return SensorReading{
		ID:        d.ID.Hex(),
		Value:     d.Value,
		Unit:      d.Unit,
		Timestamp: d.Timestamp,
		Coords:    d.Coords,
		Type:      d.Type,
		IsDeleted: d.IsDeleted,
	}
}

// ReadingPatch is a partial administrative update to a persisted reading.
type ReadingPatch struct {
	Value     *float64
	Unit      *string
	Timestamp *time.Time
	Coords    *Coordinates
}

// MongoReadingStore implements ReadingStore over a MongoDB collection.
type MongoReadingStore struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoReadingStore creates a reading store over db's parcelas collection.
func NewMongoReadingStore(db *mongo.Database, logger *slog.Logger) *MongoReadingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoReadingStore{coll: db.Collection(ReadingCollection), logger: logger}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func (s *MongoReadingStore) buildFilter(filter ReadingFilter) bson.M {
	query := bson.M{}
	if !filter.IncludeDeleted {
		query["isDeleted"] = bson.M{"$ne": true}
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Unit != "" {
		query["unit"] = filter.Unit
	}
	if filter.From != nil || filter.To != nil {
		ts := bson.M{}
		if filter.From != nil {
			ts["$gte"] = *filter.From
		}
		if filter.To != nil {
			ts["$lte"] = *filter.To
		}
		query["timestamp"] = ts
	}
	if filter.MinValue != nil || filter.MaxValue != nil {
		val := bson.M{}
		if filter.MinValue != nil {
			val["$gte"] = *filter.MinValue
		}
		if filter.MaxValue != nil {
			val["$lte"] = *filter.MaxValue
		}
		query["value"] = val
	}
	if filter.LatMin != nil || filter.LatMax != nil {
		lat := bson.M{}
		if filter.LatMin != nil {
			lat["$gte"] = *filter.LatMin
		}
		if filter.LatMax != nil {
			lat["$lte"] = *filter.LatMax
		}
		query["coords.lat"] = lat
	}
	if filter.LonMin != nil || filter.LonMax != nil {
		lon := bson.M{}
		if filter.LonMin != nil {
			lon["$gte"] = *filter.LonMin
		}
		if filter.LonMax != nil {
			lon["$lte"] = *filter.LonMax
		}
		query["coords.lon"] = lon
	}
	return query
}

// FindAll returns readings matching the filter, sorted by storage id so
// repeated reads over unchanged data come back in the same order.
func (s *MongoReadingStore) FindAll(ctx context.Context, filter ReadingFilter) ([]SensorReading, error) {
	cursor, err := s.coll.Find(ctx, s.buildFilter(filter),
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find readings: %w", err)
	}
	var docs []mongoReading
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	readings := make([]SensorReading, 0, len(docs))
	for i := range docs {
		readings = append(readings, docs[i].toModel())
	}
	return readings, nil
}

// GetByID returns a single non-deleted reading.
func (s *MongoReadingStore) GetByID(ctx context.Context, id string) (*SensorReading, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc mongoReading
	err = s.coll.FindOne(ctx, bson.M{"_id": oid, "isDeleted": bson.M{"$ne": true}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: reading %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reading %s: %w", id, err)
	}
	m := doc.toModel()
	return &m, nil
}

// Insert persists one reading and returns it with its assigned storage id.
func (s *MongoReadingStore) Insert(ctx context.Context, r SensorReading) (*SensorReading, error) {
	doc := mongoReading{
		Value:     r.Value,
		Unit:      r.Unit,
		Timestamp: r.Timestamp,
		Coords:    r.Coords,
		Type:      r.Type,
	}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert reading: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	m := doc.toModel()
	return &m, nil
}

// InsertMany bulk-inserts readings, letting the store assign fresh ids.
func (s *MongoReadingStore) InsertMany(ctx context.Context, readings []SensorReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, 0, len(readings))
	for _, r := range readings {
		docs = append(docs, mongoReading{
			Value:     r.Value,
			Unit:      r.Unit,
			Timestamp: r.Timestamp,
			Coords:    r.Coords,
			Type:      r.Type,
			IsDeleted: r.IsDeleted,
		})
	}
	res, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err != nil {
		return inserted, fmt.Errorf("insert readings: %w", err)
	}
	return inserted, nil
}

// BulkUpdate applies point updates addressed by storage id. Coordinates and
// type are never touched, so document identity survives every cycle.
func (s *MongoReadingStore) BulkUpdate(ctx context.Context, updates []ReadingUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		oid, err := parseObjectID(u.ID)
		if err != nil {
			return 0, err
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": oid}).
			SetUpdate(bson.M{"$set": bson.M{
				"value":     u.Value,
				"unit":      u.Unit,
				"timestamp": u.Timestamp,
				"isDeleted": u.IsDeleted,
			}}))
	}
	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("bulk update readings: %w", err)
	}
	return int(res.MatchedCount), nil
}

// BulkSoftDelete marks the given documents deleted without removing them.
func (s *MongoReadingStore) BulkSoftDelete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(ids))
	for _, id := range ids {
		oid, err := parseObjectID(id)
		if err != nil {
			return 0, err
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": oid}).
			SetUpdate(bson.M{"$set": bson.M{"isDeleted": true}}))
	}
	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("bulk soft-delete readings: %w", err)
	}
	return int(res.MatchedCount), nil
}

// Update applies an administrative partial update to one reading.
func (s *MongoReadingStore) Update(ctx context.Context, id string, patch ReadingPatch) (*SensorReading, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if patch.Value != nil {
		set["value"] = *patch.Value
	}
	if patch.Unit != nil {
		set["unit"] = *patch.Unit
	}
	if patch.Timestamp != nil {
		set["timestamp"] = *patch.Timestamp
	}
	if patch.Coords != nil {
		set["coords"] = *patch.Coords
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidInput)
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update reading %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: reading %s", ErrNotFound, id)
	}
	return s.GetByID(ctx, id)
}

// SoftDelete marks one reading deleted.
func (s *MongoReadingStore) SoftDelete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"isDeleted": true}})
	if err != nil {
		return fmt.Errorf("soft-delete reading %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: reading %s", ErrNotFound, id)
	}
	return nil
}

// HardDelete removes a document permanently. This is the explicit
// administrative escape hatch; sync cycles only ever soft-delete.
func (s *MongoReadingStore) HardDelete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("hard-delete reading %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: reading %s", ErrNotFound, id)
	}
	return nil
}

// Stats aggregates non-deleted readings by unit: count, average, min, max.
func (s *MongoReadingStore) Stats(ctx context.Context) ([]SensorStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isDeleted": bson.M{"$ne": true}}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$unit",
			"count":    bson.M{"$sum": 1},
			"avgValue": bson.M{"$avg": "$value"},
			"minValue": bson.M{"$min": "$value"},
			"maxValue": bson.M{"$max": "$value"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate reading stats: %w", err)
	}
	var rows []struct {
		Unit     string  `bson:"_id"`
		Count    int     `bson:"count"`
		AvgValue float64 `bson:"avgValue"`
		MinValue float64 `bson:"minValue"`
		MaxValue float64 `bson:"maxValue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode reading stats: %w", err)
	}
	stats := make([]SensorStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, SensorStats{
			Key:      row.Unit,
			Count:    row.Count,
			AvgValue: row.AvgValue,
			MinValue: row.MinValue,
			MaxValue: row.MaxValue,
			Unit:     row.Unit,
		})
	}
	return stats, nil
}
