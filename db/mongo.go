// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/onevote/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionVotes  = "pollResponses"
	collectionEvents = "analyticsEvents"

	indexDeviceUnique  = "deviceId_unique"
	indexSessionUnique = "sessionId_unique"

	mongoDuplicateKey = 11000
)

// MongoStore implements Store on MongoDB. Uniqueness comes from the
// deviceId_unique (sparse) and sessionId_unique indexes.
type MongoStore struct {
	client *mongo.Client
	votes  *mongo.Collection
	events *mongo.Collection
}

type voteDoc struct {
	ID        string    `bson:"_id"`
	SessionID string    `bson:"sessionId"`
	DeviceID  string    `bson:"deviceId,omitempty"` // absent keeps the sparse index from matching
	IP        string    `bson:"ip"`
	Gender    string    `bson:"gender"`
	Age       int       `bson:"age"`
	Answer    string    `bson:"answer"`
	CreatedAt time.Time `bson:"createdAt"`
}

type eventDoc struct {
	Type      string         `bson:"type"`
	SessionID *string        `bson:"sessionId"`
	DeviceID  *string        `bson:"deviceId"`
	IP        string         `bson:"ip"`
	Context   map[string]any `bson:"context"`
	CreatedAt time.Time      `bson:"createdAt"`
}

// OpenMongo connects, pings, and creates the collection indexes
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client: client,
		votes:  db.Collection(collectionVotes),
		events: db.Collection(collectionEvents),
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes is idempotent; existing indexes with the same definition are kept
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.votes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "deviceId", Value: 1}},
			Options: options.Index().SetName(indexDeviceUnique).SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetName(indexSessionUnique).SetUnique(true),
		},
		{Keys: bson.D{{Key: "ip", Value: 1}}, Options: options.Index().SetName("ip_index")},
		{Keys: bson.D{{Key: "answer", Value: 1}}, Options: options.Index().SetName("answer_index")},
		{Keys: bson.D{{Key: "gender", Value: 1}}, Options: options.Index().SetName("gender_index")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("createdAt_index")},
	})
	if err != nil {
		return fmt.Errorf("failed to create vote indexes: %w", err)
	}

	_, err = s.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}}, Options: options.Index().SetName("type_index")},
		{Keys: bson.D{{Key: "deviceId", Value: 1}}, Options: options.Index().SetName("deviceId_index")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("createdAt_index")},
	})
	if err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) CountByIP(ctx context.Context, ip string) (int, error) {
	n, err := s.votes.CountDocuments(ctx, bson.M{"ip": ip})
	if err != nil {
		return 0, fmt.Errorf("failed to count votes by ip: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := s.votes.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoStore) ExistsByDevice(ctx context.Context, deviceID string) (bool, error) {
	ok, err := s.exists(ctx, bson.M{"deviceId": deviceID})
	if err != nil {
		return false, fmt.Errorf("failed to check device: %w", err)
	}
	return ok, nil
}

func (s *MongoStore) ExistsBySession(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.exists(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return ok, nil
}

func (s *MongoStore) InsertUnique(ctx context.Context, rec models.VoteRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.votes.InsertOne(ctx, voteDoc{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		DeviceID:  rec.DeviceID,
		IP:        rec.IP,
		Gender:    rec.Gender,
		Age:       rec.Age,
		Answer:    rec.Answer,
		CreatedAt: createdAt,
	})
	if err != nil {
		var se mongo.ServerError
		if errors.As(err, &se) {
			switch {
			case se.HasErrorCodeWithMessage(mongoDuplicateKey, indexDeviceUnique):
				return models.ErrDuplicateDevice
			case se.HasErrorCodeWithMessage(mongoDuplicateKey, indexSessionUnique):
				return models.ErrDuplicateSession
			}
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

func (s *MongoStore) CountVotes(ctx context.Context, f models.VoteFilter) (int, error) {
	filter := bson.M{}
	if f.Answer != "" {
		filter["answer"] = f.Answer
	}
	if f.Gender != "" {
		filter["gender"] = f.Gender
	}
	age := bson.M{}
	if f.MinAge > 0 {
		age["$gte"] = f.MinAge
	}
	if f.MaxAge > 0 {
		age["$lte"] = f.MaxAge
	}
	if len(age) > 0 {
		filter["age"] = age
	}

	n, err := s.votes.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) InsertEvent(ctx context.Context, ev models.AnalyticsEvent) error {
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	evCtx := ev.Context
	if evCtx == nil {
		evCtx = map[string]any{}
	}

	_, err := s.events.InsertOne(ctx, eventDoc{
		Type:      ev.Type,
		SessionID: optional(ev.SessionID),
		DeviceID:  optional(ev.DeviceID),
		IP:        ev.IP,
		Context:   evCtx,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

func (s *MongoStore) CountEvents(ctx context.Context, eventType string) (int, error) {
	n, err := s.events.CountDocuments(ctx, bson.M{"type": eventType})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) CountEventsBy(ctx context.Context, eventType, key string) (map[string]int, error) {
	cur, err := s.events.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"type": eventType}}},
		{{Key: "$group", Value: bson.M{"_id": "$context." + key, "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to group events: %w", err)
	}
	defer cur.Close(ctx)

	out := make(map[string]int)
	for cur.Next(ctx) {
		var group struct {
			ID    any `bson:"_id"`
			Count int `bson:"count"`
		}
		if err := cur.Decode(&group); err != nil {
			return nil, fmt.Errorf("failed to decode event group: %w", err)
		}
		value := ""
		if group.ID != nil {
			value = fmt.Sprint(group.ID)
		}
		out[value] += group.Count
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to group events: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes both collections. Used by tests against a scratch database.
func (s *MongoStore) Drop(ctx context.Context) error {
	if err := s.votes.Drop(ctx); err != nil {
		return err
	}
	return s.events.Drop(ctx)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
