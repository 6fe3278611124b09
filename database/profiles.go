package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"travorier/app/models"
)

// MongoConfig configures the connection to the users database
type MongoConfig struct {
	URI     string
	Timeout time.Duration
}

// ConnectMongo opens a client and verifies it with a primary ping
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// MongoProfiles reads public profiles from the users collection
type MongoProfiles struct {
	users *mongo.Collection
}

// NewMongoProfiles wraps the users collection
func NewMongoProfiles(users *mongo.Collection) *MongoProfiles {
	return &MongoProfiles{users: users}
}

// GetProfiles returns the profiles found for ids; unknown ids are absent from the map
func (p *MongoProfiles) GetProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	projection := bson.M{"full_name": 1, "avatar_url": 1, "trust_score": 1, "id_verified": 1}
	cursor, err := p.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(projection))
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var profile models.Profile
		if err := cursor.Decode(&profile); err != nil {
			return nil, fmt.Errorf("failed to decode profile: %w", err)
		}
		out[profile.ID] = profile
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return out, nil
}

// MemoryProfiles is a fixed profile directory for tests and local runs
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

// NewMemoryProfiles seeds the directory with profiles
func NewMemoryProfiles(profiles ...models.Profile) *MemoryProfiles {
	m := &MemoryProfiles{profiles: make(map[string]models.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

// Put adds or replaces a profile
func (m *MemoryProfiles) Put(p models.Profile) {
	m.mu.Lock()
	m.profiles[p.ID] = p
	m.mu.Unlock()
}

func (m *MemoryProfiles) GetProfiles(_ context.Context, ids []string) (map[string]models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.Profile, len(ids))
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
