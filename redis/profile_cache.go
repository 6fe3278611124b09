package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"travorier/app/models"
)

// ProfileSource is the authoritative profile lookup behind the cache
type ProfileSource interface {
	GetProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error)
}

// ProfileCache is a read-through cache of public profiles. Redis failures
// fall back to the source.
type ProfileCache struct {
	client redis.UniversalClient
	source ProfileSource
	ttl    time.Duration
	logger zerolog.Logger
}

// NewProfileCache wraps source with a cache whose entries expire after ttl
func NewProfileCache(client redis.UniversalClient, source ProfileSource, ttl time.Duration, logger zerolog.Logger) *ProfileCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProfileCache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger.With().Str("component", "profile_cache").Logger(),
	}
}

func profileKey(id string) string { return "profile:" + id }

func (p *ProfileCache) GetProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = profileKey(id)
	}

	missing := ids
	vals, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		p.logger.Warn().Err(err).Msg("profile cache read failed")
	} else {
		missing = missing[:0:0]
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var profile models.Profile
			if err := json.Unmarshal([]byte(s), &profile); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			out[ids[i]] = profile
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := p.source.GetProfiles(ctx, missing)
	if err != nil {
		return nil, err
	}

	pipe := p.client.Pipeline()
	for id, profile := range fetched {
		out[id] = profile
		if data, err := json.Marshal(profile); err == nil {
			pipe.Set(ctx, profileKey(id), data, p.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("profile cache write failed")
	}
	return out, nil
}
