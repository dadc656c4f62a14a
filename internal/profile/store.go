package profile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"finplan-assistant/internal/common/config"
	"finplan-assistant/internal/common/database"
	cerrors "finplan-assistant/internal/common/errors"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Store is the profile persistence collaborator.
type Store interface {
	// Get returns the stored profile, or nil when none exists.
	Get(ctx context.Context, userID string) (*Profile, error)
	// Update overwrites the stored profile.
	Update(ctx context.Context, userID string, p *Profile) error
	// Merge reads the profile, applies merge, and writes it back.
	Merge(ctx context.Context, userID string, merge func(*Profile)) error
}

// RedisStore keeps profiles as JSON blobs keyed by user id.
type RedisStore struct {
	redis     *database.RedisClient
	keyPrefix string
	ttl       time.Duration
	logger    logger.Logger
}

func NewRedisStore(redisClient *database.RedisClient, cfg config.ProfileConfig, log logger.Logger) *RedisStore {
	return &RedisStore{
		redis:     redisClient,
		keyPrefix: cfg.KeyPrefix,
		ttl:       time.Duration(cfg.TTL) * time.Second,
		logger:    log.With(map[string]interface{}{"component": "profile-store"}),
	}
}

func (s *RedisStore) key(userID string) string {
	return s.keyPrefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*Profile, error) {
	raw, err := s.redis.Get(ctx, s.key(userID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.NewProfileStoreFailedError(err)
	}

	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, cerrors.NewProfileStoreFailedError(err)
	}
	return &p, nil
}

func (s *RedisStore) Update(ctx context.Context, userID string, p *Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return cerrors.NewProfileStoreFailedError(err)
	}
	if err := s.redis.Set(ctx, s.key(userID), raw, s.ttl); err != nil {
		return cerrors.NewProfileStoreFailedError(err)
	}
	return nil
}

// Merge reads, merges, and writes back atomically enough for single-writer
// chat sessions. Concurrent merges for one user may lose a section; a
// last-write-wins profile is acceptable for conversational extraction.
func (s *RedisStore) Merge(ctx context.Context, userID string, merge func(*Profile)) error {
	p, err := s.Get(ctx, userID)
	if err != nil {
		metrics.ProfileMerges.WithLabelValues("error").Inc()
		return err
	}
	if p == nil {
		p = &Profile{}
	}

	merge(p)

	if err := s.Update(ctx, userID, p); err != nil {
		metrics.ProfileMerges.WithLabelValues("error").Inc()
		return err
	}
	metrics.ProfileMerges.WithLabelValues("ok").Inc()
	return nil
}
