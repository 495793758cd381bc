package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"homecare/portal/internal/models"
)

type RedisChallengeStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisChallengeStore(client redis.UniversalClient) *RedisChallengeStore {
	return &RedisChallengeStore{client: client, prefix: "mfa:challenge:"}
}

type challengeRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CodeHash  []byte    `json:"codeHash"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *RedisChallengeStore) Save(ctx context.Context, c models.MFAChallenge) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save challenge %s: already expired", c.ID)
	}
	data, err := json.Marshal(challengeRecord(c))
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+c.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) Get(ctx context.Context, id string) (models.MFAChallenge, error) {
	return s.decode(s.client.Get(ctx, s.prefix+id).Bytes())
}

func (s *RedisChallengeStore) Consume(ctx context.Context, id string) (models.MFAChallenge, error) {
	return s.decode(s.client.GetDel(ctx, s.prefix+id).Bytes())
}

func (s *RedisChallengeStore) decode(data []byte, err error) (models.MFAChallenge, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.MFAChallenge{}, ErrChallengeNotFound
		}
		return models.MFAChallenge{}, fmt.Errorf("load challenge: %w", err)
	}
	var rec challengeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.MFAChallenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return models.MFAChallenge(rec), nil
}
