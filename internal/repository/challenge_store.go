package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"homecare/portal/internal/models"
)

var ErrChallengeNotFound = errors.New("mfa challenge not found")

// ChallengeStore holds pending MFA challenges. Consume removes and returns a
// challenge atomically, so at most one caller can ever consume a given id.
type ChallengeStore interface {
	Save(ctx context.Context, challenge models.MFAChallenge) error
	Get(ctx context.Context, id string) (models.MFAChallenge, error)
	Consume(ctx context.Context, id string) (models.MFAChallenge, error)
}

type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]models.MFAChallenge
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]models.MFAChallenge)}
}

func (s *MemoryChallengeStore) Save(_ context.Context, challenge models.MFAChallenge) error {
	s.mu.Lock()
	s.challenges[challenge.ID] = challenge
	s.mu.Unlock()
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, id string) (models.MFAChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return models.MFAChallenge{}, ErrChallengeNotFound
	}
	return c, nil
}

func (s *MemoryChallengeStore) Consume(_ context.Context, id string) (models.MFAChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return models.MFAChallenge{}, ErrChallengeNotFound
	}
	delete(s.challenges, id)
	return c, nil
}

// Sweep drops expired challenges and returns how many were removed.
func (s *MemoryChallengeStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, c := range s.challenges {
		if c.IsExpired(now) {
			delete(s.challenges, id)
			removed++
		}
	}
	return removed
}
