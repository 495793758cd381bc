package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/models"
	"homecare/portal/internal/repository"
	"homecare/portal/internal/security"
)

// Notifier delivers a freshly generated code to the user out of band.
type Notifier interface {
	Deliver(ctx context.Context, userID string, challengeID string, code string) error
}

// LogNotifier writes codes to the log. Development only.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) LogNotifier {
	return LogNotifier{log: log}
}

func (n LogNotifier) Deliver(_ context.Context, userID string, challengeID string, code string) error {
	n.log.Warn().
		Str("user_id", userID).
		Str("challenge_id", challengeID).
		Str("code", code).
		Msg("mfa code issued (development notifier)")
	return nil
}

type MFAConfig struct {
	CodeTTL    time.Duration
	CodeDigits int
}

type MFAService struct {
	challenges repository.ChallengeStore
	key        []byte
	cfg        MFAConfig
	notifier   Notifier
	audit      audit.Recorder
	log        zerolog.Logger
	now        func() time.Time
}

func NewMFAService(
	challenges repository.ChallengeStore,
	key []byte,
	cfg MFAConfig,
	notifier Notifier,
	recorder audit.Recorder,
	log zerolog.Logger,
) *MFAService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.CodeDigits <= 0 {
		cfg.CodeDigits = 6
	}
	return &MFAService{
		challenges: challenges,
		key:        key,
		cfg:        cfg,
		notifier:   notifier,
		audit:      recorder,
		log:        log,
		now:        time.Now,
	}
}

func (s *MFAService) WithClock(now func() time.Time) *MFAService {
	s.now = now
	return s
}

func (s *MFAService) CodeDigits() int {
	return s.cfg.CodeDigits
}

// Begin creates a challenge for userID and hands the code to the notifier.
func (s *MFAService) Begin(ctx context.Context, userID string) (models.MFAChallenge, error) {
	if userID == "" {
		return models.MFAChallenge{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	code, err := security.GenerateCode(s.cfg.CodeDigits)
	if err != nil {
		return models.MFAChallenge{}, err
	}

	now := s.now().UTC()
	challenge := models.MFAChallenge{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
	}
	challenge.CodeHash = security.HashCode(s.key, challenge.ID, code)

	if err := s.challenges.Save(ctx, challenge); err != nil {
		return models.MFAChallenge{}, fmt.Errorf("save challenge: %w", err)
	}
	if err := s.notifier.Deliver(ctx, userID, challenge.ID, code); err != nil {
		return models.MFAChallenge{}, fmt.Errorf("deliver code: %w", err)
	}

	audit.TrackAuthEvent(ctx, s.audit, "mfa_challenge_created", userID, map[string]any{"challenge_id": challenge.ID})
	return challenge, nil
}

// Verify checks code against the challenge and consumes it on success. A
// wrong code leaves the challenge in place; an expired one is discarded.
func (s *MFAService) Verify(ctx context.Context, challengeID string, code string) (models.MFAChallenge, error) {
	if !security.IsNumericCode(code, s.cfg.CodeDigits) {
		return models.MFAChallenge{}, ErrInvalidCode
	}

	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			return models.MFAChallenge{}, ErrChallengeNotFound
		}
		return models.MFAChallenge{}, err
	}

	if challenge.IsExpired(s.now()) {
		_, _ = s.challenges.Consume(ctx, challengeID)
		audit.TrackAuthEvent(ctx, s.audit, "mfa_expired", challenge.UserID, map[string]any{"challenge_id": challengeID})
		return models.MFAChallenge{}, ErrCodeExpired
	}

	if !security.VerifyCode(s.key, challengeID, code, challenge.CodeHash) {
		s.log.Warn().Str("challenge_id", challengeID).Str("user_id", challenge.UserID).Msg("mfa code mismatch")
		audit.TrackAuthEvent(ctx, s.audit, "mfa_failed", challenge.UserID, map[string]any{"challenge_id": challengeID})
		return models.MFAChallenge{}, ErrInvalidCode
	}

	// Another request may have consumed it between Get and here.
	if _, err := s.challenges.Consume(ctx, challengeID); err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			return models.MFAChallenge{}, ErrChallengeNotFound
		}
		return models.MFAChallenge{}, err
	}

	audit.TrackAuthEvent(ctx, s.audit, "mfa_verified", challenge.UserID, map[string]any{"challenge_id": challengeID})
	return challenge, nil
}
