package service

import (
	"fmt"
	"unicode/utf8"

	"homecare/portal/internal/models"
)

const baselineRationale = "Baseline heuristic score"

type MatchingInput struct {
	ClientID    string         `json:"clientId"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

// BaselineMatches is a deterministic placeholder for caregiver matching. The
// seed is the client id's first character code modulo 3.
func BaselineMatches(input MatchingInput) ([]models.CandidateMatch, error) {
	if input.ClientID == "" {
		return nil, fmt.Errorf("%w: clientId required", ErrInvalidInput)
	}
	first, _ := utf8.DecodeRuneInString(input.ClientID)
	seed := int(first) % 3

	out := make([]models.CandidateMatch, 3)
	for i := range out {
		out[i] = models.CandidateMatch{
			CaregiverID: fmt.Sprintf("%d-%d", seed, i),
			Score:       100 - i*12 + seed,
			Rationale:   baselineRationale,
		}
	}
	return out, nil
}
