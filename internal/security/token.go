package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"homecare/portal/internal/models"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

const sessionIssuer = "homecare-portal"

func init() {
	jwt.TimePrecision = time.Millisecond
}

type SessionClaims struct {
	UserID       string `json:"uid"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	MFAComplete  bool   `json:"mfa"`
	RefreshToken string `json:"rt,omitempty"`
	jwt.RegisteredClaims
}

// EncodeSession signs s into a compact token. IssuedAt and ExpiresAt are
// carried with millisecond precision.
func EncodeSession(key []byte, s models.Session) (string, error) {
	claims := SessionClaims{
		UserID:       s.UserID,
		Email:        s.Email,
		Role:         string(s.Role),
		MFAComplete:  s.MFAComplete,
		RefreshToken: s.RefreshToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// DecodeSession verifies the signature and returns the session. Expiry is
// not enforced here: the session manager decides what an expired session
// means, so an expired but authentic token still decodes.
func DecodeSession(key []byte, tokenStr string) (models.Session, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims SessionClaims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if !token.Valid || claims.Issuer != sessionIssuer || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return models.Session{}, ErrInvalidSessionToken
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok {
		return models.Session{}, fmt.Errorf("%w: unknown role %q", ErrInvalidSessionToken, claims.Role)
	}

	return models.Session{
		UserID:       claims.UserID,
		Email:        claims.Email,
		Role:         role,
		MFAComplete:  claims.MFAComplete,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
		RefreshToken: claims.RefreshToken,
	}, nil
}
