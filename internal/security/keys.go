package security

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Purposes for which separate keys are derived from the master secret.
const (
	PurposeSession = "portal/session/v1"
	PurposeMFA     = "portal/mfa/v1"
)

// Keys holds per-purpose keys derived from one configured secret so that a
// leaked MFA hash key cannot be used to mint sessions.
type Keys struct {
	Session []byte
	MFA     []byte
}

func DeriveKeys(secret string) (Keys, error) {
	if secret == "" {
		return Keys{}, fmt.Errorf("derive keys: empty secret")
	}
	session, err := deriveKey(secret, PurposeSession)
	if err != nil {
		return Keys{}, err
	}
	mfa, err := deriveKey(secret, PurposeMFA)
	if err != nil {
		return Keys{}, err
	}
	return Keys{Session: session, MFA: mfa}, nil
}

func deriveKey(secret string, purpose string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
