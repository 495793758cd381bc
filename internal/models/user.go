package models

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleClient     Role = "client"
	RoleEmployee   Role = "employee"
	RoleContractor Role = "contractor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClient, RoleEmployee, RoleContractor:
		return true
	}
	return false
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// User is the identity record returned by the external identity provider.
type User struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// Session is the authenticated session record carried by the session cookie.
type Session struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	MFAComplete  bool      `json:"mfaComplete"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}

func (s Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// MFAChallenge is a pending second-factor check. CodeHash is a keyed hash of
// the code; the plain code is only handed to the notifier.
type MFAChallenge struct {
	ID        string
	UserID    string
	CodeHash  []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (c MFAChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
