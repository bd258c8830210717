package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for patient, doctor and admin logins.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RegisterRequest is the patient sign-up payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// TokenResponse returns an issued role token.
type TokenResponse struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	ExpiresIn int64     `json:"expiresIn"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// JWTClaims is the payload of every role token. Admin tokens leave ID empty.
type JWTClaims struct {
	ID   string `json:"id,omitempty"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into a request principal.
func (c *JWTClaims) Principal() *Principal {
	return &Principal{Role: c.Role, ID: c.ID}
}
