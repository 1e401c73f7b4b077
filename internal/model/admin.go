package model

import "time"

// AdminSession describes the signed-in admin carried by a token.
type AdminSession struct {
	SessionID string    `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required,min=1,max=128"`
}
