package model

import "time"

// AccessToken binds an opaque bearer token to a user. Only the SHA-256 hash
// of the secret part is stored.
type AccessToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	Name       string     `gorm:"size:64;not null" json:"name"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (AccessToken) TableName() string {
	return "personal_access_tokens"
}

// Expired reports whether the token has an expiry at or before now.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// TokenUsage is published each time a token authenticates a request.
type TokenUsage struct {
	TokenID uint      `json:"token_id"`
	UsedAt  time.Time `json:"used_at"`
}
