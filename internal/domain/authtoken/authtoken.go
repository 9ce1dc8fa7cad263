package authtoken

import (
	"time"

	"github.com/google/uuid"
)

// Token represents an authenticated login token at rest. Only the SHA-256
// hash of the presented token is stored.
type Token struct {
	ID         int64      `json:"id"`
	TokenID    uuid.UUID  `json:"tokenId"`
	TokenHash  string     `json:"-"`
	Account    string     `json:"account"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	UserAgent  *string    `json:"userAgent,omitempty"`
	IPAddress  *string    `json:"ipAddress,omitempty"`
}

func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
