package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	credentialStatusActive  = "active"
	credentialStatusRotated = "rotated"
	credentialStatusRevoked = "revoked"
)

// credentialRecord is one version of a profile's token pair. At most one
// version per profile is active.
type credentialRecord struct {
	bun.BaseModel `bun:"table:admin_client_credentials,alias:acc"`

	ID               string     `bun:"id,pk"`
	Profile          string     `bun:"profile,notnull"`
	Version          int        `bun:"version,notnull"`
	AccessToken      string     `bun:"access_token,notnull"`
	RefreshToken     string     `bun:"refresh_token,notnull"`
	AccessExpiresAt  *time.Time `bun:"access_expires_at,nullzero"`
	Status           string     `bun:"status,notnull"`
	RevocationReason string     `bun:"revocation_reason,notnull"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type rateLimitStateRecord struct {
	bun.BaseModel `bun:"table:admin_client_rate_limit_states,alias:arl"`

	ID                string     `bun:"id,pk"`
	Host              string     `bun:"host,notnull"`
	BucketKey         string     `bun:"bucket_key,notnull"`
	Limit             int        `bun:"limit_value,notnull"`
	Remaining         int        `bun:"remaining,notnull"`
	ResetAt           *time.Time `bun:"reset_at,nullzero"`
	RetryAfterSeconds *int       `bun:"retry_after_seconds"`
	ThrottledUntil    *time.Time `bun:"throttled_until,nullzero"`
	LastStatus        int        `bun:"last_status,notnull"`
	Attempts          int        `bun:"attempts,notnull"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
