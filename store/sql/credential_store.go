package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-admin-client/auth"
	"github.com/goliatone/go-admin-client/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const DefaultProfile = "default"

// CredentialStore persists token pairs per profile. Every SetTokens writes a
// new version and retires the previous one; Logout revokes the active one.
type CredentialStore struct {
	db      *bun.DB
	repo    repository.Repository[*credentialRecord]
	profile string
	now     func() time.Time
}

// CredentialVersion is a read-only view of a stored version, without tokens.
type CredentialVersion struct {
	Version          int
	Status           string
	RevocationReason string
	AccessExpiresAt  *time.Time
	CreatedAt        time.Time
}

func NewCredentialStore(db *bun.DB, profile string) (*CredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*credentialRecord](db, credentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	return &CredentialStore{
		db:      db,
		repo:    repo,
		profile: profile,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *CredentialStore) Profile() string {
	if s == nil {
		return ""
	}
	return s.profile
}

// Load returns the active pair, or an empty pair when the profile is logged out.
func (s *CredentialStore) Load(ctx context.Context) (core.CredentialPair, error) {
	if s == nil || s.repo == nil {
		return core.CredentialPair{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("profile", "=", s.profile),
		repository.SelectBy("status", "=", credentialStatusActive),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.CredentialPair{}, err
	}
	if len(records) == 0 {
		return core.CredentialPair{}, nil
	}
	return core.CredentialPair{
		AccessToken:  records[0].AccessToken,
		RefreshToken: records[0].RefreshToken,
	}, nil
}

func (s *CredentialStore) SetTokens(ctx context.Context, accessToken string, refreshToken string) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	accessToken = strings.TrimSpace(accessToken)
	refreshToken = strings.TrimSpace(refreshToken)
	if accessToken == "" || refreshToken == "" {
		return fmt.Errorf("sqlstore: access and refresh tokens are required")
	}
	now := s.now()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, err := s.nextVersion(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*credentialRecord)(nil)).
			Set("status = ?", credentialStatusRotated).
			Set("revocation_reason = ?", "rotated").
			Set("updated_at = ?", now).
			Where("profile = ?", s.profile).
			Where("status = ?", credentialStatusActive).
			Exec(ctx); err != nil {
			return err
		}

		record := &credentialRecord{
			Profile:      s.profile,
			Version:      nextVersion,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			Status:       credentialStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if expiresAt, ok := auth.TokenExpiry(accessToken); ok {
			expiresAt = expiresAt.UTC()
			record.AccessExpiresAt = &expiresAt
		}
		_, err = s.repo.CreateTx(ctx, tx, record)
		return err
	})
}

// Logout revokes the active version. Logging out twice is a no-op.
func (s *CredentialStore) Logout(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*credentialRecord)(nil)).
		Set("status = ?", credentialStatusRevoked).
		Set("revocation_reason = ?", "logout").
		Set("updated_at = ?", s.now()).
		Where("profile = ?", s.profile).
		Where("status = ?", credentialStatusActive).
		Exec(ctx)
	return err
}

// History lists the most recent versions, newest first.
func (s *CredentialStore) History(ctx context.Context, limit int) ([]CredentialVersion, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: credential store is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("profile", "=", s.profile),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]CredentialVersion, 0, len(records))
	for _, record := range records {
		out = append(out, CredentialVersion{
			Version:          record.Version,
			Status:           record.Status,
			RevocationReason: record.RevocationReason,
			AccessExpiresAt:  copyTimePointer(record.AccessExpiresAt),
			CreatedAt:        record.CreatedAt,
		})
	}
	return out, nil
}

func (s *CredentialStore) nextVersion(ctx context.Context, tx bun.Tx) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*credentialRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.profile = ?", s.profile).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

func copyTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}
