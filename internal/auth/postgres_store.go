package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rapidaai/relay/internal/types"
	"github.com/rapidaai/relay/pkg/utils"
)

// principalRecord is the GORM model backing principal/quota persistence.
type principalRecord struct {
	ID                 string `gorm:"primaryKey;column:id"`
	Tier               string `gorm:"column:tier"`
	BearerTokenSecret  string `gorm:"column:bearer_token_secret"`
	Username           string `gorm:"column:username;index"`
	PasswordHash       string `gorm:"column:password_hash"`
	Disabled           bool   `gorm:"column:disabled"`
	DailyTokens        int64  `gorm:"column:daily_tokens"`
	MonthlyTokens      int64  `gorm:"column:monthly_tokens"`
	ConcurrentSessions int    `gorm:"column:concurrent_sessions"`
	AudioMinutes       int64  `gorm:"column:audio_minutes"`
}

func (principalRecord) TableName() string { return "relay_principals" }

// PostgresStore is the GORM-backed Credential Store implementation.
type PostgresStore struct {
	db        *gorm.DB
	jwtSecret string
}

// NewPostgresStore wraps an already-opened GORM connection.
func NewPostgresStore(db *gorm.DB, jwtSecret string) *PostgresStore {
	return &PostgresStore{db: db, jwtSecret: jwtSecret}
}

// Authenticate verifies a bearer token (as a relay-issued JWT) or a
// username/password pair against the principal table.
func (s *PostgresStore) Authenticate(ctx context.Context, creds types.Credentials) (*types.Principal, error) {
	if creds.HasBearer() {
		return s.authenticateBearer(ctx, creds.BearerToken)
	}
	if utils.IsEmpty(creds.Username) || utils.IsEmpty(creds.Password) {
		return nil, ErrUnauthenticated
	}
	return s.authenticatePassword(ctx, creds.Username, creds.Password)
}

func (s *PostgresStore) authenticateBearer(ctx context.Context, token string) (*types.Principal, error) {
	principalID, _, err := verifyBearerToken(token, s.jwtSecret)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return s.loadPrincipal(ctx, principalID)
}

func (s *PostgresStore) authenticatePassword(ctx context.Context, username, password string) (*types.Principal, error) {
	var rec principalRecord
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, &ErrBackendUnavailable{Cause: err}
	}
	if rec.Disabled {
		return nil, ErrUnauthenticated
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return nil, ErrUnauthenticated
	}
	return toPrincipal(rec), nil
}

func (s *PostgresStore) loadPrincipal(ctx context.Context, principalID string) (*types.Principal, error) {
	var rec principalRecord
	err := s.db.WithContext(ctx).Where("id = ?", principalID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, &ErrBackendUnavailable{Cause: err}
	}
	if rec.Disabled {
		return nil, ErrUnauthenticated
	}
	return toPrincipal(rec), nil
}

// QuotaFor is a pure lookup of a principal's tier quotas.
func (s *PostgresStore) QuotaFor(ctx context.Context, principalID string) (types.Quotas, error) {
	principal, err := s.loadPrincipal(ctx, principalID)
	if err != nil {
		return types.Quotas{}, err
	}
	return principal.Quotas, nil
}

func toPrincipal(rec principalRecord) *types.Principal {
	return &types.Principal{
		ID:       rec.ID,
		Tier:     types.Tier(rec.Tier),
		Disabled: rec.Disabled,
		Quotas: types.Quotas{
			DailyTokens:        rec.DailyTokens,
			MonthlyTokens:      rec.MonthlyTokens,
			ConcurrentSessions: rec.ConcurrentSessions,
			AudioMinutes:       rec.AudioMinutes,
		},
	}
}

// AutoMigrate creates/updates the principal table. Schema evolution beyond
// the initial shape is handled by the golang-migrate migrations in
// internal/auth/migrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&principalRecord{}); err != nil {
		return fmt.Errorf("auth: automigrate: %w", err)
	}
	return nil
}
