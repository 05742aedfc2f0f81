package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mipo/server/internal/models"
	"mipo/server/internal/phone"
	"mipo/server/internal/verify"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AuthService orchestrates phone verification and account lifecycle.
// Verification codes are checked against the provider on every call;
// no server-side verification state is kept between requests.
type AuthService struct {
	pool     *pgxpool.Pool
	verifier verify.Verifier
	groups   *GroupService
	logger   *zap.Logger
}

func NewAuthService(pool *pgxpool.Pool, verifier verify.Verifier, groups *GroupService, logger *zap.Logger) *AuthService {
	return &AuthService{
		pool:     pool,
		verifier: verifier,
		groups:   groups,
		logger:   logger,
	}
}

// SendVerificationCode normalizes the phone and asks the provider to
// text a code to it. The returned expiry is advisory display metadata,
// computed locally regardless of what the provider honors.
func (s *AuthService) SendVerificationCode(ctx context.Context, rawPhone string) (time.Time, error) {
	expiresAt := time.Now().Add(verify.CodeExpiry)

	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return expiresAt, ErrInvalidPhone
	}

	if err := s.verifier.SendCode(ctx, normalized); err != nil {
		s.logger.Warn("failed to send verification code", zap.Error(err))
		return expiresAt, err
	}

	return expiresAt, nil
}

// Create signs a user up: the code is re-verified against the
// provider, the account is created unless the phone is already known,
// and an optional invite code joins the new user to a group. User
// creation and the join run in one transaction, so a bad invite code
// leaves no user row behind.
func (s *AuthService) Create(ctx context.Context, rawPhone, code, displayName, inviteCode string) (models.User, error) {
	var user models.User

	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return user, ErrInvalidPhone
	}

	if err := s.verifier.CheckCode(ctx, normalized, code); err != nil {
		if errors.Is(err, verify.ErrCodeRejected) {
			return user, ErrInvalidCode
		}
		return user, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return user, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		SELECT id, phone, display_name, is_verified, created_at, updated_at
		FROM users WHERE phone = $1
	`, normalized).Scan(&user.ID, &user.Phone, &user.DisplayName, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		err = tx.QueryRow(ctx, `
			INSERT INTO users (phone, display_name, is_verified, created_at, updated_at)
			VALUES ($1, $2, TRUE, $3, $3)
			RETURNING id, phone, display_name, is_verified, created_at, updated_at
		`, normalized, displayName, time.Now()).
			Scan(&user.ID, &user.Phone, &user.DisplayName, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt)

		if isUniqueViolation(err, "users_phone_unique") {
			return models.User{}, ErrPhoneTaken
		}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to look up or create user: %w", err)
	}

	if inviteCode != "" {
		if _, _, err := s.groups.joinGroupTx(ctx, tx, user.ID, inviteCode); err != nil {
			return models.User{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, fmt.Errorf("failed to commit signup: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies the code and returns the existing account for the
// phone. Unknown phones are rejected; signup is a separate call.
func (s *AuthService) Login(ctx context.Context, rawPhone, code string) (models.User, error) {
	var user models.User

	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return user, ErrInvalidPhone
	}

	if err := s.verifier.CheckCode(ctx, normalized, code); err != nil {
		if errors.Is(err, verify.ErrCodeRejected) {
			return user, ErrInvalidCode
		}
		return user, err
	}

	err := s.pool.QueryRow(ctx, `
		SELECT id, phone, display_name, is_verified, created_at, updated_at
		FROM users WHERE phone = $1
	`, normalized).Scan(&user.ID, &user.Phone, &user.DisplayName, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return user, ErrUserNotFound
	}
	if err != nil {
		return user, fmt.Errorf("failed to look up user: %w", err)
	}

	return user, nil
}

// GetUser returns the account for an id.
func (s *AuthService) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, phone, display_name, is_verified, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Phone, &user.DisplayName, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return user, ErrUserNotFound
	}
	if err != nil {
		return user, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// UpdateDisplayName changes the user's global display name.
func (s *AuthService) UpdateDisplayName(ctx context.Context, id, displayName string) (models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET display_name = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, phone, display_name, is_verified, created_at, updated_at
	`, displayName, time.Now(), id).
		Scan(&user.ID, &user.Phone, &user.DisplayName, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return user, ErrUserNotFound
	}
	if err != nil {
		return user, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}
