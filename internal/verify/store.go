package verify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoCode is returned by a CodeStore when no code is on file for a
// phone number.
var ErrNoCode = errors.New("verify: no code on file")

// CodeStore persists hashed verification codes for the store-backed
// provider.
type CodeStore interface {
	SaveCode(ctx context.Context, phone, codeHash string, expiresAt time.Time) error
	LatestCode(ctx context.Context, phone string) (codeHash string, expiresAt time.Time, err error)
	DeleteCodes(ctx context.Context, phone string) error
}

// StoreVerifier is the local development provider: it generates codes
// itself and keeps bcrypt hashes in the sms_verifications table. The
// plaintext code is written to the debug log instead of an SMS.
type StoreVerifier struct {
	store  CodeStore
	logger *zap.Logger
}

func NewStoreVerifier(store CodeStore, logger *zap.Logger) *StoreVerifier {
	return &StoreVerifier{store: store, logger: logger}
}

func (v *StoreVerifier) SendCode(ctx context.Context, phone string) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	if err := v.store.SaveCode(ctx, phone, string(hash), time.Now().Add(CodeExpiry)); err != nil {
		return ErrDeliveryFailed
	}

	// Local development stand-in for the SMS itself.
	v.logger.Debug("verification code issued",
		zap.String("phone", phone),
		zap.String("code", code),
	)
	return nil
}

func (v *StoreVerifier) CheckCode(ctx context.Context, phone, code string) error {
	hash, expiresAt, err := v.store.LatestCode(ctx, phone)
	if errors.Is(err, ErrNoCode) {
		return ErrCodeRejected
	}
	if err != nil {
		return ErrProvider
	}

	if time.Now().After(expiresAt) {
		return ErrCodeRejected
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return ErrCodeRejected
	}

	// Codes are single-use.
	if err := v.store.DeleteCodes(ctx, phone); err != nil {
		v.logger.Warn("failed to clear used verification codes", zap.Error(err))
	}
	return nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

// PgCodeStore keeps verification codes in the sms_verifications table.
type PgCodeStore struct {
	pool *pgxpool.Pool
}

func NewPgCodeStore(pool *pgxpool.Pool) *PgCodeStore {
	return &PgCodeStore{pool: pool}
}

func (s *PgCodeStore) SaveCode(ctx context.Context, phone, codeHash string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sms_verifications (phone_number, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, phone, codeHash, expiresAt, time.Now())
	return err
}

func (s *PgCodeStore) LatestCode(ctx context.Context, phone string) (string, time.Time, error) {
	var codeHash string
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT code_hash, expires_at FROM sms_verifications
		WHERE phone_number = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, phone).Scan(&codeHash, &expiresAt)

	if err == pgx.ErrNoRows {
		return "", time.Time{}, ErrNoCode
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return codeHash, expiresAt, nil
}

func (s *PgCodeStore) DeleteCodes(ctx context.Context, phone string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sms_verifications WHERE phone_number = $1`, phone)
	return err
}
