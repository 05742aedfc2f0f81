package services

import (
	"context"
	"fmt"
	"time"

	"mipo/server/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PresenceService tracks per-member status within a group with
// last-write-wins semantics.
type PresenceService struct {
	pool   *pgxpool.Pool
	groups *GroupService
	logger *zap.Logger
}

func NewPresenceService(pool *pgxpool.Pool, groups *GroupService, logger *zap.Logger) *PresenceService {
	return &PresenceService{pool: pool, groups: groups, logger: logger}
}

// GetGroupPresence returns every presence row in the group. The caller
// must be a member.
func (s *PresenceService) GetGroupPresence(ctx context.Context, groupID, userID string) ([]models.Presence, error) {
	if _, err := s.groups.memberRole(ctx, groupID, userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, group_id, status, last_updated
		FROM presence_status
		WHERE group_id = $1
		ORDER BY last_updated DESC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query presence: %w", err)
	}
	defer rows.Close()

	presence := []models.Presence{}
	for rows.Next() {
		var p models.Presence
		if err := rows.Scan(&p.ID, &p.UserID, &p.GroupID, &p.Status, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan presence: %w", err)
		}
		presence = append(presence, p)
	}
	return presence, rows.Err()
}

// UpdatePresence sets the caller's status in the group. The upsert is
// a single atomic statement keyed by the (group_id, user_id) unique
// constraint, so concurrent first writes cannot produce duplicate
// rows.
func (s *PresenceService) UpdatePresence(ctx context.Context, groupID, userID, status string) (models.Presence, error) {
	var p models.Presence

	if _, err := s.groups.memberRole(ctx, groupID, userID); err != nil {
		return p, err
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO presence_status (user_id, group_id, status, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id, user_id)
		DO UPDATE SET status = EXCLUDED.status, last_updated = EXCLUDED.last_updated
		RETURNING id, user_id, group_id, status, last_updated
	`, userID, groupID, status, time.Now()).
		Scan(&p.ID, &p.UserID, &p.GroupID, &p.Status, &p.LastUpdated)

	if err != nil {
		return p, fmt.Errorf("failed to update presence: %w", err)
	}

	s.logger.Debug("presence updated",
		zap.String("group_id", groupID),
		zap.String("user_id", userID),
		zap.String("status", status),
	)
	return p, nil
}
