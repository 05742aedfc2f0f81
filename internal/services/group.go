package services

import (
	"context"
	"fmt"
	"time"

	"mipo/server/internal/models"
	"mipo/server/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// querier is the subset of pgx shared by the pool and a transaction,
// so membership writes can run standalone or inside a signup
// transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// GroupService manages groups, invite-code joins and membership
// lifecycle.
type GroupService struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	// newInviteCode is swapped out in tests to force a collision.
	newInviteCode func() (string, error)
}

func NewGroupService(pool *pgxpool.Pool, logger *zap.Logger) *GroupService {
	return &GroupService{
		pool:   pool,
		logger: logger,
		newInviteCode: func() (string, error) {
			return utils.GenerateInviteCode(models.InviteCodeLength)
		},
	}
}

// CreateGroup inserts the group and its creator's admin membership in
// one transaction, so a failed membership insert cannot leave an
// adminless group behind. An invite-code collision aborts the
// transaction, so the retry runs a fresh one with a new code.
func (s *GroupService) CreateGroup(ctx context.Context, name, groupType, creatorID string) (models.Group, error) {
	var group models.Group
	var err error

	for attempt := 0; attempt < 2; attempt++ {
		var inviteCode string
		inviteCode, err = s.newInviteCode()
		if err != nil {
			return group, err
		}

		group, err = s.createGroupOnce(ctx, name, groupType, creatorID, inviteCode)
		if isUniqueViolation(err, "groups_invite_code_unique") {
			continue
		}
		break
	}
	if err != nil {
		return models.Group{}, fmt.Errorf("failed to create group: %w", err)
	}

	s.logger.Info("group created",
		zap.String("group_id", group.ID),
		zap.String("type", group.Type),
	)
	return group, nil
}

func (s *GroupService) createGroupOnce(ctx context.Context, name, groupType, creatorID, inviteCode string) (models.Group, error) {
	var group models.Group

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return group, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO groups (name, type, invite_code, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, name, type, invite_code, created_by, created_at, updated_at
	`, name, groupType, inviteCode, creatorID, time.Now()).
		Scan(&group.ID, &group.Name, &group.Type, &group.InviteCode, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return models.Group{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO group_members (user_id, group_id, role, joined_at)
		VALUES ($1, $2, 'admin', $3)
	`, creatorID, group.ID, time.Now())
	if err != nil {
		return models.Group{}, fmt.Errorf("failed to add creator as admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Group{}, fmt.Errorf("failed to commit group creation: %w", err)
	}

	return group, nil
}

// JoinGroup adds the user to the group behind the invite code with
// role member.
func (s *GroupService) JoinGroup(ctx context.Context, userID, inviteCode string) (models.Group, models.GroupMember, error) {
	return s.joinGroupTx(ctx, s.pool, userID, inviteCode)
}

func (s *GroupService) joinGroupTx(ctx context.Context, q querier, userID, inviteCode string) (models.Group, models.GroupMember, error) {
	var group models.Group
	var member models.GroupMember

	err := q.QueryRow(ctx, `
		SELECT id, name, type, invite_code, created_by, created_at, updated_at
		FROM groups WHERE invite_code = $1
	`, inviteCode).Scan(&group.ID, &group.Name, &group.Type, &group.InviteCode, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt)

	if err == pgx.ErrNoRows {
		return group, member, ErrInvalidInviteCode
	}
	if err != nil {
		return group, member, fmt.Errorf("failed to look up group: %w", err)
	}

	// Friendly pre-check; the unique constraint below closes the race
	// between concurrent joins.
	var exists bool
	err = q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)
	`, group.ID, userID).Scan(&exists)
	if err != nil {
		return group, member, fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return group, member, ErrAlreadyMember
	}

	err = q.QueryRow(ctx, `
		INSERT INTO group_members (user_id, group_id, role, joined_at)
		VALUES ($1, $2, 'member', $3)
		RETURNING id, user_id, group_id, role, details, joined_at
	`, userID, group.ID, time.Now()).
		Scan(&member.ID, &member.UserID, &member.GroupID, &member.Role, &member.Details, &member.JoinedAt)

	if isUniqueViolation(err, "group_members_user_group_unique") {
		return group, member, ErrAlreadyMember
	}
	if err != nil {
		return group, member, fmt.Errorf("failed to join group: %w", err)
	}

	return group, member, nil
}

// GetUserGroups returns every group the user belongs to, with their
// role in each.
func (s *GroupService) GetUserGroups(ctx context.Context, userID string) ([]models.GroupWithRole, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.name, g.type, g.invite_code, g.created_by, g.created_at, g.updated_at, gm.role
		FROM group_members gm
		INNER JOIN groups g ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY gm.joined_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := []models.GroupWithRole{}
	for rows.Next() {
		var gr models.GroupWithRole
		if err := rows.Scan(&gr.Group.ID, &gr.Group.Name, &gr.Group.Type, &gr.Group.InviteCode,
			&gr.Group.CreatedBy, &gr.Group.CreatedAt, &gr.Group.UpdatedAt, &gr.Role); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, gr)
	}
	return groups, rows.Err()
}

// GetGroupDetails returns the group, its members with account info,
// and the caller's role. The caller must be a member.
func (s *GroupService) GetGroupDetails(ctx context.Context, groupID, userID string) (models.Group, []models.MemberWithUser, string, error) {
	var group models.Group
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, type, invite_code, created_by, created_at, updated_at
		FROM groups WHERE id = $1
	`, groupID).Scan(&group.ID, &group.Name, &group.Type, &group.InviteCode, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt)

	if err == pgx.ErrNoRows {
		return group, nil, "", ErrGroupNotFound
	}
	if err != nil {
		return group, nil, "", fmt.Errorf("failed to look up group: %w", err)
	}

	role, err := s.memberRole(ctx, groupID, userID)
	if err != nil {
		return group, nil, "", err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT gm.id, gm.user_id, gm.group_id, gm.role, gm.joined_at, gm.details,
			u.display_name, u.phone, u.is_verified
		FROM group_members gm
		INNER JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at ASC
	`, groupID)
	if err != nil {
		return group, nil, "", fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []models.MemberWithUser{}
	for rows.Next() {
		var m models.MemberWithUser
		if err := rows.Scan(&m.ID, &m.UserID, &m.GroupID, &m.Role, &m.JoinedAt, &m.Details,
			&m.DisplayName, &m.Phone, &m.IsVerified); err != nil {
			return group, nil, "", fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return group, nil, "", err
	}

	return group, members, role, nil
}

// GetCurrentGroupMember returns the caller's own membership row and
// account within a group.
func (s *GroupService) GetCurrentGroupMember(ctx context.Context, groupID, userID string) (models.GroupMember, models.User, error) {
	var member models.GroupMember
	var user models.User

	err := s.pool.QueryRow(ctx, `
		SELECT gm.id, gm.user_id, gm.group_id, gm.role, gm.details, gm.joined_at,
			u.id, u.phone, u.display_name, u.is_verified, u.created_at, u.updated_at
		FROM group_members gm
		INNER JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.user_id = $2
	`, groupID, userID).Scan(
		&member.ID, &member.UserID, &member.GroupID, &member.Role, &member.Details, &member.JoinedAt,
		&user.ID, &user.Phone, &user.DisplayName, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return member, user, ErrNotMember
	}
	if err != nil {
		return member, user, fmt.Errorf("failed to look up member: %w", err)
	}
	return member, user, nil
}

// IsAdmin reports whether the user holds the admin role in the group.
// Every privileged mutation goes through this check.
func (s *GroupService) IsAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	role, err := s.memberRole(ctx, groupID, userID)
	if err == ErrNotMember {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == models.RoleAdmin, nil
}

func (s *GroupService) memberRole(ctx context.Context, groupID, userID string) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT role FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(&role)

	if err == pgx.ErrNoRows {
		return "", ErrNotMember
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up role: %w", err)
	}
	return role, nil
}

// UpdateGroup renames the group. Admin only.
func (s *GroupService) UpdateGroup(ctx context.Context, groupID, userID string, name *string) (models.Group, error) {
	var group models.Group

	isAdmin, err := s.IsAdmin(ctx, groupID, userID)
	if err != nil {
		return group, err
	}
	if !isAdmin {
		return group, ErrNotAdmin
	}

	query := `UPDATE groups SET updated_at = $1`
	args := []any{time.Now()}
	if name != nil {
		query += `, name = $2`
		args = append(args, *name)
	}
	query += fmt.Sprintf(` WHERE id = $%d RETURNING id, name, type, invite_code, created_by, created_at, updated_at`, len(args)+1)
	args = append(args, groupID)

	err = s.pool.QueryRow(ctx, query, args...).
		Scan(&group.ID, &group.Name, &group.Type, &group.InviteCode, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt)

	if err == pgx.ErrNoRows {
		return group, ErrGroupNotFound
	}
	if err != nil {
		return group, fmt.Errorf("failed to update group: %w", err)
	}
	return group, nil
}

// UpdateMemberDetails updates the caller's per-group details text
// and/or their global display name.
func (s *GroupService) UpdateMemberDetails(ctx context.Context, groupID, userID string, displayName, details *string) error {
	if details != nil {
		tag, err := s.pool.Exec(ctx, `
			UPDATE group_members SET details = $1 WHERE group_id = $2 AND user_id = $3
		`, *details, groupID, userID)
		if err != nil {
			return fmt.Errorf("failed to update member details: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotMember
		}
	}

	if displayName != nil {
		tag, err := s.pool.Exec(ctx, `
			UPDATE users SET display_name = $1, updated_at = $2 WHERE id = $3
		`, *displayName, time.Now(), userID)
		if err != nil {
			return fmt.Errorf("failed to update display name: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
	}

	return nil
}

// DeleteGroup removes the group; memberships and presence rows go with
// it via ON DELETE CASCADE. Admin only.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID, userID string) (models.Group, error) {
	var group models.Group

	isAdmin, err := s.IsAdmin(ctx, groupID, userID)
	if err != nil {
		return group, err
	}
	if !isAdmin {
		return group, ErrNotAdmin
	}

	err = s.pool.QueryRow(ctx, `
		DELETE FROM groups WHERE id = $1
		RETURNING id, name, type, invite_code, created_by, created_at, updated_at
	`, groupID).Scan(&group.ID, &group.Name, &group.Type, &group.InviteCode, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt)

	if err == pgx.ErrNoRows {
		return group, ErrGroupNotFound
	}
	if err != nil {
		return group, fmt.Errorf("failed to delete group: %w", err)
	}

	s.logger.Info("group deleted", zap.String("group_id", groupID))
	return group, nil
}

// LeaveGroup removes the caller's own membership row, never anyone
// else's.
func (s *GroupService) LeaveGroup(ctx context.Context, groupID, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to leave group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}
