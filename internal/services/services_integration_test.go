package services

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"

	"mipo/server/internal/models"
	"mipo/server/internal/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// These tests need a migrated Postgres database; they are skipped
// unless TEST_DATABASE_URL is set.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool, displayName string) string {
	t.Helper()

	phone := fmt.Sprintf("+9725%08d", rand.Intn(100000000))
	var id string
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (phone, display_name, is_verified)
		VALUES ($1, $2, TRUE)
		RETURNING id
	`, phone, displayName).Scan(&id)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func TestGroupLifecycleIntegration(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	logger := zap.NewNop()

	groups := NewGroupService(pool, logger)
	presence := NewPresenceService(pool, groups, logger)

	admin := createTestUser(t, pool, "Dana")
	member := createTestUser(t, pool, "Noa")

	// Admin creates the group and is its first member.
	group, err := groups.CreateGroup(ctx, "Oak St Building", models.GroupTypeBuilding, admin)
	require.NoError(t, err)
	assert.Len(t, group.InviteCode, models.InviteCodeLength)

	isAdmin, err := groups.IsAdmin(ctx, group.ID, admin)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// Second user joins by invite code.
	joined, m, err := groups.JoinGroup(ctx, member, group.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, group.ID, joined.ID)
	assert.Equal(t, models.RoleMember, m.Role)

	// A second join attempt conflicts.
	_, _, err = groups.JoinGroup(ctx, member, group.InviteCode)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	// Details list exactly both members.
	_, members, role, err := groups.GetGroupDetails(ctx, group.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
	assert.Len(t, members, 2)

	// Presence upsert leaves one row per user, last write wins.
	_, err = presence.UpdatePresence(ctx, group.ID, member, models.PresencePresent)
	require.NoError(t, err)
	p, err := presence.UpdatePresence(ctx, group.ID, member, models.PresenceAbsent)
	require.NoError(t, err)
	assert.Equal(t, models.PresenceAbsent, p.Status)

	rows, err := presence.GetGroupPresence(ctx, group.ID, admin)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.PresenceAbsent, rows[0].Status)

	// A member cannot mutate or delete the group.
	name := "Renamed"
	_, err = groups.UpdateGroup(ctx, group.ID, member, &name)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = groups.DeleteGroup(ctx, group.ID, member)
	assert.ErrorIs(t, err, ErrNotAdmin)

	// Delete cascades to memberships and presence.
	_, err = groups.DeleteGroup(ctx, group.ID, admin)
	require.NoError(t, err)

	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = $1`, group.ID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM presence_status WHERE group_id = $1`, group.ID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLeaveGroupIntegration(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	groups := NewGroupService(pool, zap.NewNop())

	admin := createTestUser(t, pool, "Dana")
	member := createTestUser(t, pool, "Noa")

	group, err := groups.CreateGroup(ctx, "Family", models.GroupTypeFamily, admin)
	require.NoError(t, err)
	defer groups.DeleteGroup(ctx, group.ID, admin)

	_, _, err = groups.JoinGroup(ctx, member, group.InviteCode)
	require.NoError(t, err)

	require.NoError(t, groups.LeaveGroup(ctx, group.ID, member))

	// Leaving twice finds nothing to remove.
	assert.ErrorIs(t, groups.LeaveGroup(ctx, group.ID, member), ErrMemberNotFound)

	_, members, _, err := groups.GetGroupDetails(ctx, group.ID, admin)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestCreateGroupInviteCodeCollisionIntegration(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	groups := NewGroupService(pool, zap.NewNop())
	admin := createTestUser(t, pool, "Dana")

	first, err := groups.CreateGroup(ctx, "First", models.GroupTypeFamily, admin)
	require.NoError(t, err)
	defer groups.DeleteGroup(ctx, first.ID, admin)

	// Hand out the taken code once; the unique constraint rejects it
	// and the retry gets a fresh one.
	calls := 0
	groups.newInviteCode = func() (string, error) {
		calls++
		if calls == 1 {
			return first.InviteCode, nil
		}
		return utils.GenerateInviteCode(models.InviteCodeLength)
	}

	second, err := groups.CreateGroup(ctx, "Second", models.GroupTypeFamily, admin)
	require.NoError(t, err)
	defer groups.DeleteGroup(ctx, second.ID, admin)

	assert.Equal(t, 2, calls)
	assert.NotEqual(t, first.InviteCode, second.InviteCode)

	// The first transaction rolled back cleanly; both groups have
	// exactly one admin membership.
	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = $1`, second.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestJoinGroupBadCodeIntegration(t *testing.T) {
	pool := testPool(t)

	groups := NewGroupService(pool, zap.NewNop())
	user := createTestUser(t, pool, "Dana")

	_, _, err := groups.JoinGroup(context.Background(), user, "NOSUCHCODE")
	assert.ErrorIs(t, err, ErrInvalidInviteCode)
}
