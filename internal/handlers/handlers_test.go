package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mipo/server/internal/handlers"
	"mipo/server/internal/models"
	"mipo/server/internal/routes"
	"mipo/server/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// Fake services with overridable behavior per test.

type fakeAuthService struct {
	sendFn       func(ctx context.Context, rawPhone string) (time.Time, error)
	createFn     func(ctx context.Context, rawPhone, code, displayName, inviteCode string) (models.User, error)
	loginFn      func(ctx context.Context, rawPhone, code string) (models.User, error)
	getUserFn    func(ctx context.Context, id string) (models.User, error)
	updateNameFn func(ctx context.Context, id, displayName string) (models.User, error)
}

func (f *fakeAuthService) SendVerificationCode(ctx context.Context, rawPhone string) (time.Time, error) {
	return f.sendFn(ctx, rawPhone)
}

func (f *fakeAuthService) Create(ctx context.Context, rawPhone, code, displayName, inviteCode string) (models.User, error) {
	return f.createFn(ctx, rawPhone, code, displayName, inviteCode)
}

func (f *fakeAuthService) Login(ctx context.Context, rawPhone, code string) (models.User, error) {
	return f.loginFn(ctx, rawPhone, code)
}

func (f *fakeAuthService) GetUser(ctx context.Context, id string) (models.User, error) {
	return f.getUserFn(ctx, id)
}

func (f *fakeAuthService) UpdateDisplayName(ctx context.Context, id, displayName string) (models.User, error) {
	return f.updateNameFn(ctx, id, displayName)
}

type fakeGroupService struct {
	createFn        func(ctx context.Context, name, groupType, creatorID string) (models.Group, error)
	joinFn          func(ctx context.Context, userID, inviteCode string) (models.Group, models.GroupMember, error)
	userGroupsFn    func(ctx context.Context, userID string) ([]models.GroupWithRole, error)
	detailsFn       func(ctx context.Context, groupID, userID string) (models.Group, []models.MemberWithUser, string, error)
	currentMemberFn func(ctx context.Context, groupID, userID string) (models.GroupMember, models.User, error)
	updateFn        func(ctx context.Context, groupID, userID string, name *string) (models.Group, error)
	updateMemberFn  func(ctx context.Context, groupID, userID string, displayName, details *string) error
	deleteFn        func(ctx context.Context, groupID, userID string) (models.Group, error)
	leaveFn         func(ctx context.Context, groupID, userID string) error
}

func (f *fakeGroupService) CreateGroup(ctx context.Context, name, groupType, creatorID string) (models.Group, error) {
	return f.createFn(ctx, name, groupType, creatorID)
}

func (f *fakeGroupService) JoinGroup(ctx context.Context, userID, inviteCode string) (models.Group, models.GroupMember, error) {
	return f.joinFn(ctx, userID, inviteCode)
}

func (f *fakeGroupService) GetUserGroups(ctx context.Context, userID string) ([]models.GroupWithRole, error) {
	return f.userGroupsFn(ctx, userID)
}

func (f *fakeGroupService) GetGroupDetails(ctx context.Context, groupID, userID string) (models.Group, []models.MemberWithUser, string, error) {
	return f.detailsFn(ctx, groupID, userID)
}

func (f *fakeGroupService) GetCurrentGroupMember(ctx context.Context, groupID, userID string) (models.GroupMember, models.User, error) {
	return f.currentMemberFn(ctx, groupID, userID)
}

func (f *fakeGroupService) UpdateGroup(ctx context.Context, groupID, userID string, name *string) (models.Group, error) {
	return f.updateFn(ctx, groupID, userID, name)
}

func (f *fakeGroupService) UpdateMemberDetails(ctx context.Context, groupID, userID string, displayName, details *string) error {
	return f.updateMemberFn(ctx, groupID, userID, displayName, details)
}

func (f *fakeGroupService) DeleteGroup(ctx context.Context, groupID, userID string) (models.Group, error) {
	return f.deleteFn(ctx, groupID, userID)
}

func (f *fakeGroupService) LeaveGroup(ctx context.Context, groupID, userID string) error {
	return f.leaveFn(ctx, groupID, userID)
}

type fakePresenceService struct {
	getFn    func(ctx context.Context, groupID, userID string) ([]models.Presence, error)
	updateFn func(ctx context.Context, groupID, userID, status string) (models.Presence, error)
}

func (f *fakePresenceService) GetGroupPresence(ctx context.Context, groupID, userID string) ([]models.Presence, error) {
	return f.getFn(ctx, groupID, userID)
}

func (f *fakePresenceService) UpdatePresence(ctx context.Context, groupID, userID, status string) (models.Presence, error) {
	return f.updateFn(ctx, groupID, userID, status)
}

type testEnv struct {
	app *fiber.App
	jwt *utils.JWTManager
}

func newTestEnv(t *testing.T, auth *fakeAuthService, groups *fakeGroupService, presence *fakePresenceService) *testEnv {
	t.Helper()

	jwtManager := utils.NewJWTManager("test-secret", time.Hour)
	app := fiber.New()

	routes.SetupRoutes(app, routes.Handlers{
		Auth:     handlers.NewAuthHandler(auth, jwtManager, false),
		Group:    handlers.NewGroupHandler(groups),
		Presence: handlers.NewPresenceHandler(presence),
		JWT:      jwtManager,
	})

	return &testEnv{app: app, jwt: jwtManager}
}

// request performs an API call, optionally authenticated as userID.
func (e *testEnv) request(t *testing.T, method, path string, body any, userID string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if userID != "" {
		token, err := e.jwt.GenerateToken(userID)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
