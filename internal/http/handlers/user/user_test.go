package user

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/messenger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
	"github.com/magabrotheeeer/messenger/internal/models"
	userservice "github.com/magabrotheeeer/messenger/internal/services/user"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListAll(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).([]*models.User)
	return u, args.Error(1)
}

func (m *MockService) ListDirectory(ctx context.Context) ([]models.UserEmail, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).([]models.UserEmail)
	return u, args.Error(1)
}

func (m *MockService) Get(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id string, in userservice.UpdateInput) (*models.User, error) {
	args := m.Called(ctx, id, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	args := m.Called(ctx, id, role)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) SetBlocked(ctx context.Context, id string, blocked *bool) (*models.User, error) {
	args := m.Called(ctx, id, blocked)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) Restore(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockService) UpdateSettings(ctx context.Context, selfID string, in userservice.PreferencesInput) (*models.User, error) {
	args := m.Called(ctx, selfID, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) UpdateProfile(ctx context.Context, selfID string, displayName *string) (*models.User, error) {
	args := m.Called(ctx, selfID, displayName)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) ChangePassword(ctx context.Context, selfID, current, next string) error {
	return m.Called(ctx, selfID, current, next).Error(0)
}

var (
	admin = &models.User{ID: "a1", Email: "admin@example.com", Role: models.RoleAdmin}
	bob   = &models.User{ID: "u2", Email: "bob@example.com", Role: models.RoleUser}
)

func newRequest(method, target, body, id string, user *models.User) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(middlewarectx.WithUser(req.Context(), user))
	}
	rctx := chi.NewRouteContext()
	if id != "" {
		rctx.URLParams.Add("id", id)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newHandler(svc Service) *Handler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
}

func TestList_ByRole(t *testing.T) {
	svc := new(MockService)
	svc.On("ListAll", mock.Anything).Return([]*models.User{
		{ID: "u9", Email: "deleted+u9@user.com", IsDeleted: true, Role: models.RoleUser},
	}, nil)
	svc.On("ListDirectory", mock.Anything).Return([]models.UserEmail{{ID: "u2", Email: "bob@example.com"}}, nil)
	h := newHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/users", "", "", admin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isDeleted":true`)

	rec = httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/users", "", "", bob))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"u2","email":"bob@example.com"}]`, rec.Body.String())
}

func TestGet_NotFound(t *testing.T) {
	svc := new(MockService)
	svc.On("Get", mock.Anything, "u404").Return(nil, apperr.NotFound("User not found"))
	rec := httptest.NewRecorder()

	newHandler(svc).Get(rec, newRequest(http.MethodGet, "/api/users/u404", "", "u404", admin))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")
}

func TestGet_NeverExposesPasswordHash(t *testing.T) {
	svc := new(MockService)
	svc.On("Get", mock.Anything, "u2").Return(&models.User{ID: "u2", PasswordHash: "$2a$10$secret"}, nil)
	rec := httptest.NewRecorder()

	newHandler(svc).Get(rec, newRequest(http.MethodGet, "/api/users/u2", "", "u2", admin))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestSetBlocked(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "boolean",
			body: `{"isBlocked":true}`,
			setup: func(m *MockService) {
				m.On("SetBlocked", mock.Anything, "u2", mock.MatchedBy(func(b *bool) bool { return b != nil && *b })).
					Return(&models.User{ID: "u2", IsBlocked: true}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"isBlocked":true`,
		},
		{
			name: "string instead of boolean",
			body: `{"isBlocked":"yes"}`,
			setup: func(m *MockService) {
				m.On("SetBlocked", mock.Anything, "u2", (*bool)(nil)).
					Return(nil, apperr.Validation("isBlocked must be boolean"))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "isBlocked must be boolean",
		},
		{
			name: "missing",
			body: `{}`,
			setup: func(m *MockService) {
				m.On("SetBlocked", mock.Anything, "u2", (*bool)(nil)).
					Return(nil, apperr.Validation("isBlocked must be boolean"))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "isBlocked must be boolean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)
			rec := httptest.NewRecorder()

			newHandler(svc).SetBlocked(rec, newRequest(http.MethodPut, "/api/users/u2/block", tt.body, "u2", admin))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestSetRole_Invalid(t *testing.T) {
	svc := new(MockService)
	svc.On("SetRole", mock.Anything, "u2", "root").Return(nil, apperr.Validation("Invalid role"))
	rec := httptest.NewRecorder()

	newHandler(svc).SetRole(rec, newRequest(http.MethodPut, "/api/users/u2/role", `{"role":"root"}`, "u2", admin))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid role")
}

func TestDeleteAndRestore(t *testing.T) {
	svc := new(MockService)
	svc.On("Delete", mock.Anything, "u2").Return(nil)
	svc.On("Restore", mock.Anything, "u2").Return(&models.User{ID: "u2", Email: "deleted+u2@user.com"}, nil)
	h := newHandler(svc)

	rec := httptest.NewRecorder()
	h.Delete(rec, newRequest(http.MethodDelete, "/api/users/u2", "", "u2", admin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User soft deleted"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Restore(rec, newRequest(http.MethodPut, "/api/users/u2/restore", "", "u2", admin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isDeleted":false`)
}

func TestUpdate_PassesPartialFields(t *testing.T) {
	svc := new(MockService)
	svc.On("Update", mock.Anything, "u2", mock.MatchedBy(func(in userservice.UpdateInput) bool {
		return in.Role != nil && *in.Role == "admin" && in.DisplayName == nil &&
			in.Preferences != nil && in.Preferences.Theme != nil && *in.Preferences.Theme == "dark"
	})).Return(&models.User{ID: "u2", Role: models.RoleAdmin}, nil)
	rec := httptest.NewRecorder()

	newHandler(svc).Update(rec, newRequest(http.MethodPut, "/api/users/u2",
		`{"role":"admin","preferences":{"theme":"dark"}}`, "u2", admin))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestSelfService(t *testing.T) {
	t.Run("settings", func(t *testing.T) {
		svc := new(MockService)
		svc.On("UpdateSettings", mock.Anything, "u2", mock.MatchedBy(func(in userservice.PreferencesInput) bool {
			return in.Theme == nil && in.Notifications != nil && !*in.Notifications
		})).Return(&models.User{ID: "u2"}, nil)
		rec := httptest.NewRecorder()

		newHandler(svc).UpdateSettings(rec, newRequest(http.MethodPut, "/api/users/me/settings", `{"notifications":false}`, "", bob))

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("profile", func(t *testing.T) {
		svc := new(MockService)
		svc.On("UpdateProfile", mock.Anything, "u2", mock.MatchedBy(func(s *string) bool { return s != nil && *s == " Bob " })).
			Return(&models.User{ID: "u2", DisplayName: "Bob"}, nil)
		rec := httptest.NewRecorder()

		newHandler(svc).UpdateProfile(rec, newRequest(http.MethodPut, "/api/users/me/profile", `{"displayName":" Bob "}`, "", bob))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"displayName":"Bob"`)
	})

	t.Run("password", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ChangePassword", mock.Anything, "u2", "old", "new").Return(nil)
		rec := httptest.NewRecorder()

		newHandler(svc).ChangePassword(rec, newRequest(http.MethodPut, "/api/users/me/password",
			`{"currentPassword":"old","newPassword":"new"}`, "", bob))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Password updated"}`, rec.Body.String())
	})

	t.Run("wrong current password", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ChangePassword", mock.Anything, "u2", "bad", "new").
			Return(apperr.Unauthenticated("Current password is incorrect"))
		rec := httptest.NewRecorder()

		newHandler(svc).ChangePassword(rec, newRequest(http.MethodPut, "/api/users/me/password",
			`{"currentPassword":"bad","newPassword":"new"}`, "", bob))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
