package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
	"github.com/magabrotheeeer/messenger/internal/models"
	"github.com/magabrotheeeer/messenger/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	args := m.Called(ctx, email, password)
	resp, _ := args.Get(0).(*auth.Result)
	return resp, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	result := &auth.Result{
		Token: "tok",
		User: models.Profile{
			ID:          "u1",
			Email:       "bob@example.com",
			Role:        models.RoleUser,
			Preferences: models.DefaultPreferences(),
		},
	}

	tests := []struct {
		name           string
		requestBody    any
		mockResp       *auth.Result
		mockErr        error
		wantStatusCode int
		wantBody       []string
	}{
		{
			name:           "valid login",
			requestBody:    Request{Email: "bob@example.com", Password: "secret"},
			mockResp:       result,
			wantStatusCode: http.StatusOK,
			wantBody: []string{
				`"token":"tok"`,
				`"user":{"id":"u1","email":"bob@example.com","role":"user","preferences":{"theme":"light","notifications":true},"displayName":""}`,
			},
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantBody:       []string{`{"status":"Error","error":"failed to decode request"}`},
		},
		{
			name:           "password too long",
			requestBody:    Request{Email: "bob@example.com", Password: strings.Repeat("x", 73)},
			wantStatusCode: http.StatusBadRequest,
			wantBody:       []string{"field Password is too long"},
		},
		{
			name:           "missing fields",
			requestBody:    Request{Email: "bob@example.com"},
			mockErr:        apperr.Validation("Email and password required"),
			wantStatusCode: http.StatusBadRequest,
			wantBody:       []string{"Email and password required"},
		},
		{
			name:           "wrong credentials",
			requestBody:    Request{Email: "bob@example.com", Password: "bad"},
			mockErr:        apperr.Unauthenticated("Invalid credentials"),
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       []string{"Invalid credentials"},
		},
		{
			name:           "blocked",
			requestBody:    Request{Email: "bob@example.com", Password: "secret"},
			mockErr:        apperr.Forbidden("User is blocked"),
			wantStatusCode: http.StatusForbidden,
			wantBody:       []string{"User is blocked"},
		},
		{
			name:           "internal error",
			requestBody:    Request{Email: "bob@example.com", Password: "secret"},
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       []string{"internal error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			if tt.mockResp != nil || tt.mockErr != nil {
				req := tt.requestBody.(Request)
				authMock.On("Login", mock.Anything, req.Email, req.Password).
					Return(tt.mockResp, tt.mockErr).Once()
			}

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(v)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(bodyBytes))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))
			rec := httptest.NewRecorder()

			New(newNoopLogger(), authMock).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
			assert.NotContains(t, rec.Body.String(), "password")
			authMock.AssertExpectations(t)
		})
	}
}
