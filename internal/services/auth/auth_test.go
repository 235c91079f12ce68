package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
	customjwt "github.com/magabrotheeeer/messenger/internal/lib/jwt"
	"github.com/magabrotheeeer/messenger/internal/lib/password"
	"github.com/magabrotheeeer/messenger/internal/models"
	"github.com/magabrotheeeer/messenger/internal/services/auth"
	"github.com/magabrotheeeer/messenger/internal/storage"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Мок для UserLookup
type LookupMock struct {
	mock.Mock
}

func (m *LookupMock) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newService(repo *UserRepoMock, lookup *LookupMock) *auth.Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return auth.NewService(log, repo, lookup, customjwt.NewJWTMaker("test-secret", time.Hour))
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := password.GetHash(pw)
	require.NoError(t, err)
	return h
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		password   string
		setupMocks func(r *UserRepoMock)
		wantKind   apperr.Kind
		wantMsg    string
		wantErr    bool
	}{
		{
			name:     "successful registration normalizes email",
			email:    "  New@Example.COM ",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("FindUserByEmail", mock.Anything, "new@example.com").Return(nil, storage.ErrUserNotFound).Once()
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Email == "new@example.com" && u.PasswordHash != "password123" &&
						u.Role == models.RoleUser && u.Preferences.Theme == models.ThemeLight
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.User).ID = "u-1"
				}).Return(nil).Once()
			},
		},
		{
			name:       "missing password",
			email:      "a@example.com",
			password:   "",
			setupMocks: func(_ *UserRepoMock) {},
			wantErr:    true,
			wantKind:   apperr.KindValidation,
			wantMsg:    "Email and password required",
		},
		{
			name:       "blank email",
			email:      "   ",
			password:   "x",
			setupMocks: func(_ *UserRepoMock) {},
			wantErr:    true,
			wantKind:   apperr.KindValidation,
			wantMsg:    "Email and password required",
		},
		{
			name:     "duplicate email",
			email:    "taken@example.com",
			password: "x",
			setupMocks: func(r *UserRepoMock) {
				r.On("FindUserByEmail", mock.Anything, "taken@example.com").Return(&models.User{ID: "old"}, nil).Once()
			},
			wantErr:  true,
			wantKind: apperr.KindValidation,
			wantMsg:  "User already exists",
		},
		{
			name:     "duplicate detected by unique index",
			email:    "race@example.com",
			password: "x",
			setupMocks: func(r *UserRepoMock) {
				r.On("FindUserByEmail", mock.Anything, "race@example.com").Return(nil, storage.ErrUserNotFound).Once()
				r.On("CreateUser", mock.Anything, mock.Anything).Return(storage.ErrUserExists).Once()
			},
			wantErr:  true,
			wantKind: apperr.KindValidation,
			wantMsg:  "User already exists",
		},
		{
			name:     "multibyte password over bcrypt limit",
			email:    "long@example.com",
			password: strings.Repeat("п", 40),
			setupMocks: func(r *UserRepoMock) {
				r.On("FindUserByEmail", mock.Anything, "long@example.com").Return(nil, storage.ErrUserNotFound).Once()
			},
			wantErr:  true,
			wantKind: apperr.KindValidation,
			wantMsg:  "Password is too long",
		},
		{
			name:     "storage failure",
			email:    "a@example.com",
			password: "x",
			setupMocks: func(r *UserRepoMock) {
				r.On("FindUserByEmail", mock.Anything, "a@example.com").Return(nil, errors.New("db down")).Once()
			},
			wantErr:  true,
			wantKind: apperr.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			tt.setupMocks(repo)
			svc := newService(repo, new(LookupMock))

			res, err := svc.Register(context.Background(), tt.email, tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, apperr.MessageOf(err, ""))
				}
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, res.Token)
				assert.Equal(t, "u-1", res.User.ID)
				assert.Equal(t, "new@example.com", res.User.Email)
				assert.Equal(t, models.RoleUser, res.User.Role)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash := mustHash(t, "secret")

	tests := []struct {
		name     string
		user     *models.User
		findErr  error
		password string
		wantKind apperr.Kind
		wantMsg  string
		wantErr  bool
	}{
		{
			name:     "success",
			user:     &models.User{ID: "u1", Email: "a@example.com", PasswordHash: hash, Role: models.RoleAdmin},
			password: "secret",
		},
		{
			name:     "unknown user",
			findErr:  storage.ErrUserNotFound,
			password: "secret",
			wantErr:  true, wantKind: apperr.KindAuthentication, wantMsg: "Invalid credentials",
		},
		{
			name:     "soft deleted",
			user:     &models.User{ID: "u1", PasswordHash: hash, IsDeleted: true},
			password: "secret",
			wantErr:  true, wantKind: apperr.KindAuthentication, wantMsg: "Invalid credentials",
		},
		{
			name:     "wrong password",
			user:     &models.User{ID: "u1", PasswordHash: hash},
			password: "nope",
			wantErr:  true, wantKind: apperr.KindAuthentication, wantMsg: "Invalid credentials",
		},
		{
			name:     "blocked with wrong password stays unauthenticated",
			user:     &models.User{ID: "u1", PasswordHash: hash, IsBlocked: true},
			password: "nope",
			wantErr:  true, wantKind: apperr.KindAuthentication, wantMsg: "Invalid credentials",
		},
		{
			name:     "blocked with correct password",
			user:     &models.User{ID: "u1", PasswordHash: hash, IsBlocked: true},
			password: "secret",
			wantErr:  true, wantKind: apperr.KindAuthorization, wantMsg: "User is blocked",
		},
		{
			name:     "legacy user without hash",
			user:     &models.User{ID: "u1"},
			password: "secret",
			wantErr:  true, wantKind: apperr.KindAuthentication, wantMsg: "Invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			if tt.user != nil {
				repo.On("FindUserByEmail", mock.Anything, "a@example.com").Return(tt.user, nil).Once()
			} else {
				repo.On("FindUserByEmail", mock.Anything, "a@example.com").Return(nil, tt.findErr).Once()
			}
			svc := newService(repo, new(LookupMock))

			res, err := svc.Login(context.Background(), "A@example.com", tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				assert.Equal(t, tt.wantMsg, apperr.MessageOf(err, ""))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, res.Token)
			assert.Equal(t, models.RoleAdmin, res.User.Role)
		})
	}
}

func TestService_Login_MissingFields(t *testing.T) {
	svc := newService(new(UserRepoMock), new(LookupMock))
	_, err := svc.Login(context.Background(), "", "x")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_Authenticate(t *testing.T) {
	maker := customjwt.NewJWTMaker("test-secret", time.Hour)
	token, err := maker.GenerateToken("u1", "user")
	require.NoError(t, err)

	foreign, err := customjwt.NewJWTMaker("other-secret", time.Hour).GenerateToken("u1", "user")
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		user     *models.User
		findErr  error
		wantKind apperr.Kind
		wantErr  bool
	}{
		{name: "valid", token: token, user: &models.User{ID: "u1", Role: models.RoleUser}},
		{name: "empty", token: "", wantErr: true, wantKind: apperr.KindAuthentication},
		{name: "foreign secret", token: foreign, wantErr: true, wantKind: apperr.KindAuthentication},
		{name: "garbage", token: "abc.def.ghi", wantErr: true, wantKind: apperr.KindAuthentication},
		{name: "user gone", token: token, findErr: storage.ErrUserNotFound, wantErr: true, wantKind: apperr.KindAuthentication},
		{name: "deleted", token: token, user: &models.User{ID: "u1", IsDeleted: true}, wantErr: true, wantKind: apperr.KindAuthentication},
		{name: "blocked", token: token, user: &models.User{ID: "u1", IsBlocked: true}, wantErr: true, wantKind: apperr.KindAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := new(LookupMock)
			if tt.user != nil {
				lookup.On("FindUserByID", mock.Anything, "u1").Return(tt.user, nil)
			} else if tt.findErr != nil {
				lookup.On("FindUserByID", mock.Anything, "u1").Return(nil, tt.findErr)
			}
			svc := newService(new(UserRepoMock), lookup)

			u, err := svc.Authenticate(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", u.ID)
		})
	}
}
