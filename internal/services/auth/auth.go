// Package auth реализует регистрацию, вход и проверку токенов доступа.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
	"github.com/magabrotheeeer/messenger/internal/lib/jwt"
	"github.com/magabrotheeeer/messenger/internal/lib/password"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/models"
	"github.com/magabrotheeeer/messenger/internal/storage"
)

const (
	msgCredentialsRequired = "Email and password required"
	msgUserExists          = "User already exists"
	msgInvalidCredentials  = "Invalid credentials"
	msgUserBlocked         = "User is blocked"
	msgInvalidToken        = "invalid or expired token"
	msgPasswordTooLong     = "Password is too long"
)

// UserRepository хранилище учётных записей.
type UserRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// UserLookup поиск пользователя по идентификатору, обычно через кэш.
type UserLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// Result токен и профиль пользователя после регистрации или входа.
type Result struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

// Service отвечает за регистрацию, вход и проверку JWT.
type Service struct {
	log      *slog.Logger
	users    UserRepository
	lookup   UserLookup
	jwtMaker jwt.Maker
}

// NewService создает новый экземпляр Service.
func NewService(log *slog.Logger, users UserRepository, lookup UserLookup, jwtMaker jwt.Maker) *Service {
	return &Service{
		log:      log,
		users:    users,
		lookup:   lookup,
		jwtMaker: jwtMaker,
	}
}

// Register создает пользователя с ролью user и сразу выдаёт токен.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*Result, error) {
	const op = "services.auth.Register"

	email = models.NormalizeEmail(email)
	if email == "" || rawPassword == "" {
		return nil, apperr.Validation(msgCredentialsRequired)
	}

	_, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperr.Validation(msgUserExists)
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(rawPassword)
	if errors.Is(err, password.ErrTooLong) {
		return nil, apperr.Validation(msgPasswordTooLong)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleUser,
		Status:       models.DefaultStatus,
		Preferences:  models.DefaultPreferences(),
	}
	if err = s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, apperr.Validation(msgUserExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered", slog.String("op", op), sl.UserID(user.ID))
	return s.issue(op, user)
}

// Login проверяет учётные данные и выдаёт токен. Блокировка проверяется
// только после совпадения пароля.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Result, error) {
	const op = "services.auth.Login"

	email = models.NormalizeEmail(email)
	if email == "" || rawPassword == "" {
		return nil, apperr.Validation(msgCredentialsRequired)
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.Unauthenticated(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsDeleted {
		return nil, apperr.Unauthenticated(msgInvalidCredentials)
	}

	if err = password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrEmptyHash) {
			s.log.Warn("user has no password hash", slog.String("op", op), sl.UserID(user.ID))
		}
		if errors.Is(err, password.ErrMismatch) || errors.Is(err, password.ErrEmptyHash) {
			return nil, apperr.Unauthenticated(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsBlocked {
		return nil, apperr.Forbidden(msgUserBlocked)
	}

	return s.issue(op, user)
}

func (s *Service) issue(op string, user *models.User) (*Result, error) {
	token, err := s.jwtMaker.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Result{Token: token, User: user.Profile()}, nil
}

// Authenticate проверяет токен и возвращает актуальную запись пользователя.
// Заблокированные и удалённые учётные записи отклоняются до истечения токена.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "services.auth.Authenticate"

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Unauthenticated(msgInvalidToken)
	}
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindAuthentication, Message: msgInvalidToken, Err: err}
	}

	user, err := s.lookup.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.Unauthenticated(msgInvalidToken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsDeleted {
		return nil, apperr.Unauthenticated(msgInvalidToken)
	}
	if user.IsBlocked {
		return nil, apperr.Forbidden(msgUserBlocked)
	}
	return user, nil
}
