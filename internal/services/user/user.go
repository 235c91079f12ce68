// Package user реализует администрирование учётных записей и
// самообслуживание: настройки, профиль и смену пароля.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
	"github.com/magabrotheeeer/messenger/internal/lib/password"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/models"
	"github.com/magabrotheeeer/messenger/internal/storage"
)

const (
	msgUserNotFound             = "User not found"
	msgInvalidRole              = "Invalid role"
	msgBlockedMustBeBool        = "isBlocked must be boolean"
	msgPasswordsRequired        = "Current and new password required"
	msgCurrentPasswordIncorrect = "Current password is incorrect"
	msgPasswordTooLong          = "Password is too long"
)

// Repository хранилище пользователей.
type Repository interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, includeDeleted bool) ([]*models.User, error)
}

// Invalidator сбрасывает закэшированную запись пользователя.
type Invalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// PreferencesInput изменения настроек. nil означает, что поле не меняется.
type PreferencesInput struct {
	Theme         *string `json:"theme"`
	Notifications *bool   `json:"notifications"`
}

// UpdateInput изменения учётной записи администратором.
type UpdateInput struct {
	DisplayName *string           `json:"displayName"`
	Role        *string           `json:"role"`
	IsBlocked   *bool             `json:"isBlocked"`
	Status      *string           `json:"status"`
	Preferences *PreferencesInput `json:"preferences"`
}

// Service бизнес-логика пользователей.
type Service struct {
	log   *slog.Logger
	repo  Repository
	cache Invalidator
}

// New создаёт сервис. cache может быть nil.
func New(log *slog.Logger, repo Repository, cache Invalidator) *Service {
	return &Service{log: log, repo: repo, cache: cache}
}

// ListAll все пользователи, включая удалённых.
func (s *Service) ListAll(ctx context.Context) ([]*models.User, error) {
	const op = "services.user.ListAll"

	users, err := s.repo.ListUsers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// ListDirectory активные пользователи, только id и email.
func (s *Service) ListDirectory(ctx context.Context) ([]models.UserEmail, error) {
	const op = "services.user.ListDirectory"

	users, err := s.repo.ListUsers(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := make([]models.UserEmail, 0, len(users))
	for _, u := range users {
		result = append(result, models.UserEmail{ID: u.ID, Email: u.Email})
	}
	return result, nil
}

// Get активный пользователь по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.active(ctx, "services.user.Get", id)
}

// Update частично меняет учётную запись.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.User, error) {
	const op = "services.user.Update"

	var role models.Role
	if in.Role != nil {
		role = models.Role(*in.Role)
		if !role.Valid() {
			return nil, apperr.Validation(msgInvalidRole)
		}
	}

	u, err := s.active(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Role != nil {
		u.Role = role
	}
	if in.IsBlocked != nil {
		u.IsBlocked = *in.IsBlocked
	}
	if in.Status != nil {
		u.Status = strings.TrimSpace(*in.Status)
	}
	if in.Preferences != nil {
		applyPreferences(u, *in.Preferences)
	}
	return s.save(ctx, op, u)
}

// SetRole меняет роль.
func (s *Service) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	const op = "services.user.SetRole"

	r := models.Role(role)
	if !r.Valid() {
		return nil, apperr.Validation(msgInvalidRole)
	}
	u, err := s.active(ctx, op, id)
	if err != nil {
		return nil, err
	}
	u.Role = r
	return s.save(ctx, op, u)
}

// SetBlocked блокирует или разблокирует пользователя.
func (s *Service) SetBlocked(ctx context.Context, id string, blocked *bool) (*models.User, error) {
	const op = "services.user.SetBlocked"

	if blocked == nil {
		return nil, apperr.Validation(msgBlockedMustBeBool)
	}
	u, err := s.active(ctx, op, id)
	if err != nil {
		return nil, err
	}
	u.IsBlocked = *blocked
	return s.save(ctx, op, u)
}

// Restore снимает признак удаления. Email остаётся заменённым.
func (s *Service) Restore(ctx context.Context, id string) (*models.User, error) {
	const op = "services.user.Restore"

	u, err := s.find(ctx, op, id)
	if err != nil {
		return nil, err
	}
	u.IsDeleted = false
	return s.save(ctx, op, u)
}

// Delete мягко удаляет пользователя и освобождает его email.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "services.user.Delete"

	u, err := s.active(ctx, op, id)
	if err != nil {
		return err
	}
	u.IsDeleted = true
	u.Email = models.DeletedEmail(u.ID)
	if _, err = s.save(ctx, op, u); err != nil {
		return err
	}
	s.log.Info("user soft deleted", slog.String("op", op), sl.UserID(u.ID))
	return nil
}

// UpdateSettings меняет настройки автора запроса. Недопустимая тема игнорируется.
func (s *Service) UpdateSettings(ctx context.Context, selfID string, in PreferencesInput) (*models.User, error) {
	const op = "services.user.UpdateSettings"

	u, err := s.active(ctx, op, selfID)
	if err != nil {
		return nil, err
	}
	applyPreferences(u, in)
	return s.save(ctx, op, u)
}

// UpdateProfile меняет отображаемое имя автора запроса.
func (s *Service) UpdateProfile(ctx context.Context, selfID string, displayName *string) (*models.User, error) {
	const op = "services.user.UpdateProfile"

	u, err := s.active(ctx, op, selfID)
	if err != nil {
		return nil, err
	}
	if displayName != nil {
		u.DisplayName = strings.TrimSpace(*displayName)
	}
	return s.save(ctx, op, u)
}

// ChangePassword меняет пароль после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, selfID, current, next string) error {
	const op = "services.user.ChangePassword"

	if current == "" || next == "" {
		return apperr.Validation(msgPasswordsRequired)
	}
	u, err := s.active(ctx, op, selfID)
	if err != nil {
		return err
	}
	if err = password.CompareHash(u.PasswordHash, current); err != nil {
		if errors.Is(err, password.ErrMismatch) || errors.Is(err, password.ErrEmptyHash) {
			return apperr.Unauthenticated(msgCurrentPasswordIncorrect)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	hashed, err := password.GetHash(next)
	if errors.Is(err, password.ErrTooLong) {
		return apperr.Validation(msgPasswordTooLong)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	u.PasswordHash = hashed
	_, err = s.save(ctx, op, u)
	return err
}

func applyPreferences(u *models.User, in PreferencesInput) {
	if in.Theme != nil {
		if theme := models.Theme(*in.Theme); theme.Valid() {
			u.Preferences.Theme = theme
		}
	}
	if in.Notifications != nil {
		u.Preferences.Notifications = *in.Notifications
	}
}

func (s *Service) find(ctx context.Context, op, id string) (*models.User, error) {
	u, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *Service) active(ctx context.Context, op, id string) (*models.User, error) {
	u, err := s.find(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if u.IsDeleted {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	return u, nil
}

func (s *Service) save(ctx context.Context, op string, u *models.User) (*models.User, error) {
	if err := s.repo.SaveUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, u.ID); err != nil {
			s.log.Warn("failed to invalidate cached user", slog.String("op", op), sl.UserID(u.ID), sl.Err(err))
		}
	}
	return u, nil
}
