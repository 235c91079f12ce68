package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/messenger/internal/models"
)

const userColumns = `id, email, password_hash, role, display_name, status,
	is_blocked, is_deleted, theme, notifications, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.DisplayName, &u.Status,
		&u.IsBlocked, &u.IsDeleted, &u.Preferences.Theme, &u.Preferences.Notifications,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя. Пустые ID и даты заполняются.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	const op = "storage.CreateUser"

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Status == "" {
		user.Status = models.DefaultStatus
	}
	if user.Preferences.Theme == "" {
		user.Preferences = models.DefaultPreferences()
	}

	query := `INSERT INTO users (id, email, password_hash, role, display_name, status,
			      is_blocked, is_deleted, theme, notifications)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING created_at, updated_at`
	err := s.DB.QueryRowContext(ctx, query,
		user.ID, models.NormalizeEmail(user.Email), user.PasswordHash, user.Role, user.DisplayName,
		user.Status, user.IsBlocked, user.IsDeleted, user.Preferences.Theme,
		user.Preferences.Notifications).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	user.Email = models.NormalizeEmail(user.Email)
	return nil
}

// FindUserByEmail ищет пользователя по email без учёта регистра,
// включая мягко удалённых.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.FindUserByEmail"

	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindUserByID ищет пользователя по идентификатору, включая мягко удалённых.
func (s *Storage) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.FindUserByID"

	if !isUUID(id) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SaveUser перезаписывает изменяемые поля пользователя.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.SaveUser"

	if !isUUID(user.ID) {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	query := `UPDATE users
			  SET email = $2, password_hash = $3, role = $4, display_name = $5, status = $6,
			      is_blocked = $7, is_deleted = $8, theme = $9, notifications = $10,
			      updated_at = now()
			  WHERE id = $1
			  RETURNING updated_at`
	var updatedAt time.Time
	err := s.DB.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Role, user.DisplayName, user.Status,
		user.IsBlocked, user.IsDeleted, user.Preferences.Theme, user.Preferences.Notifications,
	).Scan(&updatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case isUniqueViolation(err):
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	user.UpdatedAt = updatedAt
	return nil
}

// ListUsers возвращает пользователей в порядке регистрации.
func (s *Storage) ListUsers(ctx context.Context, includeDeleted bool) ([]*models.User, error) {
	const op = "storage.ListUsers"

	query := `SELECT ` + userColumns + ` FROM users
			  WHERE $1 OR NOT is_deleted
			  ORDER BY created_at, id`
	rows, err := s.DB.QueryContext(ctx, query, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountActiveUsers считает, сколько из переданных идентификаторов
// принадлежат существующим неудалённым пользователям. Идентификаторы
// не в формате UUID не учитываются.
func (s *Storage) CountActiveUsers(ctx context.Context, ids []string) (int, error) {
	const op = "storage.CountActiveUsers"

	valid := validIDs(ids)
	if len(valid) == 0 {
		return 0, nil
	}
	var count int
	query := `SELECT count(*) FROM users WHERE id = ANY($1::text[]::uuid[]) AND NOT is_deleted`
	if err := s.DB.QueryRowContext(ctx, query, valid).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
