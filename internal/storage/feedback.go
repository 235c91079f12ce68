package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/messenger/internal/models"
)

// CreateFeedback сохраняет обращение.
func (s *Storage) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	const op = "storage.CreateFeedback"

	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	var userID sql.NullString
	if fb.UserID != nil && isUUID(*fb.UserID) {
		userID = sql.NullString{String: *fb.UserID, Valid: true}
	}
	query := `INSERT INTO feedback (id, name, email, message, user_id)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING created_at`
	if err := s.DB.QueryRowContext(ctx, query, fb.ID, fb.Name, fb.Email, fb.Message, userID).
		Scan(&fb.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListFeedback возвращает обращения, новые первыми, с автором, если он известен.
func (s *Storage) ListFeedback(ctx context.Context) ([]*models.Feedback, error) {
	const op = "storage.ListFeedback"

	query := `SELECT f.id, f.name, f.email, f.message, f.created_at,
			      u.id, u.email, u.role
			  FROM feedback f
			  LEFT JOIN users u ON u.id = f.user_id
			  ORDER BY f.created_at DESC, f.id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Feedback, 0)
	for rows.Next() {
		var fb models.Feedback
		var userID, userEmail, userRole sql.NullString
		if err = rows.Scan(&fb.ID, &fb.Name, &fb.Email, &fb.Message, &fb.CreatedAt,
			&userID, &userEmail, &userRole); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if userID.Valid {
			id := userID.String
			fb.UserID = &id
			fb.User = &models.UserSummary{ID: id, Email: userEmail.String, Role: models.Role(userRole.String)}
		}
		result = append(result, &fb)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
