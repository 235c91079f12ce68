package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/messenger/internal/models"
)

const chatSelect = `SELECT c.id, c.title, c.created_by, c.created_at, c.updated_at,
	u.email, u.role
	FROM chats c
	JOIN users u ON u.id = c.created_by`

func scanChat(row rowScanner) (*models.Chat, error) {
	c := &models.Chat{}
	if err := row.Scan(&c.ID, &c.Title, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt,
		&c.CreatedBy.Email, &c.CreatedBy.Role); err != nil {
		return nil, err
	}
	c.CreatedBy.ID = c.CreatorID
	return c, nil
}

// CreateChat сохраняет чат вместе с участниками в одной транзакции.
func (s *Storage) CreateChat(ctx context.Context, chat *models.Chat) error {
	const op = "storage.CreateChat"

	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO chats (id, title, created_by)
				  VALUES ($1, $2, $3)
				  RETURNING created_at, updated_at`
		if err := tx.QueryRowContext(ctx, query, chat.ID, chat.Title, chat.CreatorID).
			Scan(&chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return err
		}
		return insertParticipants(ctx, tx, chat.ID, chat.ParticipantIDs)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func insertParticipants(ctx context.Context, tx *sql.Tx, chatID string, ids []string) error {
	query := `INSERT INTO chat_participants (chat_id, user_id)
			  SELECT $1, unnest($2::text[]::uuid[])
			  ON CONFLICT DO NOTHING`
	_, err := tx.ExecContext(ctx, query, chatID, ids)
	return err
}

// UpdateChat обновляет название и заменяет набор участников в одной транзакции.
func (s *Storage) UpdateChat(ctx context.Context, chat *models.Chat) error {
	const op = "storage.UpdateChat"

	if !isUUID(chat.ID) {
		return fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE chats SET title = $2, updated_at = now()
				  WHERE id = $1
				  RETURNING updated_at`
		if err := tx.QueryRowContext(ctx, query, chat.ID, chat.Title).Scan(&chat.UpdatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrChatNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_participants WHERE chat_id = $1`, chat.ID); err != nil {
			return err
		}
		return insertParticipants(ctx, tx, chat.ID, chat.ParticipantIDs)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetChat возвращает чат с участниками и создателем.
func (s *Storage) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	const op = "storage.GetChat"

	if !isUUID(id) {
		return nil, fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	chat, err := scanChat(s.DB.QueryRowContext(ctx, chatSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrChatNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.attachParticipants(ctx, []*models.Chat{chat}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

// ListChatsByParticipant возвращает чаты, в которых состоит пользователь,
// последние обновлённые первыми.
func (s *Storage) ListChatsByParticipant(ctx context.Context, userID string) ([]*models.Chat, error) {
	const op = "storage.ListChatsByParticipant"

	if !isUUID(userID) {
		return []*models.Chat{}, nil
	}
	query := chatSelect + `
		WHERE EXISTS (
			SELECT 1 FROM chat_participants cp
			WHERE cp.chat_id = c.id AND cp.user_id = $1
		)
		ORDER BY c.updated_at DESC, c.id`
	chats, err := s.queryChats(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chats, nil
}

// ListAllChats возвращает все чаты.
func (s *Storage) ListAllChats(ctx context.Context) ([]*models.Chat, error) {
	const op = "storage.ListAllChats"

	chats, err := s.queryChats(ctx, chatSelect+` ORDER BY c.updated_at DESC, c.id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chats, nil
}

// DeleteChat удаляет чат; сообщения и участники удаляются каскадно.
func (s *Storage) DeleteChat(ctx context.Context, id string) error {
	const op = "storage.DeleteChat"

	if !isUUID(id) {
		return fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	return nil
}

// ChatParticipantIDs возвращает текущих участников чата.
func (s *Storage) ChatParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	const op = "storage.ChatParticipantIDs"

	if !isUUID(chatID) {
		return nil, fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_id FROM chat_participants WHERE chat_id = $1 ORDER BY user_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func (s *Storage) queryChats(ctx context.Context, query string, args ...any) ([]*models.Chat, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	chats := make([]*models.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if err = s.attachParticipants(ctx, chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// attachParticipants заполняет участников для набора чатов одним запросом.
func (s *Storage) attachParticipants(ctx context.Context, chats []*models.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	byID := make(map[string]*models.Chat, len(chats))
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		c.ParticipantIDs = []string{}
		c.Participants = []models.UserSummary{}
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	query := `SELECT cp.chat_id, u.id, u.email, u.role
			  FROM chat_participants cp
			  JOIN users u ON u.id = cp.user_id
			  WHERE cp.chat_id = ANY($1::text[]::uuid[])
			  ORDER BY u.id`
	rows, err := s.DB.QueryContext(ctx, query, ids)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var chatID string
		var p models.UserSummary
		if err = rows.Scan(&chatID, &p.ID, &p.Email, &p.Role); err != nil {
			return err
		}
		if c, ok := byID[chatID]; ok {
			c.ParticipantIDs = append(c.ParticipantIDs, p.ID)
			c.Participants = append(c.Participants, p)
		}
	}
	return rows.Err()
}
