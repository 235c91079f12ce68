package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/messenger/internal/models"
)

const messageSelect = `SELECT m.id, m.chat_id, m.sender_id, m.text, m.edited, m.is_read,
	m.created_at, m.updated_at, u.email, u.role
	FROM messages m
	JOIN users u ON u.id = m.sender_id`

func scanMessage(row rowScanner) (*models.Message, error) {
	m := &models.Message{}
	if err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.Edited, &m.IsRead,
		&m.CreatedAt, &m.UpdatedAt, &m.Sender.Email, &m.Sender.Role); err != nil {
		return nil, err
	}
	m.Sender.ID = m.SenderID
	return m, nil
}

// CreateMessage сохраняет сообщение и возвращает его вместе с отправителем.
func (s *Storage) CreateMessage(ctx context.Context, chatID, senderID, text string) (*models.Message, error) {
	const op = "storage.CreateMessage"

	if !isUUID(chatID) {
		return nil, fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	id := uuid.NewString()
	query := `INSERT INTO messages (id, chat_id, sender_id, text) VALUES ($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query, id, chatID, senderID, text); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetMessage(ctx, id)
}

// GetMessage возвращает сообщение по идентификатору.
func (s *Storage) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	const op = "storage.GetMessage"

	if !isUUID(id) {
		return nil, fmt.Errorf("%s: %w", op, ErrMessageNotFound)
	}
	m, err := scanMessage(s.DB.QueryRowContext(ctx, messageSelect+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrMessageNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// ListMessages возвращает сообщения чата по возрастанию времени создания.
func (s *Storage) ListMessages(ctx context.Context, chatID string) ([]*models.Message, error) {
	const op = "storage.ListMessages"

	query := messageSelect + ` WHERE m.chat_id = $1 ORDER BY m.created_at, m.seq`
	msgs, err := s.queryMessages(ctx, chatID, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

// SearchMessages ищет подстроку в тексте сообщений без учёта регистра,
// новые первыми, не больше limit записей.
func (s *Storage) SearchMessages(ctx context.Context, chatID, q string, limit int) ([]*models.Message, error) {
	const op = "storage.SearchMessages"

	query := messageSelect + `
		WHERE m.chat_id = $1 AND m.text ILIKE $2 ESCAPE '\'
		ORDER BY m.created_at DESC, m.seq DESC
		LIMIT $3`
	msgs, err := s.queryMessages(ctx, chatID, query, chatID, "%"+escapeLike(q)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// MarkChatRead отмечает прочитанными сообщения чата, отправленные не читателем.
func (s *Storage) MarkChatRead(ctx context.Context, chatID, readerID string) (int64, error) {
	const op = "storage.MarkChatRead"

	if !isUUID(chatID) {
		return 0, fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	query := `UPDATE messages SET is_read = true
			  WHERE chat_id = $1 AND sender_id <> $2 AND NOT is_read`
	res, err := s.DB.ExecContext(ctx, query, chatID, readerID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// UpdateMessage меняет текст (если передан) и помечает сообщение изменённым.
func (s *Storage) UpdateMessage(ctx context.Context, id string, text *string) (*models.Message, error) {
	const op = "storage.UpdateMessage"

	if !isUUID(id) {
		return nil, fmt.Errorf("%s: %w", op, ErrMessageNotFound)
	}
	query := `UPDATE messages
			  SET text = COALESCE($2, text), edited = true, updated_at = clock_timestamp()
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrMessageNotFound)
	}
	return s.GetMessage(ctx, id)
}

// DeleteMessage удаляет сообщение.
func (s *Storage) DeleteMessage(ctx context.Context, id string) error {
	const op = "storage.DeleteMessage"

	if !isUUID(id) {
		return fmt.Errorf("%s: %w", op, ErrMessageNotFound)
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrMessageNotFound)
	}
	return nil
}

func (s *Storage) queryMessages(ctx context.Context, chatID, query string, args ...any) ([]*models.Message, error) {
	result := make([]*models.Message, 0)
	if !isUUID(chatID) {
		return result, nil
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
