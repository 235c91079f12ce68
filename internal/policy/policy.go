// Package policy решает, может ли пользователь читать или изменять чат
// и сообщения. Функции чистые и не обращаются к хранилищу.
package policy

import "github.com/magabrotheeeer/messenger/internal/models"

// CanAccessChat участник чата или администратор.
func CanAccessChat(p models.Principal, chat *models.Chat) bool {
	if chat == nil {
		return false
	}
	return p.IsAdmin() || chat.HasParticipant(p.ID)
}

// CanMutateChat создатель чата или администратор.
func CanMutateChat(p models.Principal, chat *models.Chat) bool {
	if chat == nil {
		return false
	}
	return p.IsAdmin() || (p.ID != "" && chat.CreatorID == p.ID)
}

// CanMutateMessage отправитель сообщения или администратор.
func CanMutateMessage(p models.Principal, msg *models.Message) bool {
	if msg == nil {
		return false
	}
	return p.IsAdmin() || (p.ID != "" && msg.SenderID == p.ID)
}

// IsAdmin администратор.
func IsAdmin(p models.Principal) bool {
	return p.IsAdmin()
}
