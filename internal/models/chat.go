package models

import (
	"encoding/json"
	"time"
)

// DefaultChatTitle название чата, если передано пустое.
const DefaultChatTitle = "Chat"

// Chat чат с набором участников.
//
// ParticipantIDs и CreatorID используются политикой доступа; Participants
// и CreatedBy заполняются хранилищем для ответов API.
type Chat struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	ParticipantIDs []string      `json:"-"`
	Participants   []UserSummary `json:"participants"`
	CreatorID      string        `json:"-"`
	CreatedBy      UserSummary   `json:"createdBy"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// HasParticipant сообщает, входит ли пользователь в чат.
func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ParticipantList список участников из запроса. Принимает как массив строк,
// так и одну строку.
type ParticipantList []string

// UnmarshalJSON разбирает массив строк, одну строку или null.
func (p *ParticipantList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*p = ParticipantList{}
		return nil
	}
	*p = ParticipantList{single}
	return nil
}
