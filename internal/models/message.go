package models

import "time"

// Message сообщение в чате.
type Message struct {
	ID        string      `json:"id"`
	ChatID    string      `json:"chat"`
	SenderID  string      `json:"-"`
	Sender    UserSummary `json:"sender"`
	Text      string      `json:"text"`
	Edited    bool        `json:"edited"`
	IsRead    bool        `json:"isRead"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
