package models

import "time"

// Feedback обращение пользователя. UserID заполняется только для
// аутентифицированных запросов.
type Feedback struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	Email     string       `json:"email"`
	Message   string       `json:"message"`
	UserID    *string      `json:"-"`
	User      *UserSummary `json:"user,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// FeedbackEvent событие о новом обращении, публикуемое в брокер.
type FeedbackEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
