// Package models содержит доменные модели мессенджера: пользователей,
// чаты, сообщения и обратную связь. Структуры используются в бизнес-логике,
// при работе с хранилищем и при сериализации ответов API.
package models

import (
	"strings"
	"time"
)

// Role роль пользователя.
type Role string

const (
	// RoleUser обычный пользователь.
	RoleUser Role = "user"
	// RoleAdmin администратор.
	RoleAdmin Role = "admin"
)

// Valid сообщает, является ли роль допустимой.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Theme тема интерфейса.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid сообщает, является ли тема допустимой.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Preferences пользовательские настройки.
type Preferences struct {
	Theme         Theme `json:"theme"`
	Notifications bool  `json:"notifications"`
}

// DefaultPreferences настройки новой учётной записи.
func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeLight, Notifications: true}
}

// DefaultStatus статус присутствия новой учётной записи.
const DefaultStatus = "offline"

// User зарегистрированный пользователь. PasswordHash никогда не сериализуется.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         Role        `json:"role"`
	DisplayName  string      `json:"displayName,omitempty"`
	Status       string      `json:"status"`
	IsBlocked    bool        `json:"isBlocked"`
	IsDeleted    bool        `json:"isDeleted"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// UserSummary краткое представление пользователя внутри чатов и сообщений.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// UserEmail представление пользователя для не-администраторов.
type UserEmail struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Summary возвращает краткое представление пользователя.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Principal аутентифицированный автор запроса.
type Principal struct {
	ID   string
	Role Role
}

// IsAdmin сообщает, является ли автор запроса администратором.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// NormalizeEmail приводит адрес к каноническому виду: без пробелов, в нижнем регистре.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeletedEmail адрес, которым заменяется email при мягком удалении,
// чтобы освободить исходный адрес для повторной регистрации.
func DeletedEmail(userID string) string {
	return "deleted+" + userID + "@user.com"
}

// Profile представление пользователя в ответах регистрации и входа.
type Profile struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	Preferences Preferences `json:"preferences"`
	DisplayName string      `json:"displayName"`
}

// Profile возвращает представление для ответов регистрации и входа.
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		Preferences: u.Preferences,
		DisplayName: u.DisplayName,
	}
}
