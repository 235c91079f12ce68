// Package password хеширует и проверяет пароли пользователей через bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch возвращается, когда пароль не соответствует хэшу.
var ErrMismatch = errors.New("password mismatch")

// ErrEmptyHash возвращается для учётных записей без сохранённого хэша.
var ErrEmptyHash = errors.New("password hash is not set")

// ErrTooLong пароль длиннее MaxBytes байт.
var ErrTooLong = errors.New("password is too long")

// MaxBytes предел bcrypt. Считается в байтах, не в символах.
const MaxBytes = 72

// GetHash возвращает bcrypt-хэш пароля. Открытый пароль нигде не сохраняется.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	if len(password) > MaxBytes {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt-хэш с введённым паролем.
//
// Возвращает ErrMismatch при несовпадении и ErrEmptyHash, если хэш пуст.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if originalHash == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyHash)
	}
	err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
