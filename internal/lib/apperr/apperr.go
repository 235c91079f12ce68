// Package apperr описывает ожидаемые ошибки бизнес-логики и их категории.
//
// Сервисы возвращают *Error для ошибок, которые должны дойти до клиента
// (валидация, аутентификация, доступ, отсутствие сущности). Любая другая
// ошибка считается внутренней.
package apperr

import (
	"errors"
	"fmt"
)

// Kind категория ошибки.
type Kind int

const (
	// KindInternal неожиданная ошибка хранилища или интеграции.
	KindInternal Kind = iota
	// KindValidation отсутствующие или некорректные поля.
	KindValidation
	// KindAuthentication неверные учётные данные или токен.
	KindAuthentication
	// KindAuthorization пользователь аутентифицирован, но действие запрещено.
	KindAuthorization
	// KindNotFound сущность отсутствует или считается удалённой.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error ошибка с категорией и сообщением для клиента.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation создаёт ошибку валидации.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Validationf создаёт ошибку валидации с форматированием.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticated создаёт ошибку аутентификации.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

// Forbidden создаёт ошибку доступа.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// NotFound создаёт ошибку отсутствия сущности.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Internal оборачивает неожиданную ошибку.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf возвращает категорию ошибки; для посторонних ошибок KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение для клиента или fallback для внутренних ошибок.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return fallback
}

// Is сообщает, относится ли ошибка к категории kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
