package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/models"
)

// UserLoader источник пользователей при промахе кэша.
type UserLoader interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// Users кэш пользователей по идентификатору с чтением через хранилище.
// Хэш пароля в кэш не попадает, поэтому результат годится только для
// проверки роли и статуса учётной записи.
type Users struct {
	log    *slog.Logger
	cache  *Cache
	loader UserLoader
	ttl    time.Duration
}

// NewUsers создаёт кэш пользователей.
func NewUsers(log *slog.Logger, c *Cache, loader UserLoader, ttl time.Duration) *Users {
	return &Users{log: log, cache: c, loader: loader, ttl: ttl}
}

func userKey(id string) string {
	return "cache:user:" + id
}

// FindUserByID возвращает пользователя из кэша или из хранилища.
// Ошибки Redis не мешают ответу: запрос уходит в хранилище.
func (u *Users) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "cache.Users.FindUserByID"
	log := u.log.With(slog.String("op", op))

	var user models.User
	found, err := u.cache.Get(ctx, userKey(id), &user)
	if err != nil {
		log.Warn("cache read failed", sl.Err(err))
	}
	if found {
		return &user, nil
	}

	loaded, err := u.loader.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = u.cache.Set(ctx, userKey(id), loaded, u.ttl); err != nil {
		log.Warn("cache write failed", sl.Err(err))
	}
	return loaded, nil
}

// Invalidate удаляет пользователя из кэша.
func (u *Users) Invalidate(ctx context.Context, id string) error {
	return u.cache.Invalidate(ctx, userKey(id))
}
