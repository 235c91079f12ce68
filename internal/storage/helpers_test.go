package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/messenger/internal/migrations"
	"github.com/magabrotheeeer/messenger/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя с указанным email
func (f *TestDataFactory) CreateUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "hash", Role: role}
	require.NoError(t, f.storage.CreateUser(context.Background(), u))
	return u
}

// CreateChat создает тестовый чат
func (f *TestDataFactory) CreateChat(t *testing.T, title string, creator *models.User, others ...*models.User) *models.Chat {
	t.Helper()
	ids := []string{creator.ID}
	for _, o := range others {
		ids = append(ids, o.ID)
	}
	c := &models.Chat{Title: title, CreatorID: creator.ID, ParticipantIDs: ids}
	require.NoError(t, f.storage.CreateChat(context.Background(), c))
	return c
}

// CreateMessage создает тестовое сообщение
func (f *TestDataFactory) CreateMessage(t *testing.T, chat *models.Chat, sender *models.User, text string) *models.Message {
	t.Helper()
	m, err := f.storage.CreateMessage(context.Background(), chat.ID, sender.ID, text)
	require.NoError(t, err)
	return m
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test, skipped in -short mode")
	}
	ctx := context.Background()

	const (
		dbName = "testdb"
		dbUser = "testuser"
		dbPass = "testpass"
	)
	port := nat.Port("5432/tcp")

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPass),
		testcontainers.WithWaitStrategy(
			wait.ForSQL(port, "pgx", func(host string, p nat.Port) string {
				return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPass, host, p.Port(), dbName)
			}).WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, connStr)
	require.NoError(t, err, "failed to create storage")

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	t.Cleanup(func() {
		_ = storage.Close()
		_ = pgContainer.Terminate(ctx)
	})

	return storage
}
