package sl_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/messenger/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	attr := sl.Err(errors.New("something went wrong"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.NotPanics(t, func() {
		attr := sl.Err(nil)
		assert.Equal(t, "<nil>", attr.Value.String())
	})
}

func TestUserID(t *testing.T) {
	attr := sl.UserID("42")

	assert.Equal(t, "user_id", attr.Key)
	assert.Equal(t, "42", attr.Value.String())
}

func TestSetupLogger_Levels(t *testing.T) {
	ctx := context.Background()

	assert.True(t, sl.SetupLogger("local").Enabled(ctx, slog.LevelDebug))
	assert.True(t, sl.SetupLogger("dev").Enabled(ctx, slog.LevelDebug))
	assert.False(t, sl.SetupLogger("prod").Enabled(ctx, slog.LevelDebug))
	assert.True(t, sl.SetupLogger("prod").Enabled(ctx, slog.LevelInfo))
}
