package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.Unauthenticated("who"), http.StatusUnauthorized},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
		{apperr.Internal("x", errors.New("db")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestFromError_HidesInternalDetails(t *testing.T) {
	resp := FromError(errors.New("pq: password authentication failed"))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "internal error", resp.Error)

	resp = FromError(apperr.NotFound("Chat not found"))
	assert.Equal(t, "Chat not found", resp.Error)
}

func TestRenderError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	RenderError(rr, req, log, apperr.Forbidden("Access denied"))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, ErrorResponse{Status: "Error", Error: "Access denied"}, body)
}

func TestValidationError(t *testing.T) {
	type req struct {
		Email string `validate:"required,email"`
		Role  string `validate:"oneof=user admin"`
	}
	err := validator.New().Struct(req{Email: "", Role: "root"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Email is a required field")
	assert.Contains(t, resp.Error, "field Role must be one of [user admin]")
}
