package serverutils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	return r[id], nil
}

func decode(t *testing.T, body io.Reader) Response[json.RawMessage] {
	t.Helper()
	var out Response[json.RawMessage]
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func newApp(revoked RevocationList) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/open", func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse("ok", fiber.Map{"n": 1}))
	})
	app.Get("/bad", func(c *fiber.Ctx) error {
		type req struct {
			Name string `validate:"required"`
		}
		return ValidateRequest(req{})
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("database exploded")
	})
	app.Get("/me", JwtMiddleware(secret, revoked), func(c *fiber.Ctx) error {
		id, err := UserID(c)
		if err != nil {
			return err
		}
		return c.JSON(SuccessResponse("me", id.String()))
	})
	return app
}

func TestErrorHandler(t *testing.T) {
	app := newApp(nil)

	tests := []struct {
		path    string
		code    int
		success bool
		message string
	}{
		{path: "/open", code: 200, success: true, message: "ok"},
		{path: "/bad", code: 400, message: "Name failed on 'required'"},
		{path: "/boom", code: 500, message: "Internal server error"},
		{path: "/missing", code: 404, message: "Cannot GET /missing"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			body := decode(t, resp.Body)
			assert.Equal(t, tt.success, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestJwtMiddleware(t *testing.T) {
	userID := uuid.New()
	token, tokenID, err := GenerateToken(secret, userID, time.Hour)
	require.NoError(t, err)
	expired, _, err := GenerateToken(secret, userID, -time.Minute)
	require.NoError(t, err)
	foreign, _, err := GenerateToken("other-secret", userID, time.Hour)
	require.NoError(t, err)

	revoked := revokedSet{}
	app := newApp(revoked)

	call := func(header string) (int, Response[json.RawMessage]) {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode, decode(t, resp.Body)
	}

	t.Run("valid", func(t *testing.T) {
		code, body := call("Bearer " + token)
		assert.Equal(t, 200, code)
		assert.JSONEq(t, `"`+userID.String()+`"`, string(body.Data))
	})

	t.Run("rejected", func(t *testing.T) {
		for name, header := range map[string]string{
			"missing": "",
			"scheme":  "Basic abc",
			"expired": "Bearer " + expired,
			"foreign": "Bearer " + foreign,
		} {
			code, body := call(header)
			assert.Equal(t, 401, code, name)
			assert.False(t, body.Success, name)
		}
	})

	t.Run("revoked", func(t *testing.T) {
		revoked[tokenID] = true
		code, body := call("Bearer " + token)
		assert.Equal(t, 401, code)
		assert.Equal(t, "Token revoked", body.Message)
	})
}
