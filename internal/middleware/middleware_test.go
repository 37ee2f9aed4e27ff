package middleware

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrapify/scrapify-backend/internal/services"
	"github.com/scrapify/scrapify-backend/internal/utils"
)

func errorBody(t *testing.T, app *fiber.App, req *httptestRequest) (int, string) {
	t.Helper()
	r := httptest.NewRequest(fiber.MethodGet, req.target, nil)
	if req.auth != "" {
		r.Header.Set(fiber.HeaderAuthorization, req.auth)
	}
	resp, err := app.Test(r)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	msg, _ := body["error"].(string)
	return resp.StatusCode, msg
}

type httptestRequest struct {
	target string
	auth   string
}

func authApp(tokens *services.TokenService) *fiber.App {
	app := fiber.New()
	app.Get("/me", RequireAuth(tokens), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": UserID(c)})
	})
	return app
}

func TestRequireAuth(t *testing.T) {
	tokens, err := services.NewTokenService("secret", time.Hour)
	require.NoError(t, err)
	app := authApp(tokens)

	token, err := tokens.Generate(9, "asha@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	r.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(r)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint(9), body.ID)
}

func TestRequireAuthRejects(t *testing.T) {
	tokens, err := services.NewTokenService("secret", time.Hour)
	require.NoError(t, err)
	app := authApp(tokens)

	expired, err := services.NewTokenService("secret", -time.Minute)
	require.NoError(t, err)
	stale, err := expired.Generate(9, "asha@example.com")
	require.NoError(t, err)

	tests := []struct {
		auth string
		want string
	}{
		{"", "Access denied. No token provided"},
		{"Token abc", "Invalid authorization header format"},
		{"Bearer not-a-jwt", "Invalid token"},
		{"Bearer " + stale, "Token has expired"},
	}
	for _, tt := range tests {
		code, msg := errorBody(t, app, &httptestRequest{target: "/me", auth: tt.auth})
		assert.Equal(t, fiber.StatusUnauthorized, code, tt.want)
		assert.Equal(t, tt.want, msg)
	}
}

func TestUserIDOutsideAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": UserID(c)})
	})
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func actionApp(secret string) *fiber.App {
	app := fiber.New()
	app.Get("/admin/accept-booking/:bookingId", ValidateActionSignature(secret, "accept"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestValidateActionSignature(t *testing.T) {
	app := actionApp("link-secret")

	good := fmt.Sprintf("/admin/accept-booking/5?sig=%s", utils.SignAction("link-secret", "accept", 5))
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, good, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	tests := []struct {
		target string
		want   string
	}{
		{"/admin/accept-booking/5", "Missing link signature"},
		{"/admin/accept-booking/6?sig=" + utils.SignAction("link-secret", "accept", 5), "Invalid signature"},
		{"/admin/accept-booking/5?sig=" + utils.SignAction("link-secret", "reject", 5), "Invalid signature"},
		{"/admin/accept-booking/abc?sig=00", "Invalid signature"},
	}
	for _, tt := range tests {
		code, msg := errorBody(t, app, &httptestRequest{target: tt.target})
		assert.Equal(t, fiber.StatusUnauthorized, code, tt.target)
		assert.Equal(t, tt.want, msg, tt.target)
	}
}

func TestValidateActionSignatureDisabled(t *testing.T) {
	resp, err := actionApp("").Test(httptest.NewRequest(fiber.MethodGet, "/admin/accept-booking/5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
