package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/handlers"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/metrics"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/middleware"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenTable map[string]services.Principal

func (t tokenTable) Resolve(_ context.Context, token string) (*services.Principal, error) {
	if token == "broken" {
		return nil, errors.New("auth backend unreachable")
	}
	p, ok := t[token]
	if !ok {
		return nil, services.Unauthenticated("invalid or expired token")
	}
	return &p, nil
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(middleware.RequestLogger(metrics.New()))
	resolver := tokenTable{"t-alice": {ID: "alice-id", Email: "alice@example.com"}}
	app.Get("/me", middleware.RequireIdentity(resolver), func(c *fiber.Ctx) error {
		access := middleware.Access(c)
		return c.JSON(fiber.Map{
			"id":     middleware.UserID(c),
			"access": access.String(),
			"token":  access.Token(),
		})
	})
	return app
}

func TestRequireIdentity(t *testing.T) {
	app := newApp()

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"backend failure", "Bearer broken", http.StatusUnauthorized},
		{"valid", "Bearer t-alice", http.StatusOK},
		{"lowercase scheme", "bearer t-alice", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tc.status == http.StatusOK {
				assert.Equal(t, "alice-id", body["id"])
				assert.Equal(t, "scoped:alice-id", body["access"])
				assert.Equal(t, "t-alice", body["token"])
			} else {
				assert.Equal(t, string(services.KindUnauthenticated), body["code"])
			}
		})
	}
}

func TestAllowServiceKey(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	resolver := tokenTable{"t-alice": {ID: "alice-id"}}
	guard := middleware.AllowServiceKey("service-secret", middleware.RequireIdentity(resolver))
	app.Post("/import", guard, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": middleware.IsServiceCall(c),
			"access":  middleware.Access(c).String(),
		})
	})

	call := func(header string) (int, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodPost, "/import", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	status, body := call("Bearer service-secret")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["service"])
	assert.Equal(t, "elevated", body["access"])

	status, body = call("Bearer t-alice")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["service"])
	assert.Equal(t, "scoped:alice-id", body["access"])

	status, _ = call("Bearer service-secre")
	assert.Equal(t, http.StatusUnauthorized, status)

	open := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	open.Get("/x", middleware.AllowServiceKey("", middleware.RequireIdentity(resolver)), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer ")
	resp, err := open.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
