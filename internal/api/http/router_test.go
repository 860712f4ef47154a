package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-engine/internal/api/http/handlers"
	"github.com/spec-kit/ticket-engine/internal/audit"
	"github.com/spec-kit/ticket-engine/internal/auth"
	"github.com/spec-kit/ticket-engine/internal/config"
	"github.com/spec-kit/ticket-engine/internal/hours"
	"github.com/spec-kit/ticket-engine/internal/lifecycle"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/store"
)

func newTestApp(t *testing.T) (*fiber.App, string) {
	t.Helper()

	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	manager := lifecycle.NewManager(lifecycle.Dependencies{
		Store:             fs,
		Trail:             audit.NewMemoryTrail(),
		Logger:            zap.NewNop(),
		MaxTicketsPerUser: 5,
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	authCfg := config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		AdminPasswordHash:     string(hash),
	}
	tokens := auth.NewTokenManager(authCfg.JWTSecret, authCfg.AccessTokenTTLMinutes)
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-engine", "test", fs, nil, nil),
		Auth:           handlers.NewAuthHandler(authCfg, tokens),
		Tickets:        handlers.NewTicketsHandler(manager, map[int]hours.Weekly{}),
		Stats:          handlers.NewStatsHandler(manager, metrics),
		Logs:           handlers.NewLogsHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	token, _, err := tokens.GenerateToken("admin")
	require.NoError(t, err)
	return app, token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload
}

func TestMutationsRequireBearerToken(t *testing.T) {
	app, _ := newTestApp(t)

	status, payload := doJSON(t, app, http.MethodPost, "/tickets", "", map[string]any{
		"guild_id": "g", "channel_id": "c", "user_id": "u", "category": "support",
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", payload["error"].(map[string]any)["code"])
}

func TestLoginIssuesUsableToken(t *testing.T) {
	app, _ := newTestApp(t)

	status, payload := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]any{
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, payload = doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]any{
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, status)
	token := payload["data"].(map[string]any)["access_token"].(string)
	require.NotEmpty(t, token)

	status, _ = doJSON(t, app, http.MethodPost, "/tickets", token, map[string]any{
		"guild_id": "g", "channel_id": "c", "user_id": "u", "category": "support",
	})
	require.Equal(t, http.StatusCreated, status)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	app, token := newTestApp(t)

	status, payload := doJSON(t, app, http.MethodPost, "/tickets", token, map[string]any{
		"guild_id":   "g",
		"channel_id": "chan-1",
		"user_id":    "alice",
		"username":   "alice",
		"category":   "support",
		"answers":    []string{"it broke"},
	})
	require.Equal(t, http.StatusCreated, status)
	ticketID := payload["data"].(map[string]any)["ticketId"].(string)
	require.Equal(t, "ticket-0001", ticketID)

	// Reads are public.
	status, payload = doJSON(t, app, http.MethodGet, "/tickets/"+ticketID, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "open", payload["data"].(map[string]any)["status"])

	status, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticketID+"/claim", token, map[string]any{
		"user_id": "staff-1", "username": "sam",
	})
	require.Equal(t, http.StatusOK, status)

	// Claiming twice is a conflict.
	status, payload = doJSON(t, app, http.MethodPost, "/tickets/"+ticketID+"/claim", token, map[string]any{
		"user_id": "staff-2", "username": "kim",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "CONFLICT", payload["error"].(map[string]any)["code"])

	status, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticketID+"/close", token, map[string]any{
		"user_id": "staff-1", "username": "sam",
	})
	require.Equal(t, http.StatusOK, status)

	// Rating bounds are enforced at this layer.
	status, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticketID+"/rating", token, map[string]any{
		"rating": 6,
	})
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticketID+"/rating", token, map[string]any{
		"rating": 5, "feedback": "fast",
	})
	require.Equal(t, http.StatusOK, status)

	status, payload = doJSON(t, app, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, status)
	data := payload["data"].(map[string]any)
	require.Equal(t, float64(1), data["total_tickets"])
	require.Equal(t, float64(1), data["closed_tickets"])
}

func TestUnknownTicketIsNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	status, payload := doJSON(t, app, http.MethodGet, "/tickets/ticket-9999", "", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", payload["error"].(map[string]any)["code"])
}

func TestLogsUnavailableWithoutDurableTrail(t *testing.T) {
	app, _ := newTestApp(t)
	status, payload := doJSON(t, app, http.MethodGet, "/logs", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "AUDIT_UNAVAILABLE", payload["error"].(map[string]any)["code"])
}
