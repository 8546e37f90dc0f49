package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/identity-service/internal/api/http"
	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/persistence"
	"github.com/spec-kit/identity-service/internal/repository"
	"github.com/spec-kit/identity-service/internal/service"
)

const goodPassword = "Sup3rSecret!pass"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			SigningKey:      "test-signing-secret",
			Issuer:          "identity-service",
			Audience:        "identity-service-clients",
			TokenTTLSeconds: 300,
			BcryptCost:      bcrypt.MinCost,
		},
		Password: config.PasswordPolicyConfig{
			MinLength:     12,
			RequireUpper:  true,
			RequireLower:  true,
			RequireDigit:  true,
			RequireSymbol: true,
		},
	}

	repo := repository.NewMemoryAccountRepository()
	metrics := observability.NewMetrics()
	authService := service.NewAuthService(cfg, service.AuthDependencies{
		AccountRepo: repo,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Logger:      zap.NewNop(),
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("identity-service", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Accounts:       handlers.NewAccountsHandler(authService, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repo),
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/accounts/register", fiber.Map{
		"username": "alice",
		"email":    "alice@example.com",
		"password": goodPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", data["username"])
	assert.NotEmpty(t, data["id"])

	resp = postJSON(t, app, "/accounts/login", fiber.Map{
		"username": "alice",
		"password": goodPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = decodeBody(t, resp)
	data, ok = body["data"].(map[string]any)
	require.True(t, ok)
	token, _ := data["token"].(string)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, data["expires_at"])
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/accounts/register", fiber.Map{
		"username": "bob",
		"email":    "b@x.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	errObj := body["error"].(map[string]any)
	details, ok := errObj["details"].(map[string]any)
	require.True(t, ok)
	violations, ok := details["violations"].([]any)
	require.True(t, ok)
	assert.Len(t, violations, 4)
}

func TestDuplicateRegisterReturnsConflict(t *testing.T) {
	app := newTestApp(t)

	payload := fiber.Map{"username": "alice", "email": "a@x.com", "password": goodPassword}
	resp := postJSON(t, app, "/accounts/register", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/accounts/register", payload)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(t, decodeBody(t, resp)))
}

func TestLoginFailureIsOpaque(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/accounts/register", fiber.Map{
		"username": "alice", "email": "a@x.com", "password": goodPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	unknown := postJSON(t, app, "/accounts/login", fiber.Map{"username": "ghost", "password": "anything"})
	wrongPass := postJSON(t, app, "/accounts/login", fiber.Map{"username": "alice", "password": "wrongpass"})

	require.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	require.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)

	unknownBody := decodeBody(t, unknown)
	wrongPassBody := decodeBody(t, wrongPass)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, unknownBody))
	assert.Equal(t, unknownBody, wrongPassBody)
}

func TestMeRequiresValidBearerToken(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/accounts/register", fiber.Map{
		"username": "alice", "email": "a@x.com", "password": goodPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	login := postJSON(t, app, "/accounts/login", fiber.Map{"username": "alice", "password": goodPassword})
	data := decodeBody(t, login)["data"].(map[string]any)
	token := data["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	meResp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	me := decodeBody(t, meResp)["data"].(map[string]any)
	assert.Equal(t, "alice", me["username"])

	// no header and a mangled token are both rejected
	req = httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	noAuth, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, noAuth.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	badToken, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, badToken.StatusCode)
}
