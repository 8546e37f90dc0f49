package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// AccountsHandler exposes registration and login endpoints.
type AccountsHandler struct {
	auth    *service.AuthService
	metrics *observability.Metrics
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(authService *service.AuthService, metrics *observability.Metrics) *AccountsHandler {
	return &AccountsHandler{auth: authService, metrics: metrics}
}

// Register handles POST /accounts/register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, err := h.auth.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		h.metrics.RecordAuth("register", "failure")
		return err
	}

	h.metrics.RecordAuth("register", "success")
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.AccountResponse{
			ID:       account.ID,
			Username: account.Username,
			Email:    account.Email,
		},
	})
}

// Login handles POST /accounts/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	token, expiresAt, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		h.metrics.RecordAuth("login", "failure")
		return err
	}

	h.metrics.RecordAuth("login", "success")
	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{Token: token, ExpiresAt: expiresAt},
	})
}

// Me handles GET /accounts/me for callers presenting a valid bearer token.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	return c.JSON(fiber.Map{
		"data": dto.AccountResponse{
			ID:       principal.Account.ID,
			Username: principal.Account.Username,
			Email:    principal.Account.Email,
		},
	})
}
