package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/erazemk/vitrina/internal/model"
	"github.com/erazemk/vitrina/internal/service"
	"github.com/erazemk/vitrina/internal/session"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Auth     *service.AuthService
	Sessions *session.Manager
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string             `json:"message"`
	User    *model.SessionUser `json:"user"`
}

type checkResponse struct {
	Authenticated bool               `json:"authenticated"`
	User          *model.SessionUser `json:"user,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	if err := h.Sessions.Begin(c.Response(), c.Request(), user); err != nil {
		return &service.Error{Kind: service.KindInternal, Msg: "failed to start session", Err: err}
	}

	return c.JSON(http.StatusOK, loginResponse{Message: "Login successful", User: user})
}

// Logout handles POST /api/auth/logout. Logging out without a session
// succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Sessions.End(c.Response(), c.Request()); err != nil {
		return &service.Error{Kind: service.KindInternal, Msg: "failed to end session", Err: err}
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Logout successful"})
}

// Check handles GET /api/auth/check.
func (h *AuthHandler) Check(c echo.Context) error {
	user := h.Sessions.Current(c.Request())
	return c.JSON(http.StatusOK, checkResponse{Authenticated: user != nil, User: user})
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.Auth.ChangePassword(c.Request().Context(), currentUser(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password changed successfully"})
}
