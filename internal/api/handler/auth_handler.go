package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Email:         req.Email,
		Password:      req.Password,
		Name:          req.Name,
		Role:          req.Role,
		DeviceID:      req.DeviceID,
		SuperAdminKey: req.SuperAdminKey,
		Client:        clientInfo(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{User: res.User, Token: res.Token})
}

// Signin authenticates a user and returns a session token.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signinRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/signin [post]
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Signin(c.Request().Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{User: res.User, Token: res.Token})
}

// ForgotPassword emails a password reset link.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset email sent"})
}

// ResetPassword redeems a reset token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password has been reset successfully"})
}

// AddDevice appends a device to the caller's allowed devices.
//
// @Summary      Add a device to the current user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addDeviceRequest  true  "Device id"
// @Success      200   {object}  userMessageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/add-device [post]
func (h *AuthHandler) AddDevice(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req addDeviceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.AddDevice(c.Request().Context(), userID, req.DeviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userMessageResponse{Message: "Device added successfully", User: user})
}

// Logs lists the most recent authentication attempts.
//
// @Summary      List auth audit log
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.AuthLogView
// @Failure      401  {object}  errorResponse
// @Router       /auth/logs [get]
func (h *AuthHandler) Logs(c echo.Context) error {
	if _, err := ctxUserID(c); err != nil {
		return err
	}
	logs, err := h.authService.AuthLogs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}
