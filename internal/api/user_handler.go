package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"restaurant-service/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new user --> POST /register
func (h *UserHandler) Register(c echo.Context) error {
	req := credentialsRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(400, map[string]string{"error": "username and password are required"})
	}

	user, err := h.userService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return internalError(c)
	}

	return c.JSON(201, user)
}

// Login logs in a user --> POST /login
func (h *UserHandler) Login(c echo.Context) error {
	req := credentialsRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	token, err := h.userService.Login(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(401, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return internalError(c)
	}

	return c.JSON(200, map[string]string{"token": token})
}

// RequestSecondFactor issues a one-time code --> POST /2fa/request
func (h *UserHandler) RequestSecondFactor(c echo.Context) error {
	userID, _ := currentUser(c)

	code, err := h.userService.RequestSecondFactor(c.Request().Context(), userID)
	if err != nil {
		return internalError(c)
	}

	// Delivery is out of band in a real deployment; the demo returns it.
	return c.JSON(200, map[string]string{"code": code})
}

// VerifySecondFactor trades a valid code for an upgraded token --> POST /2fa/verify
func (h *UserHandler) VerifySecondFactor(c echo.Context) error {
	userID, _ := currentUser(c)

	req := struct {
		Code string `json:"code"`
	}{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	token, err := h.userService.VerifySecondFactor(c.Request().Context(), userID, req.Code)
	if errors.Is(err, service.ErrInvalidCode) {
		return c.JSON(401, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return internalError(c)
	}

	return c.JSON(200, map[string]string{"token": token})
}
