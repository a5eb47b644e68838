package api

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"restaurant-service/internal/constraint"
	"restaurant-service/internal/service"
)

// denialStatus maps business denials to 4xx codes; infrastructure failures
// are always a plain 500 so callers can tell "your request broke a rule"
// apart from "the system failed".
func denialStatus(code constraint.DenialCode) int {
	switch code {
	case constraint.CodeNotFound:
		return http.StatusNotFound
	case constraint.CodeForbidden:
		return http.StatusForbidden
	case constraint.CodeAlreadyCancelled:
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

func denialResponse(c echo.Context, denials ...constraint.Denial) error {
	return c.JSON(denialStatus(denials[0].Code), map[string]interface{}{
		"error":   denials[0].Message(),
		"denials": denials,
	})
}

func internalError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error, try again"})
}

// currentUser pulls the identity out of the JWT the middleware validated.
func currentUser(c echo.Context) (int, bool) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return 0, false
	}
	claims, ok := token.Claims.(*service.JwtCustomClaims)
	if !ok {
		return 0, false
	}
	return claims.UserID, claims.TwoFactor
}
