package api

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"restaurant-service/internal/service"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListDishes --> GET /menu/dishes
func (h *CatalogHandler) ListDishes(c echo.Context) error {
	dishes, err := h.catalogService.ListDishes(c.Request().Context())
	if err != nil {
		return internalError(c)
	}
	return c.JSON(200, dishes)
}

// ListIngredients --> GET /menu/ingredients
func (h *CatalogHandler) ListIngredients(c echo.Context) error {
	ingredients, err := h.catalogService.ListIngredients(c.Request().Context())
	if err != nil {
		return internalError(c)
	}
	return c.JSON(200, ingredients)
}

// SizeConfig --> GET /menu/sizes
func (h *CatalogHandler) SizeConfig(c echo.Context) error {
	return c.JSON(200, h.catalogService.SizeConfig())
}

// RestockIngredient adds stock to an ingredient --> PUT /menu/ingredients/:id/restock
func (h *CatalogHandler) RestockIngredient(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid ID"})
	}

	req := struct {
		Quantity int `json:"quantity"`
	}{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	if req.Quantity <= 0 {
		return c.JSON(400, map[string]string{"error": "quantity must be positive"})
	}

	if err := h.catalogService.RestockIngredient(c.Request().Context(), id, req.Quantity); err != nil {
		return internalError(c)
	}

	return c.JSON(200, map[string]string{"message": "restocked"})
}
