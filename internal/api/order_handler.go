package api

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"restaurant-service/internal/constraint"
	"restaurant-service/internal/entity"
	"restaurant-service/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

type configureRequest struct {
	Size          entity.Size `json:"size"`
	IngredientIDs []int       `json:"ingredient_ids"`
	CandidateID   int         `json:"candidate_id"`
	NewSize       entity.Size `json:"new_size"`
}

func (r configureRequest) selection() constraint.Selection {
	return constraint.Selection{Size: r.Size, Ingredients: r.IngredientIDs}
}

// ConfigureAdd decides whether an ingredient can join the selection --> POST /orders/configure/add
func (h *OrderHandler) ConfigureAdd(c echo.Context) error {
	req := configureRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	decision, err := h.orderService.ConfigureAdd(c.Request().Context(), req.selection(), req.CandidateID)
	if err != nil {
		return internalError(c)
	}

	return c.JSON(200, decision)
}

// ConfigureRemove decides whether an ingredient can leave the selection --> POST /orders/configure/remove
func (h *OrderHandler) ConfigureRemove(c echo.Context) error {
	req := configureRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	decision, err := h.orderService.ConfigureRemove(c.Request().Context(), req.selection(), req.CandidateID)
	if err != nil {
		return internalError(c)
	}

	return c.JSON(200, decision)
}

// ConfigureSizeChange decides whether the selection fits a new size --> POST /orders/configure/size
func (h *OrderHandler) ConfigureSizeChange(c echo.Context) error {
	req := configureRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	decision, err := h.orderService.ConfigureSizeChange(c.Request().Context(), req.selection(), req.NewSize)
	if err != nil {
		return internalError(c)
	}

	return c.JSON(200, decision)
}

// SubmitOrder confirms an order --> POST /orders
func (h *OrderHandler) SubmitOrder(c echo.Context) error {
	userID, _ := currentUser(c)

	req := service.SubmitOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	req.IdempotentKey = c.Request().Header.Get("Idempotent-Key")

	order, denials, err := h.orderService.SubmitOrder(c.Request().Context(), userID, req)
	if err != nil {
		return submitError(c, err)
	}
	if len(denials) > 0 {
		return denialResponse(c, denials...)
	}

	return c.JSON(201, order)
}

// submitError distinguishes the one client-side submission error from
// infrastructure failures: a reused Idempotent-Key is a conflict, not a 500.
func submitError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrDuplicateIdempotentKey) {
		return c.JSON(409, map[string]string{"error": err.Error()})
	}
	return internalError(c)
}

// CancelOrder cancels a confirmed order; requires a two-factor token --> DELETE /orders/:id
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	userID, twoFactor := currentUser(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid ID"})
	}

	order, denial, err := h.orderService.CancelOrder(c.Request().Context(), userID, id, twoFactor)
	if err != nil {
		return internalError(c)
	}
	if denial != nil {
		return denialResponse(c, *denial)
	}

	return c.JSON(200, order)
}

// ListOrders lists the caller's orders --> GET /orders
func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, _ := currentUser(c)

	orders, err := h.orderService.ListOrders(c.Request().Context(), userID)
	if err != nil {
		return internalError(c)
	}

	return c.JSON(200, orders)
}

// GetOrder fetches one of the caller's orders --> GET /orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, _ := currentUser(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid ID"})
	}

	order, denial, err := h.orderService.GetOrder(c.Request().Context(), userID, id)
	if err != nil {
		return internalError(c)
	}
	if denial != nil {
		return denialResponse(c, *denial)
	}

	return c.JSON(200, order)
}
