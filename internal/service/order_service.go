package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"restaurant-service/internal/constraint"
	"restaurant-service/internal/entity"
	"restaurant-service/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// ErrDuplicateIdempotentKey is returned when a submission reuses an
// Idempotent-Key; the request was rejected, not retried.
var ErrDuplicateIdempotentKey = errors.New("idempotent key already used")

// OrderService is a service that provides order configuration and lifecycle
// operations.
type OrderService struct {
	orderRepo   repository.OrderRepositoryInterface
	catalogRepo repository.CatalogRepositoryInterface
	kafkaWriter *kafka.Writer
	rdb         *redis.Client
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(orderRepo repository.OrderRepositoryInterface, catalogRepo repository.CatalogRepositoryInterface, kafkaWriter *kafka.Writer, rdb *redis.Client) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		kafkaWriter: kafkaWriter,
		rdb:         rdb,
	}
}

type SubmitOrderRequest struct {
	DishID        int         `json:"dish_id"`
	Size          entity.Size `json:"size"`
	IngredientIDs []int       `json:"ingredient_ids"`
	IdempotentKey string      `json:"-"`
}

// ConfigureAdd decides whether an ingredient (plus its requirements) may be
// added to an in-progress selection. The decision is computed against a
// fresh catalog snapshot so stock changes by other users are visible.
// Client selections may repeat ids; counts are over unique ingredients.
func (s *OrderService) ConfigureAdd(ctx context.Context, sel constraint.Selection, candidate int) (constraint.Decision, error) {
	sel.Ingredients = dedupe(sel.Ingredients)
	cat, err := s.catalogRepo.Snapshot(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error loading catalog snapshot")
		return constraint.Decision{}, err
	}
	return constraint.CanAdd(cat, sel, candidate), nil
}

// ConfigureRemove decides whether an ingredient may be removed from the
// selection.
func (s *OrderService) ConfigureRemove(ctx context.Context, sel constraint.Selection, candidate int) (constraint.Decision, error) {
	sel.Ingredients = dedupe(sel.Ingredients)
	cat, err := s.catalogRepo.Snapshot(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error loading catalog snapshot")
		return constraint.Decision{}, err
	}
	return constraint.CanRemove(cat, sel, candidate), nil
}

// ConfigureSizeChange decides whether the selection still fits the new size.
func (s *OrderService) ConfigureSizeChange(ctx context.Context, sel constraint.Selection, newSize entity.Size) (constraint.Decision, error) {
	sel.Ingredients = dedupe(sel.Ingredients)
	cat, err := s.catalogRepo.Snapshot(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error loading catalog snapshot")
		return constraint.Decision{}, err
	}
	return constraint.ChangeSize(cat, sel, newSize), nil
}

// SubmitOrder re-validates the whole selection against a fresh snapshot and
// confirms it. Any rule violations are returned as denials with nothing
// persisted; a non-nil error means an infrastructure failure. The stock
// decrements happen inside the order transaction, so a reservation lost to a
// concurrent submission rolls the order back and comes out as an out-of-stock
// denial.
func (s *OrderService) SubmitOrder(ctx context.Context, userID int, req SubmitOrderRequest) (*entity.Order, []constraint.Denial, error) {
	if req.IdempotentKey == "" {
		req.IdempotentKey = uuid.NewString()
	}
	ok, err := s.validateIdempotentKey(ctx, req.IdempotentKey)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrDuplicateIdempotentKey
	}

	if _, err := s.catalogRepo.GetDishByID(ctx, req.DishID); err != nil {
		if errors.Is(err, repository.ErrDishNotFound) {
			logger.Warn().Int("dish_id", req.DishID).Msg("Dish not found")
			return nil, []constraint.Denial{{Code: constraint.CodeNotFound, Ingredient: fmt.Sprintf("dish %d", req.DishID)}}, nil
		}
		logger.Error().Err(err).Msgf("Error getting dish by ID %d", req.DishID)
		return nil, nil, err
	}

	cat, err := s.catalogRepo.Snapshot(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error loading catalog snapshot")
		return nil, nil, err
	}

	// Deduped and sorted: reservations then touch ingredient rows in one
	// global order, so concurrent submissions cannot lock them in opposite
	// order and deadlock.
	sel := constraint.Selection{Size: req.Size, Ingredients: dedupe(req.IngredientIDs)}
	sort.Ints(sel.Ingredients)
	if denials := constraint.ValidateSelection(cat, sel); len(denials) > 0 {
		logger.Warn().Int("user_id", userID).Int("violations", len(denials)).Msg("Order submission denied")
		return nil, denials, nil
	}

	order := &entity.Order{
		UserID:        userID,
		DishID:        req.DishID,
		Size:          req.Size,
		Total:         constraint.ComputeTotal(cat, sel),
		Status:        entity.OrderStatusConfirmed,
		IngredientIDs: sel.Ingredients,
		IdempotentKey: req.IdempotentKey,
	}

	createdOrder, err := s.orderRepo.CreateOrder(ctx, order)
	if err != nil {
		var oos *repository.OutOfStockError
		if errors.As(err, &oos) {
			logger.Warn().Int("user_id", userID).Str("ingredient", oos.Name).Msg("Order lost stock race")
			return nil, []constraint.Denial{{Code: constraint.CodeOutOfStock, Ingredient: oos.Name}}, nil
		}
		logger.Error().Err(err).Msg("Error creating order")
		return nil, nil, err
	}

	if err := s.publishOrderEvent(ctx, createdOrder, "confirmed"); err != nil {
		logger.Error().Err(err).Int("order_id", createdOrder.ID).Msg("Error publishing order event")
	}

	logger.Info().Int("order_id", createdOrder.ID).Int("user_id", userID).Float64("total", createdOrder.Total).Msg("Order confirmed")
	return createdOrder, nil, nil
}

// CancelOrder cancels a confirmed order and restores its stock. The caller's
// second-factor status is an explicit parameter: cancellation is refused
// without it. A second cancellation is rejected, never a silent no-op, so
// stock is released exactly once.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID int, twoFactorOK bool) (*entity.Order, *constraint.Denial, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &constraint.Denial{Code: constraint.CodeNotFound, Ingredient: fmt.Sprintf("order %d", orderID)}, nil
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting order by ID %d", orderID)
		return nil, nil, err
	}

	if order.UserID != userID {
		logger.Warn().Int("order_id", orderID).Int("user_id", userID).Msg("Cancel refused: not the owner")
		return nil, &constraint.Denial{Code: constraint.CodeForbidden}, nil
	}
	if !twoFactorOK {
		logger.Warn().Int("order_id", orderID).Int("user_id", userID).Msg("Cancel refused: second factor missing")
		return nil, &constraint.Denial{Code: constraint.CodeForbidden}, nil
	}

	cancelledOrder, err := s.orderRepo.CancelOrder(ctx, orderID)
	if errors.Is(err, repository.ErrAlreadyCancelled) {
		return nil, &constraint.Denial{Code: constraint.CodeAlreadyCancelled}, nil
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error cancelling order %d", orderID)
		return nil, nil, err
	}

	if err := s.publishOrderEvent(ctx, cancelledOrder, "cancelled"); err != nil {
		logger.Error().Err(err).Int("order_id", cancelledOrder.ID).Msg("Error publishing order event")
	}

	logger.Info().Int("order_id", orderID).Int("user_id", userID).Msg("Order cancelled")
	return cancelledOrder, nil, nil
}

// ListOrders returns the caller's orders, cancelled ones included.
func (s *OrderService) ListOrders(ctx context.Context, userID int) ([]*entity.Order, error) {
	orders, err := s.orderRepo.ListOrdersByUser(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error listing orders for user %d", userID)
		return nil, err
	}
	return orders, nil
}

// GetOrder returns one of the caller's orders.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int) (*entity.Order, *constraint.Denial, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &constraint.Denial{Code: constraint.CodeNotFound, Ingredient: fmt.Sprintf("order %d", orderID)}, nil
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting order by ID %d", orderID)
		return nil, nil, err
	}
	if order.UserID != userID {
		return nil, &constraint.Denial{Code: constraint.CodeForbidden}, nil
	}
	return order, nil, nil
}

func (s *OrderService) publishOrderEvent(ctx context.Context, order *entity.Order, key string) error {
	// if env is set to test, skip publishing
	if os.Getenv("ENV") == "test" {
		return nil
	}

	orderJSON, err := json.Marshal(order)
	if err != nil {
		return err
	}

	// order-confirmed-1 or order-cancelled-1
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%d", key, order.ID)),
		Value: orderJSON,
	}

	return s.kafkaWriter.WriteMessages(ctx, msg)
}

func (s *OrderService) validateIdempotentKey(ctx context.Context, key string) (bool, error) {
	// if env is set to test, return true
	if os.Getenv("ENV") == "test" {
		return true, nil
	}

	redisKey := fmt.Sprintf("idempotent-key:%s", key)
	val, err := s.rdb.Get(ctx, redisKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	if val != "" {
		return false, nil
	}

	return true, s.rdb.Set(ctx, redisKey, "exists", 24*time.Hour).Err()
}

func dedupe(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
