package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"restaurant-service/internal/entity"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrAlreadyCancelled = errors.New("order already cancelled")
)

type OrderRepositoryInterface interface {
	CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error)
	GetOrderByID(ctx context.Context, id int) (*entity.Order, error)
	ListOrdersByUser(ctx context.Context, userID int) ([]*entity.Order, error)
	CancelOrder(ctx context.Context, id int) (*entity.Order, error)
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db}
}

// CreateOrder persists the order, its ingredient rows and the stock
// decrements as one transaction. A failed reservation rolls the whole order
// back and surfaces *OutOfStockError naming the ingredient, so a confirmed
// order can never exist with an unreserved ingredient.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	orderQuery := `INSERT INTO orders (user_id, dish_id, size, total, status, idempotent_key) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, orderQuery,
		order.UserID, order.DishID, order.Size, order.Total, order.Status, order.IdempotentKey)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if len(order.IngredientIDs) > 0 {
		// Insert junction rows with batch
		junctionQuery := `INSERT INTO order_ingredients (order_id, ingredient_id) VALUES `
		var values []interface{}
		for _, ingredientID := range order.IngredientIDs {
			junctionQuery += "(?, ?),"
			values = append(values, orderID, ingredientID)
		}
		junctionQuery = junctionQuery[:len(junctionQuery)-1]

		if _, err := tx.ExecContext(ctx, junctionQuery, values...); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Reserve in ascending id order so concurrent transactions lock the
	// ingredient rows in the same order and cannot deadlock.
	reserveOrder := append([]int(nil), order.IngredientIDs...)
	sort.Ints(reserveOrder)
	for _, ingredientID := range reserveOrder {
		if err := reserveStock(ctx, tx, ingredientID, 1); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.ID = int(orderID)
	return order, nil
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id int) (*entity.Order, error) {
	order := &entity.Order{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, dish_id, size, total, status, idempotent_key, created_at FROM orders WHERE id = ?`, id).
		Scan(&order.ID, &order.UserID, &order.DishID, &order.Size, &order.Total,
			&order.Status, &order.IdempotentKey, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	order.IngredientIDs, err = r.orderIngredients(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID int) ([]*entity.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, dish_id, size, total, status, idempotent_key, created_at FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		order := &entity.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.DishID, &order.Size, &order.Total,
			&order.Status, &order.IdempotentKey, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		order.IngredientIDs, err = r.orderIngredients(ctx, r.db, order.ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// CancelOrder flips a confirmed order to cancelled and restores one unit of
// stock per ingredient, all in one transaction. The row-locked status read
// makes a second cancellation fail with ErrAlreadyCancelled instead of
// releasing stock twice.
func (r *OrderRepository) CancelOrder(ctx context.Context, id int) (*entity.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	order := &entity.Order{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, dish_id, size, total, status, idempotent_key, created_at FROM orders WHERE id = ? FOR UPDATE`, id).
		Scan(&order.ID, &order.UserID, &order.DishID, &order.Size, &order.Total,
			&order.Status, &order.IdempotentKey, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, ErrOrderNotFound
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if order.Status == entity.OrderStatusCancelled {
		tx.Rollback()
		return nil, ErrAlreadyCancelled
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, entity.OrderStatusCancelled, id); err != nil {
		tx.Rollback()
		return nil, err
	}

	order.IngredientIDs, err = r.orderIngredients(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, ingredientID := range order.IngredientIDs {
		if err := releaseStock(ctx, tx, ingredientID, 1); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.Status = entity.OrderStatusCancelled
	return order, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *OrderRepository) orderIngredients(ctx context.Context, q queryer, orderID int) ([]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ingredient_id FROM order_ingredients WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
