package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// OutOfStockError is returned when a reservation cannot be satisfied. It is
// the only reservation failure callers are expected to handle as a business
// outcome rather than an infrastructure fault.
type OutOfStockError struct {
	IngredientID int
	Name         string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("ingredient %q (id %d) is out of stock", e.Name, e.IngredientID)
}

// dbtx is satisfied by *sql.DB and *sql.Tx so reservations can run either
// standalone or inside an order transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// reserveStock decrements stock by qty iff enough remains. The conditional
// UPDATE makes the check and the decrement one statement, so concurrent
// reservations serialize on the row and stock can never go negative.
// Unlimited (NULL) stock is a successful no-op.
func reserveStock(ctx context.Context, ex dbtx, ingredientID, qty int) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE ingredients SET stock = stock - ? WHERE id = ? AND stock >= ?`,
		qty, ingredientID, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var (
		name  string
		stock sql.NullInt64
	)
	err = ex.QueryRowContext(ctx, `SELECT name, stock FROM ingredients WHERE id = ?`, ingredientID).
		Scan(&name, &stock)
	if err != nil {
		return err
	}
	if !stock.Valid {
		// unlimited stock, nothing to decrement
		return nil
	}
	return &OutOfStockError{IngredientID: ingredientID, Name: name}
}

// releaseStock restores qty units. Unlimited stock is untouched; restoring
// beyond a previous maximum is not guarded.
func releaseStock(ctx context.Context, ex dbtx, ingredientID, qty int) error {
	_, err := ex.ExecContext(ctx,
		`UPDATE ingredients SET stock = stock + ? WHERE id = ? AND stock IS NOT NULL`,
		qty, ingredientID)
	return err
}

type InventoryRepositoryInterface interface {
	Reserve(ctx context.Context, ingredientID, qty int) error
	Release(ctx context.Context, ingredientID, qty int) error
}

// InventoryRepository exposes standalone reserve/release for callers outside
// an order transaction. Order confirmation and cancellation use the same
// statements through their own transaction.
type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db}
}

func (r *InventoryRepository) Reserve(ctx context.Context, ingredientID, qty int) error {
	return reserveStock(ctx, r.db, ingredientID, qty)
}

func (r *InventoryRepository) Release(ctx context.Context, ingredientID, qty int) error {
	return releaseStock(ctx, r.db, ingredientID, qty)
}
