package entity

import "time"

const (
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

// Order is a submitted order. Total is frozen at submission time and never
// re-derived from current catalog prices. Cancelled orders keep their
// ingredient list so stock can be restored exactly once.
type Order struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	DishID        int       `json:"dish_id"`
	Size          Size      `json:"size"`
	Total         float64   `json:"total"`
	Status        string    `json:"status"` // "confirmed" or "cancelled"
	IngredientIDs []int     `json:"ingredient_ids"`
	IdempotentKey string    `json:"idempotent_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

/*
Mysql Tables

CREATE TABLE orders (
	id INT AUTO_INCREMENT PRIMARY KEY,
	user_id INT NOT NULL,
	dish_id INT NOT NULL,
	size VARCHAR(10) NOT NULL,
	total DOUBLE NOT NULL,
	status VARCHAR(20) NOT NULL,
	idempotent_key VARCHAR(255) UNIQUE NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE order_ingredients (
	id INT AUTO_INCREMENT PRIMARY KEY,
	order_id INT NOT NULL REFERENCES orders(id),
	ingredient_id INT NOT NULL REFERENCES ingredients(id)
);

*/
