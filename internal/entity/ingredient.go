package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ingredient is a catalog entry that can be added to an order. Requires and
// IncompatibleWith reference other ingredient IDs; incompatibility is
// symmetric regardless of which side the edge is stored on.
type Ingredient struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	Stock            Stock   `json:"stock"`
	Requires         []int   `json:"requires"`
	IncompatibleWith []int   `json:"incompatible_with"`
}

// Stock is the remaining quantity of an ingredient. The zero value is
// unlimited stock; it serializes to JSON null like the nullable DB column.
type Stock struct {
	limited bool
	count   int
}

func UnlimitedStock() Stock {
	return Stock{}
}

func LimitedStock(count int) Stock {
	return Stock{limited: true, count: count}
}

func (s Stock) Unlimited() bool {
	return !s.limited
}

// Count is only meaningful for limited stock.
func (s Stock) Count() int {
	return s.count
}

// Available reports whether at least one unit can still be reserved.
func (s Stock) Available() bool {
	return !s.limited || s.count > 0
}

func (s Stock) String() string {
	if !s.limited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", s.count)
}

func (s Stock) MarshalJSON() ([]byte, error) {
	if !s.limited {
		return []byte("null"), nil
	}
	return json.Marshal(s.count)
}

func (s *Stock) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = UnlimitedStock()
		return nil
	}
	var count int
	if err := json.Unmarshal(data, &count); err != nil {
		return err
	}
	*s = LimitedStock(count)
	return nil
}

/*
Mysql Tables

CREATE TABLE ingredients (
	id INT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(100) NOT NULL UNIQUE,
	price DOUBLE NOT NULL,
	stock INT NULL -- NULL means unlimited
);

CREATE TABLE ingredient_requirements (
	ingredient_id INT NOT NULL REFERENCES ingredients(id),
	requires_id INT NOT NULL REFERENCES ingredients(id)
);

CREATE TABLE ingredient_conflicts (
	ingredient_a INT NOT NULL REFERENCES ingredients(id),
	ingredient_b INT NOT NULL REFERENCES ingredients(id)
	-- stored with ingredient_a < ingredient_b
);

*/
