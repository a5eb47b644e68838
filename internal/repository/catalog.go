package repository

import (
	"context"
	"database/sql"
	"errors"

	"restaurant-service/internal/constraint"
	"restaurant-service/internal/entity"
)

var ErrDishNotFound = errors.New("dish not found")

type CatalogRepositoryInterface interface {
	ListDishes(ctx context.Context) ([]entity.Dish, error)
	GetDishByID(ctx context.Context, id int) (*entity.Dish, error)
	ListIngredients(ctx context.Context) ([]entity.Ingredient, error)
	Snapshot(ctx context.Context) (constraint.Catalog, error)
}

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db}
}

func (r *CatalogRepository) ListDishes(ctx context.Context) ([]entity.Dish, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM dishes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dishes []entity.Dish
	for rows.Next() {
		var dish entity.Dish
		if err := rows.Scan(&dish.ID, &dish.Name); err != nil {
			return nil, err
		}
		dishes = append(dishes, dish)
	}
	return dishes, rows.Err()
}

func (r *CatalogRepository) GetDishByID(ctx context.Context, id int) (*entity.Dish, error) {
	dish := &entity.Dish{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM dishes WHERE id = ?`, id).Scan(&dish.ID, &dish.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDishNotFound
	}
	if err != nil {
		return nil, err
	}
	return dish, nil
}

// ListIngredients returns every ingredient with its stock and both edge
// sets. Conflict pairs are stored once (ingredient_a < ingredient_b) and
// expanded to both directions here.
func (r *CatalogRepository) ListIngredients(ctx context.Context) ([]entity.Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, price, stock FROM ingredients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingredients []entity.Ingredient
	index := make(map[int]int)
	for rows.Next() {
		var (
			ing   entity.Ingredient
			stock sql.NullInt64
		)
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Price, &stock); err != nil {
			return nil, err
		}
		if stock.Valid {
			ing.Stock = entity.LimitedStock(int(stock.Int64))
		} else {
			ing.Stock = entity.UnlimitedStock()
		}
		index[ing.ID] = len(ingredients)
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reqRows, err := r.db.QueryContext(ctx,
		`SELECT ingredient_id, requires_id FROM ingredient_requirements ORDER BY ingredient_id, requires_id`)
	if err != nil {
		return nil, err
	}
	defer reqRows.Close()
	for reqRows.Next() {
		var ingredientID, requiresID int
		if err := reqRows.Scan(&ingredientID, &requiresID); err != nil {
			return nil, err
		}
		if i, ok := index[ingredientID]; ok {
			ingredients[i].Requires = append(ingredients[i].Requires, requiresID)
		}
	}
	if err := reqRows.Err(); err != nil {
		return nil, err
	}

	conflictRows, err := r.db.QueryContext(ctx,
		`SELECT ingredient_a, ingredient_b FROM ingredient_conflicts ORDER BY ingredient_a, ingredient_b`)
	if err != nil {
		return nil, err
	}
	defer conflictRows.Close()
	for conflictRows.Next() {
		var a, b int
		if err := conflictRows.Scan(&a, &b); err != nil {
			return nil, err
		}
		if i, ok := index[a]; ok {
			ingredients[i].IncompatibleWith = append(ingredients[i].IncompatibleWith, b)
		}
		if i, ok := index[b]; ok {
			ingredients[i].IncompatibleWith = append(ingredients[i].IncompatibleWith, a)
		}
	}
	if err := conflictRows.Err(); err != nil {
		return nil, err
	}

	return ingredients, nil
}

// Snapshot builds the point-in-time catalog the constraint engine decides
// against.
func (r *CatalogRepository) Snapshot(ctx context.Context) (constraint.Catalog, error) {
	ingredients, err := r.ListIngredients(ctx)
	if err != nil {
		return constraint.Catalog{}, err
	}
	byID := make(map[int]entity.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		byID[ing.ID] = ing
	}
	return constraint.Catalog{
		Ingredients: byID,
		Sizes:       entity.SizeConfigs(),
	}, nil
}
