package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"restaurant-service/internal/entity"
	"restaurant-service/internal/repository"
)

// IngredientCacheKey is the redis key for the cached ingredient listing. The
// kafka consumer deletes it whenever an order event changes stock.
const IngredientCacheKey = "catalog:ingredients"

const ingredientCacheTTL = 1 * time.Minute

// CatalogService serves the browsable catalog. The ingredient listing is
// cached; decisions and submissions never read the cache, only fresh
// snapshots.
type CatalogService struct {
	catalogRepo   repository.CatalogRepositoryInterface
	inventoryRepo repository.InventoryRepositoryInterface
	rdb           *redis.Client
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(catalogRepo repository.CatalogRepositoryInterface, inventoryRepo repository.InventoryRepositoryInterface, rdb *redis.Client) *CatalogService {
	return &CatalogService{
		catalogRepo:   catalogRepo,
		inventoryRepo: inventoryRepo,
		rdb:           rdb,
	}
}

func (s *CatalogService) ListDishes(ctx context.Context) ([]entity.Dish, error) {
	dishes, err := s.catalogRepo.ListDishes(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing dishes")
		return nil, err
	}
	return dishes, nil
}

func (s *CatalogService) ListIngredients(ctx context.Context) ([]entity.Ingredient, error) {
	// Read from cache
	if cached, err := s.cachedIngredients(ctx); err == nil && cached != nil {
		return cached, nil
	}

	ingredients, err := s.catalogRepo.ListIngredients(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing ingredients")
		return nil, err
	}

	// Write to cache
	if err := s.cacheIngredients(ctx, ingredients); err != nil {
		logger.Error().Err(err).Msg("Error caching ingredient listing")
	}

	return ingredients, nil
}

// SizeConfig returns the size table (base price and ingredient cap per size).
func (s *CatalogService) SizeConfig() map[entity.Size]entity.SizeConfig {
	return entity.SizeConfigs()
}

// RestockIngredient adds qty units to a limited-stock ingredient and drops
// the cached listing. Unlimited ingredients are a no-op.
func (s *CatalogService) RestockIngredient(ctx context.Context, ingredientID, qty int) error {
	if err := s.inventoryRepo.Release(ctx, ingredientID, qty); err != nil {
		logger.Error().Err(err).Msgf("Error restocking ingredient %d", ingredientID)
		return err
	}
	if s.rdb != nil {
		if err := s.rdb.Del(ctx, IngredientCacheKey).Err(); err != nil {
			logger.Error().Err(err).Msg("Error invalidating ingredient cache")
		}
	}
	logger.Info().Int("ingredient_id", ingredientID).Int("qty", qty).Msg("Ingredient restocked")
	return nil
}

// PreWarmCache fills the ingredient cache at startup.
func (s *CatalogService) PreWarmCache(ctx context.Context) error {
	ingredients, err := s.catalogRepo.ListIngredients(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing ingredients")
		return err
	}
	return s.cacheIngredients(ctx, ingredients)
}

func (s *CatalogService) cachedIngredients(ctx context.Context) ([]entity.Ingredient, error) {
	if s.rdb == nil {
		return nil, nil
	}
	cached, err := s.rdb.Get(ctx, IngredientCacheKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logger.Error().Err(err).Msg("Error reading ingredient cache")
		return nil, err
	}

	var ingredients []entity.Ingredient
	if err := json.Unmarshal([]byte(cached), &ingredients); err != nil {
		logger.Error().Err(err).Msg("Error unmarshalling cached ingredients")
		return nil, err
	}
	return ingredients, nil
}

func (s *CatalogService) cacheIngredients(ctx context.Context, ingredients []entity.Ingredient) error {
	if s.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ingredients)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, IngredientCacheKey, payload, ingredientCacheTTL).Err()
}
