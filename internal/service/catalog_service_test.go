package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInventoryRepo struct {
	reserved map[int]int
	released map[int]int
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{reserved: make(map[int]int), released: make(map[int]int)}
}

func (f *fakeInventoryRepo) Reserve(ctx context.Context, ingredientID, qty int) error {
	f.reserved[ingredientID] += qty
	return nil
}

func (f *fakeInventoryRepo) Release(ctx context.Context, ingredientID, qty int) error {
	f.released[ingredientID] += qty
	return nil
}

func TestListIngredientsWithoutCache(t *testing.T) {
	svc := NewCatalogService(newFakeCatalogRepo(), newFakeInventoryRepo(), nil)

	ingredients, err := svc.ListIngredients(context.Background())

	require.NoError(t, err)
	assert.Len(t, ingredients, 7)
}

func TestRestockIngredientReleasesStock(t *testing.T) {
	inventory := newFakeInventoryRepo()
	svc := NewCatalogService(newFakeCatalogRepo(), inventory, nil)

	require.NoError(t, svc.RestockIngredient(context.Background(), ham, 5))

	assert.Equal(t, 5, inventory.released[ham])
	assert.Empty(t, inventory.reserved)
}
