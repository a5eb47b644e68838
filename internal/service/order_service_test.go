package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-service/internal/constraint"
	"restaurant-service/internal/entity"
	"restaurant-service/internal/repository"
)

const (
	tomatoes   = 1
	olives     = 2
	eggs       = 3
	mushrooms  = 4
	ham        = 5
	mozzarella = 6
	parmesan   = 7
)

type fakeCatalogRepo struct {
	ingredients []entity.Ingredient
	dishes      map[int]entity.Dish
	dishErr     error
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		ingredients: []entity.Ingredient{
			{ID: tomatoes, Name: "tomatoes", Price: 1, Stock: entity.LimitedStock(5), Requires: []int{olives}},
			{ID: olives, Name: "olives", Price: 0.8, Stock: entity.UnlimitedStock()},
			{ID: eggs, Name: "eggs", Price: 1, Stock: entity.LimitedStock(12), IncompatibleWith: []int{mushrooms}},
			{ID: mushrooms, Name: "mushrooms", Price: 1.2, Stock: entity.LimitedStock(15)},
			{ID: ham, Name: "ham", Price: 2.5, Stock: entity.LimitedStock(1), Requires: []int{mozzarella}},
			{ID: mozzarella, Name: "mozzarella", Price: 1.5, Stock: entity.UnlimitedStock()},
			{ID: parmesan, Name: "parmesan", Price: 2, Stock: entity.LimitedStock(0)},
		},
		dishes: map[int]entity.Dish{1: {ID: 1, Name: "Margherita"}},
	}
}

func (f *fakeCatalogRepo) ListDishes(ctx context.Context) ([]entity.Dish, error) {
	var dishes []entity.Dish
	for _, d := range f.dishes {
		dishes = append(dishes, d)
	}
	return dishes, nil
}

func (f *fakeCatalogRepo) GetDishByID(ctx context.Context, id int) (*entity.Dish, error) {
	if f.dishErr != nil {
		return nil, f.dishErr
	}
	dish, ok := f.dishes[id]
	if !ok {
		return nil, repository.ErrDishNotFound
	}
	return &dish, nil
}

func (f *fakeCatalogRepo) ListIngredients(ctx context.Context) ([]entity.Ingredient, error) {
	return f.ingredients, nil
}

func (f *fakeCatalogRepo) Snapshot(ctx context.Context) (constraint.Catalog, error) {
	byID := make(map[int]entity.Ingredient, len(f.ingredients))
	for _, ing := range f.ingredients {
		byID[ing.ID] = ing
	}
	return constraint.Catalog{Ingredients: byID, Sizes: entity.SizeConfigs()}, nil
}

type fakeOrderRepo struct {
	orders    map[int]*entity.Order
	nextID    int
	createErr error
	releases  map[int]int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:   make(map[int]*entity.Order),
		nextID:   1,
		releases: make(map[int]int),
	}
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	order.ID = f.nextID
	f.nextID++
	stored := *order
	f.orders[order.ID] = &stored
	return order, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int) (*entity.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) ListOrdersByUser(ctx context.Context, userID int) ([]*entity.Order, error) {
	var orders []*entity.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			copied := *order
			orders = append(orders, &copied)
		}
	}
	return orders, nil
}

func (f *fakeOrderRepo) CancelOrder(ctx context.Context, id int) (*entity.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if order.Status == entity.OrderStatusCancelled {
		return nil, repository.ErrAlreadyCancelled
	}
	order.Status = entity.OrderStatusCancelled
	for _, ingredientID := range order.IngredientIDs {
		f.releases[ingredientID]++
	}
	copied := *order
	return &copied, nil
}

func newTestOrderService(t *testing.T) (*OrderService, *fakeOrderRepo) {
	t.Setenv("ENV", "test")
	orderRepo := newFakeOrderRepo()
	return NewOrderService(orderRepo, newFakeCatalogRepo(), nil, nil), orderRepo
}

func TestSubmitOrderConfirmsWithFrozenTotal(t *testing.T) {
	svc, repo := newTestOrderService(t)

	order, denials, err := svc.SubmitOrder(context.Background(), 42, SubmitOrderRequest{
		DishID:        1,
		Size:          entity.SizeSmall,
		IngredientIDs: []int{tomatoes, olives},
	})

	require.NoError(t, err)
	require.Empty(t, denials)
	require.NotNil(t, order)
	assert.Equal(t, entity.OrderStatusConfirmed, order.Status)
	assert.Equal(t, 42, order.UserID)
	assert.InDelta(t, 6.8, order.Total, 1e-9) // 5 base + 1 + 0.8
	assert.Len(t, repo.orders, 1)
}

func TestSubmitOrderReportsEveryViolation(t *testing.T) {
	svc, repo := newTestOrderService(t)

	// over the small cap, parmesan out of stock, tomatoes missing olives,
	// eggs clash with mushrooms
	order, denials, err := svc.SubmitOrder(context.Background(), 42, SubmitOrderRequest{
		DishID:        1,
		Size:          entity.SizeSmall,
		IngredientIDs: []int{tomatoes, eggs, mushrooms, parmesan},
	})

	require.NoError(t, err)
	require.Nil(t, order)
	assert.Len(t, denials, 4)
	assert.Empty(t, repo.orders)
}

func TestSubmitOrderMissingDependencyDenied(t *testing.T) {
	svc, repo := newTestOrderService(t)

	order, denials, err := svc.SubmitOrder(context.Background(), 42, SubmitOrderRequest{
		DishID:        1,
		Size:          entity.SizeSmall,
		IngredientIDs: []int{tomatoes},
	})

	require.NoError(t, err)
	require.Nil(t, order)
	require.Len(t, denials, 1)
	assert.Equal(t, constraint.CodeMissingDependency, denials[0].Code)
	assert.Empty(t, repo.orders)
}

func TestSubmitOrderUnknownDishDenied(t *testing.T) {
	svc, _ := newTestOrderService(t)

	order, denials, err := svc.SubmitOrder(context.Background(), 42, SubmitOrderRequest{
		DishID:        99,
		Size:          entity.SizeSmall,
		IngredientIDs: []int{olives},
	})

	require.NoError(t, err)
	require.Nil(t, order)
	require.Len(t, denials, 1)
	assert.Equal(t, constraint.CodeNotFound, denials[0].Code)
}

func TestSubmitOrderStockRaceBecomesDenial(t *testing.T) {
	svc, repo := newTestOrderService(t)
	// another submission took the last unit between validation and commit
	repo.createErr = &repository.OutOfStockError{IngredientID: ham, Name: "ham"}

	order, denials, err := svc.SubmitOrder(context.Background(), 42, SubmitOrderRequest{
		DishID:        1,
		Size:          entity.SizeSmall,
		IngredientIDs: []int{ham, mozzarella},
	})

	require.NoError(t, err)
	require.Nil(t, order)
	require.Len(t, denials, 1)
	assert.Equal(t, constraint.CodeOutOfStock, denials[0].Code)
	assert.Equal(t, "ham", denials[0].Ingredient)
	assert.Empty(t, repo.orders)
}

func submitConfirmedOrder(t *testing.T, svc *OrderService, userID int) *entity.Order {
	t.Helper()
	order, denials, err := svc.SubmitOrder(context.Background(), userID, SubmitOrderRequest{
		DishID:        1,
		Size:          entity.SizeMedium,
		IngredientIDs: []int{tomatoes, olives, mozzarella, mushrooms},
	})
	require.NoError(t, err)
	require.Empty(t, denials)
	return order
}

func TestCancelOrderReleasesStockOnce(t *testing.T) {
	svc, repo := newTestOrderService(t)
	order := submitConfirmedOrder(t, svc, 42)

	cancelled, denial, err := svc.CancelOrder(context.Background(), 42, order.ID, true)
	require.NoError(t, err)
	require.Nil(t, denial)
	assert.Equal(t, entity.OrderStatusCancelled, cancelled.Status)
	for _, ingredientID := range order.IngredientIDs {
		assert.Equal(t, 1, repo.releases[ingredientID])
	}

	// second cancel is rejected, not a no-op
	_, denial, err = svc.CancelOrder(context.Background(), 42, order.ID, true)
	require.NoError(t, err)
	require.NotNil(t, denial)
	assert.Equal(t, constraint.CodeAlreadyCancelled, denial.Code)
	for _, ingredientID := range order.IngredientIDs {
		assert.Equal(t, 1, repo.releases[ingredientID])
	}
}

func TestCancelOrderRequiresSecondFactor(t *testing.T) {
	svc, repo := newTestOrderService(t)
	order := submitConfirmedOrder(t, svc, 42)

	cancelled, denial, err := svc.CancelOrder(context.Background(), 42, order.ID, false)

	require.NoError(t, err)
	require.Nil(t, cancelled)
	require.NotNil(t, denial)
	assert.Equal(t, constraint.CodeForbidden, denial.Code)
	assert.Equal(t, entity.OrderStatusConfirmed, repo.orders[order.ID].Status)
	assert.Empty(t, repo.releases)
}

func TestCancelOrderRequiresOwnership(t *testing.T) {
	svc, repo := newTestOrderService(t)
	order := submitConfirmedOrder(t, svc, 42)

	cancelled, denial, err := svc.CancelOrder(context.Background(), 7, order.ID, true)

	require.NoError(t, err)
	require.Nil(t, cancelled)
	require.NotNil(t, denial)
	assert.Equal(t, constraint.CodeForbidden, denial.Code)
	assert.Equal(t, entity.OrderStatusConfirmed, repo.orders[order.ID].Status)
}

func TestCancelOrderNotFound(t *testing.T) {
	svc, _ := newTestOrderService(t)

	cancelled, denial, err := svc.CancelOrder(context.Background(), 42, 123, true)

	require.NoError(t, err)
	require.Nil(t, cancelled)
	require.NotNil(t, denial)
	assert.Equal(t, constraint.CodeNotFound, denial.Code)
}

func TestGetOrderHidesOtherUsers(t *testing.T) {
	svc, _ := newTestOrderService(t)
	order := submitConfirmedOrder(t, svc, 42)

	_, denial, err := svc.GetOrder(context.Background(), 7, order.ID)

	require.NoError(t, err)
	require.NotNil(t, denial)
	assert.Equal(t, constraint.CodeForbidden, denial.Code)
}

func TestConfigureAddUsesSnapshot(t *testing.T) {
	svc, _ := newTestOrderService(t)

	decision, err := svc.ConfigureAdd(context.Background(), constraint.Selection{Size: entity.SizeSmall}, tomatoes)

	require.NoError(t, err)
	require.True(t, decision.Allowed)
	assert.ElementsMatch(t, []int{tomatoes, olives}, decision.ToAdd)
}

func TestSubmitOrderDishLookupFailurePropagates(t *testing.T) {
	t.Setenv("ENV", "test")
	catalogRepo := newFakeCatalogRepo()
	catalogRepo.dishErr = errors.New("driver: bad connection")
	svc := NewOrderService(newFakeOrderRepo(), catalogRepo, nil, nil)

	order, denials, err := svc.SubmitOrder(context.Background(), 42, SubmitOrderRequest{
		DishID:        1,
		Size:          entity.SizeSmall,
		IngredientIDs: []int{olives},
	})

	// an infrastructure failure is an error, never a not-found denial
	require.Error(t, err)
	assert.Nil(t, order)
	assert.Empty(t, denials)
}

func TestConfigureAddDeduplicatesSelection(t *testing.T) {
	svc, _ := newTestOrderService(t)

	// 3 raw entries but only 2 unique; adding eggs fits the small cap of 3
	sel := constraint.Selection{Size: entity.SizeSmall, Ingredients: []int{olives, olives, mozzarella}}
	decision, err := svc.ConfigureAdd(context.Background(), sel, eggs)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestConfigureSizeChangeDeduplicatesSelection(t *testing.T) {
	svc, _ := newTestOrderService(t)

	sel := constraint.Selection{Size: entity.SizeMedium, Ingredients: []int{olives, olives, mozzarella, mozzarella}}
	decision, err := svc.ConfigureSizeChange(context.Background(), sel, entity.SizeSmall)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestSubmitOrderReservesInAscendingOrder(t *testing.T) {
	svc, repo := newTestOrderService(t)

	order, denials, err := svc.SubmitOrder(context.Background(), 42, SubmitOrderRequest{
		DishID:        1,
		Size:          entity.SizeSmall,
		IngredientIDs: []int{mushrooms, olives},
	})

	require.NoError(t, err)
	require.Empty(t, denials)
	assert.Equal(t, []int{olives, mushrooms}, order.IngredientIDs)
	assert.Len(t, repo.orders, 1)
}

func TestSubmitOrderDeduplicatesIngredients(t *testing.T) {
	svc, repo := newTestOrderService(t)

	order, denials, err := svc.SubmitOrder(context.Background(), 42, SubmitOrderRequest{
		DishID:        1,
		Size:          entity.SizeSmall,
		IngredientIDs: []int{olives, olives, mozzarella},
	})

	require.NoError(t, err)
	require.Empty(t, denials)
	assert.Equal(t, []int{olives, mozzarella}, order.IngredientIDs)
	assert.Len(t, repo.orders, 1)
}
