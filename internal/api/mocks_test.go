package api_test

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"vintique.shop/internal/catalog"
	"vintique.shop/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) CreateUser(ctx context.Context, input store.CreateUserInput) (store.User, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(store.User), args.Error(1)
}

func (m *mockStore) GetUser(ctx context.Context, id int64) (store.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.User), args.Error(1)
}

func (m *mockStore) ListUsers(ctx context.Context) ([]store.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.User), args.Error(1)
}

func (m *mockStore) GetAccount(ctx context.Context, userID int64) (store.Account, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(store.Account), args.Error(1)
}

func (m *mockStore) Fund(ctx context.Context, userID int64, amount decimal.Decimal) (store.Account, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(store.Account), args.Error(1)
}

func (m *mockStore) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (store.Account, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(store.Account), args.Error(1)
}

func (m *mockStore) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) (store.Account, error) {
	args := m.Called(ctx, userID, balance)
	return args.Get(0).(store.Account), args.Error(1)
}

func (m *mockStore) GetProduct(ctx context.Context, id int64) (store.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.Product), args.Error(1)
}

func (m *mockStore) AdjustStock(ctx context.Context, id int64, delta int) (store.Product, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(store.Product), args.Error(1)
}

func (m *mockStore) ListProducts(ctx context.Context) ([]store.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.Product), args.Error(1)
}

func (m *mockStore) ListCart(ctx context.Context, userID *int64) ([]store.CartItem, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]store.CartItem), args.Error(1)
}

func (m *mockStore) AddToCart(ctx context.Context, userID *int64, productID int64, quantity int) (store.CartItem, error) {
	args := m.Called(ctx, userID, productID, quantity)
	return args.Get(0).(store.CartItem), args.Error(1)
}

func (m *mockStore) UpdateCartItem(ctx context.Context, itemID int64, userID *int64, quantity int) (store.CartItem, error) {
	args := m.Called(ctx, itemID, userID, quantity)
	return args.Get(0).(store.CartItem), args.Error(1)
}

func (m *mockStore) RemoveCartItem(ctx context.Context, itemID int64, userID *int64) error {
	return m.Called(ctx, itemID, userID).Error(0)
}

func (m *mockStore) ClearCart(ctx context.Context, userID *int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) CreateOrder(ctx context.Context, userID, productID int64, quantity int) (store.Order, error) {
	args := m.Called(ctx, userID, productID, quantity)
	return args.Get(0).(store.Order), args.Error(1)
}

func (m *mockStore) GetOrder(ctx context.Context, id int64) (store.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.Order), args.Error(1)
}

func (m *mockStore) ListOrdersByUser(ctx context.Context, userID int64) ([]store.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]store.Order), args.Error(1)
}

func (m *mockStore) ListOrders(ctx context.Context) ([]store.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.Order), args.Error(1)
}

func (m *mockStore) UpdateOrderStatus(ctx context.Context, id int64, status string) (store.Order, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(store.Order), args.Error(1)
}

func (m *mockStore) CreateTransaction(ctx context.Context, orderID int64, paymentID *string) (store.Transaction, error) {
	args := m.Called(ctx, orderID, paymentID)
	return args.Get(0).(store.Transaction), args.Error(1)
}

func (m *mockStore) ListTransactions(ctx context.Context, orderID int64) ([]store.Transaction, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]store.Transaction), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Create(ctx context.Context, input catalog.CreateProductInput) (store.Product, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(store.Product), args.Error(1)
}

func (m *mockCatalog) Update(ctx context.Context, id int64, input catalog.UpdateProductInput) (store.Product, error) {
	args := m.Called(ctx, id, input)
	return args.Get(0).(store.Product), args.Error(1)
}

func (m *mockCatalog) Delete(ctx context.Context, id int64) (store.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.Product), args.Error(1)
}

type mockGuard struct {
	mock.Mock
}

func (m *mockGuard) Acquire(ctx context.Context, userID int64, key string) error {
	return m.Called(ctx, userID, key).Error(0)
}

func (m *mockGuard) Release(ctx context.Context, userID int64, key string) error {
	return m.Called(ctx, userID, key).Error(0)
}
