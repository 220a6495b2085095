package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"vintique.shop/internal/store"
)

type testEnv struct {
	pool  *pgxpool.Pool
	store *store.Store
}

func setupTest(t *testing.T, opts ...store.Option) *testEnv {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "db connection")
	t.Cleanup(pool.Close)

	st := store.New(pool, opts...)
	require.NoError(t, st.Migrate(ctx), "apply schema")

	_, err = pool.Exec(ctx, "TRUNCATE transactions, orders, cart, products, accounts, users RESTART IDENTITY CASCADE")
	require.NoError(t, err, "reset db")

	return &testEnv{pool: pool, store: st}
}

func ctxTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func seedUser(t *testing.T, env *testEnv, name string, balance string) store.User {
	t.Helper()

	ctx := ctxTimeout(t)
	u, err := env.store.CreateUser(ctx, store.CreateUserInput{
		Email:        fmt.Sprintf("%s@example.com", name),
		Username:     name,
		PasswordHash: "x",
	})
	require.NoError(t, err, "seed user")

	if balance != "" {
		_, err = env.store.SetBalance(ctx, u.ID, dec(t, balance))
		require.NoError(t, err, "seed balance")
	}
	return u
}

func seedProduct(t *testing.T, env *testEnv, price string, stock int) store.Product {
	t.Helper()

	desc := "a product"
	image := "https://res.cloudinary.com/demo/image/upload/v1/vintique/products/p.jpg"
	p, err := env.store.CreateProduct(ctxTimeout(t), store.CreateProductInput{
		Name:          "Product",
		Description:   &desc,
		Price:         dec(t, price),
		StockQuantity: stock,
		ImageURL:      &image,
	})
	require.NoError(t, err, "seed product")
	return p
}

func countRows(t *testing.T, env *testEnv, table string) int {
	t.Helper()

	var n int
	err := env.pool.QueryRow(ctxTimeout(t), "SELECT COUNT(*) FROM "+table).Scan(&n)
	require.NoError(t, err, "count %s", table)
	return n
}

func TestCreateUserCreatesAccount(t *testing.T) {
	env := setupTest(t)
	ctx := ctxTimeout(t)

	u := seedUser(t, env, "alice", "")

	acct, err := env.store.GetAccount(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, acct.Balance.IsZero(), "expected zero balance, got %s", acct.Balance)
}

func TestCreateUserConflict(t *testing.T) {
	env := setupTest(t)
	ctx := ctxTimeout(t)

	seedUser(t, env, "alice", "")

	_, err := env.store.CreateUser(ctx, store.CreateUserInput{
		Email:        "alice@example.com",
		Username:     "someone-else",
		PasswordHash: "x",
	})
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = env.store.CreateUser(ctx, store.CreateUserInput{
		Email:        "other@example.com",
		Username:     "alice",
		PasswordHash: "x",
	})
	require.ErrorIs(t, err, store.ErrConflict)

	require.Equal(t, 1, countRows(t, env, "users"))
	require.Equal(t, 1, countRows(t, env, "accounts"))
}

func TestGetUserNotFound(t *testing.T) {
	env := setupTest(t)

	_, err := env.store.GetUser(ctxTimeout(t), 42)
	require.ErrorIs(t, err, store.ErrUserNotFound)
	require.ErrorIs(t, err, store.ErrNotFound)
}
