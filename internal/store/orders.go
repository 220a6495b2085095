package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	orderColumns       = "id, product_id, user_id, quantity, unit_price, amount, order_status, created_at, updated_at"
	transactionColumns = "id, order_id, payment_id, created_at, updated_at"
)

// CreateOrder checks out quantity units of productID for userID. Stock
// decrement, optional account debit, order, transaction record and cart
// reconciliation commit together or not at all. Locks are taken product row
// first, then account row.
func (s *Store) CreateOrder(ctx context.Context, userID, productID int64, quantity int) (Order, error) {
	if quantity <= 0 {
		return Order{}, ErrInvalidQuantity
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	product, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return Order{}, err
	}
	if product.StockQuantity < quantity {
		return Order{}, ErrInsufficientStock
	}

	unitPrice := product.Price
	amount := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if !ValidMoney(amount) {
		return Order{}, ErrInvalidQuantity
	}

	if s.debitOnCheckout {
		if _, err := debitAccount(ctx, tx, userID, amount); err != nil {
			return Order{}, err
		}
	}

	order, err := insertOrder(ctx, tx, userID, productID, quantity, unitPrice, amount)
	if err != nil {
		return Order{}, err
	}

	if _, err := insertTransaction(ctx, tx, order.ID, nil); err != nil {
		return Order{}, err
	}

	if _, err := addToStock(ctx, tx, productID, -quantity); err != nil {
		return Order{}, err
	}

	if err := reconcileCart(ctx, tx, userID, productID, quantity); err != nil {
		return Order{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id).Scan(orderDest(&o)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, storageErr("get order", err)
	}
	return o, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	return s.listOrders(ctx, "SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY id", userID)
}

func (s *Store) ListOrders(ctx context.Context) ([]Order, error) {
	return s.listOrders(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY id")
}

func (s *Store) listOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(orderDest(&o)...); err != nil {
			return nil, storageErr("scan order", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list orders", err)
	}
	return orders, nil
}

// UpdateOrderStatus is used by fulfilment; any non-empty status is accepted.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status string) (Order, error) {
	status = strings.TrimSpace(status)
	if status == "" || len(status) > 50 {
		return Order{}, ErrInvalidStatus
	}

	var o Order
	err := s.pool.QueryRow(ctx, `
		UPDATE orders
		SET order_status = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+orderColumns,
		status, id,
	).Scan(orderDest(&o)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, storageErr("update order status", err)
	}
	return o, nil
}

// CreateTransaction records an external payment reference against an order.
func (s *Store) CreateTransaction(ctx context.Context, orderID int64, paymentID *string) (Transaction, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return Transaction{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	t, err := insertTransaction(ctx, tx, orderID, paymentID)
	if err != nil {
		return Transaction{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, orderID int64) ([]Transaction, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE order_id = $1 ORDER BY id", orderID)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(transactionDest(&t)...); err != nil {
			return nil, storageErr("scan transaction", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transactions", err)
	}
	return txs, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, userID, productID int64, quantity int, unitPrice, amount decimal.Decimal) (Order, error) {
	var o Order
	err := tx.QueryRow(ctx, `
		INSERT INTO orders (product_id, user_id, quantity, unit_price, amount, order_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderColumns,
		productID,
		userID,
		quantity,
		unitPrice,
		amount,
		OrderStatusPending,
	).Scan(orderDest(&o)...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Order{}, ErrUserNotFound
		}
		if isNumericOverflow(err) {
			return Order{}, ErrInvalidQuantity
		}
		return Order{}, storageErr("insert order", err)
	}
	return o, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, orderID int64, paymentID *string) (Transaction, error) {
	var t Transaction
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (order_id, payment_id)
		VALUES ($1, $2)
		RETURNING `+transactionColumns,
		orderID, paymentID,
	).Scan(transactionDest(&t)...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Transaction{}, ErrOrderNotFound
		}
		return Transaction{}, storageErr("insert transaction", err)
	}
	return t, nil
}

// reconcileCart removes the purchased quantity from the buyer's cart row for
// the product: the row goes away when it held no more than was bought.
func reconcileCart(ctx context.Context, tx pgx.Tx, userID, productID int64, quantity int) error {
	item, err := findCartItem(ctx, tx, &userID, productID)
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			return nil
		}
		return err
	}

	if item.Quantity <= quantity {
		if _, err := tx.Exec(ctx, "DELETE FROM cart WHERE id = $1", item.ID); err != nil {
			return storageErr("delete cart item", err)
		}
		return nil
	}

	_, err = setCartQuantity(ctx, tx, item.ID, item.Quantity-quantity)
	return err
}

func orderDest(o *Order) []any {
	return []any{
		&o.ID,
		&o.ProductID,
		&o.UserID,
		&o.Quantity,
		&o.UnitPrice,
		&o.Amount,
		&o.OrderStatus,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

func transactionDest(t *Transaction) []any {
	return []any{
		&t.ID,
		&t.OrderID,
		&t.PaymentID,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}
