package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const cartColumns = "id, user_id, product_id, quantity, created_at, updated_at"

// ListCart returns the cart rows for userID, or the guest rows when userID is nil.
func (s *Store) ListCart(ctx context.Context, userID *int64) ([]CartItem, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+cartColumns+" FROM cart WHERE user_id IS NOT DISTINCT FROM $1 ORDER BY id", userID)
	if err != nil {
		return nil, storageErr("list cart", err)
	}
	defer rows.Close()

	items := []CartItem{}
	for rows.Next() {
		var c CartItem
		if err := rows.Scan(cartDest(&c)...); err != nil {
			return nil, storageErr("scan cart item", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list cart", err)
	}
	return items, nil
}

// AddToCart merges quantity into the existing (user, product) row or creates
// one. The product row is locked for the duration so concurrent adds for the
// same pair serialize and the merged quantity is checked against current stock.
func (s *Store) AddToCart(ctx context.Context, userID *int64, productID int64, quantity int) (CartItem, error) {
	if quantity <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return CartItem{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	product, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return CartItem{}, err
	}

	existing, err := findCartItem(ctx, tx, userID, productID)
	if err != nil && !errors.Is(err, ErrCartItemNotFound) {
		return CartItem{}, err
	}
	found := err == nil

	merged := quantity
	if found {
		merged += existing.Quantity
	}
	if product.StockQuantity < merged {
		return CartItem{}, ErrInsufficientStock
	}

	var c CartItem
	if found {
		c, err = setCartQuantity(ctx, tx, existing.ID, merged)
	} else {
		err = tx.QueryRow(ctx, `
			INSERT INTO cart (user_id, product_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING `+cartColumns,
			userID, productID, quantity,
		).Scan(cartDest(&c)...)
		if err != nil {
			if isUniqueViolation(err) {
				err = ErrConflict
			} else {
				err = storageErr("insert cart item", err)
			}
		}
	}
	if err != nil {
		return CartItem{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return CartItem{}, err
	}
	return c, nil
}

// UpdateCartItem sets an absolute quantity. When userID is set the row must
// belong to that user; guest callers skip the ownership check.
func (s *Store) UpdateCartItem(ctx context.Context, itemID int64, userID *int64, quantity int) (CartItem, error) {
	if quantity <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return CartItem{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	item, err := lockCartItem(ctx, tx, itemID)
	if err != nil {
		return CartItem{}, err
	}
	if !ownsCartItem(item, userID) {
		return CartItem{}, ErrForbidden
	}

	var stock int
	err = tx.QueryRow(ctx, "SELECT stock_quantity FROM products WHERE id = $1", item.ProductID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CartItem{}, ErrProductNotFound
		}
		return CartItem{}, storageErr("get stock", err)
	}
	if stock < quantity {
		return CartItem{}, ErrInsufficientStock
	}

	c, err := setCartQuantity(ctx, tx, itemID, quantity)
	if err != nil {
		return CartItem{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return CartItem{}, err
	}
	return c, nil
}

func (s *Store) RemoveCartItem(ctx context.Context, itemID int64, userID *int64) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	item, err := lockCartItem(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if !ownsCartItem(item, userID) {
		return ErrForbidden
	}

	if _, err := tx.Exec(ctx, "DELETE FROM cart WHERE id = $1", itemID); err != nil {
		return storageErr("delete cart item", err)
	}
	return commit(ctx, tx)
}

// ClearCart deletes every row for userID (or the guest rows) and reports how
// many were removed.
func (s *Store) ClearCart(ctx context.Context, userID *int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM cart WHERE user_id IS NOT DISTINCT FROM $1", userID)
	if err != nil {
		return 0, storageErr("clear cart", err)
	}
	return tag.RowsAffected(), nil
}

func ownsCartItem(item CartItem, userID *int64) bool {
	if userID == nil {
		return true
	}
	return item.UserID != nil && *item.UserID == *userID
}

func findCartItem(ctx context.Context, tx pgx.Tx, userID *int64, productID int64) (CartItem, error) {
	var c CartItem
	err := tx.QueryRow(ctx, `
		SELECT `+cartColumns+`
		FROM cart
		WHERE user_id IS NOT DISTINCT FROM $1 AND product_id = $2
		ORDER BY id
		LIMIT 1
		FOR UPDATE
	`, userID, productID).Scan(cartDest(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CartItem{}, ErrCartItemNotFound
		}
		return CartItem{}, storageErr("find cart item", err)
	}
	return c, nil
}

func lockCartItem(ctx context.Context, tx pgx.Tx, itemID int64) (CartItem, error) {
	var c CartItem
	err := tx.QueryRow(ctx, "SELECT "+cartColumns+" FROM cart WHERE id = $1 FOR UPDATE", itemID).Scan(cartDest(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CartItem{}, ErrCartItemNotFound
		}
		return CartItem{}, storageErr("lock cart item", err)
	}
	return c, nil
}

func setCartQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) (CartItem, error) {
	var c CartItem
	err := tx.QueryRow(ctx, `
		UPDATE cart
		SET quantity = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+cartColumns,
		quantity, itemID,
	).Scan(cartDest(&c)...)
	if err != nil {
		return CartItem{}, storageErr("update cart item", err)
	}
	return c, nil
}

func cartDest(c *CartItem) []any {
	return []any{
		&c.ID,
		&c.UserID,
		&c.ProductID,
		&c.Quantity,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}
