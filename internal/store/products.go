package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const productColumns = "id, name, description, price, stock_quantity, image_url, created_at, updated_at"

func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id).Scan(productDest(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, storageErr("get product", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, storageErr("list products", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(productDest(&p)...); err != nil {
			return nil, storageErr("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list products", err)
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	if !ValidMoney(input.Price) {
		return Product{}, ErrInvalidProduct
	}
	var p Product
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock_quantity, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+productColumns,
		input.Name,
		input.Description,
		input.Price,
		input.StockQuantity,
		input.ImageURL,
	).Scan(productDest(&p)...)
	if err != nil {
		if isCheckViolation(err) || isNumericOverflow(err) {
			return Product{}, ErrInvalidProduct
		}
		return Product{}, storageErr("insert product", err)
	}
	return p, nil
}

// UpdateProduct applies only the fields set in patch. An empty patch returns
// the stored product unchanged.
func (s *Store) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	if patch.Empty() {
		return s.GetProduct(ctx, id)
	}
	if patch.Price != nil && !ValidMoney(*patch.Price) {
		return Product{}, ErrInvalidProduct
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.StockQuantity != nil {
		set("stock_quantity", *patch.StockQuantity)
	}
	if patch.ImageURL != nil {
		set("image_url", *patch.ImageURL)
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE products SET %s, updated_at = now() WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "),
		len(args),
		productColumns,
	)

	var p Product
	if err := s.pool.QueryRow(ctx, query, args...).Scan(productDest(&p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		if isCheckViolation(err) || isNumericOverflow(err) {
			return Product{}, ErrInvalidProduct
		}
		return Product{}, storageErr("update product", err)
	}
	return p, nil
}

// DeleteProduct removes the row and returns what was deleted so the caller
// can clean up the image. Products referenced by orders cannot be deleted.
func (s *Store) DeleteProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx, "DELETE FROM products WHERE id = $1 RETURNING "+productColumns, id).Scan(productDest(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		if isForeignKeyViolation(err) {
			return Product{}, ErrConflict
		}
		return Product{}, storageErr("delete product", err)
	}
	return p, nil
}

// AdjustStock moves stock by delta under the product row lock and refuses to
// go below zero.
func (s *Store) AdjustStock(ctx context.Context, id int64, delta int) (Product, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return Product{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	p, err := lockProduct(ctx, tx, id)
	if err != nil {
		return Product{}, err
	}
	if p.StockQuantity+delta < 0 {
		return Product{}, ErrInsufficientStock
	}

	p, err = addToStock(ctx, tx, id, delta)
	if err != nil {
		return Product{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func lockProduct(ctx context.Context, tx pgx.Tx, id int64) (Product, error) {
	var p Product
	err := tx.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id).Scan(productDest(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, storageErr("lock product", err)
	}
	return p, nil
}

func addToStock(ctx context.Context, tx pgx.Tx, id int64, delta int) (Product, error) {
	var p Product
	err := tx.QueryRow(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = now()
		WHERE id = $2
		RETURNING `+productColumns,
		delta, id,
	).Scan(productDest(&p)...)
	if err != nil {
		if isCheckViolation(err) {
			return Product{}, ErrInsufficientStock
		}
		return Product{}, storageErr("update stock", err)
	}
	return p, nil
}

func productDest(p *Product) []any {
	return []any{
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}
