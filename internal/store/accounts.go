package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = "id, user_id, balance, created_at, updated_at"

func (s *Store) GetAccount(ctx context.Context, userID int64) (Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE user_id = $1", userID).Scan(accountDest(&a)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, storageErr("get account", err)
	}
	return a, nil
}

// Fund adds amount to the user's balance while holding the account row lock.
func (s *Store) Fund(ctx context.Context, userID int64, amount decimal.Decimal) (Account, error) {
	if !amount.IsPositive() || !ValidMoney(amount) {
		return Account{}, ErrInvalidAmount
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return Account{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := lockAccount(ctx, tx, userID); err != nil {
		return Account{}, err
	}

	a, err := addToBalance(ctx, tx, userID, amount)
	if err != nil {
		return Account{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Withdraw subtracts amount from the user's balance. The sufficiency check
// runs after the row lock is taken so concurrent withdrawals cannot both pass
// it against the same balance.
func (s *Store) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (Account, error) {
	if !amount.IsPositive() || !ValidMoney(amount) {
		return Account{}, ErrInvalidAmount
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return Account{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	a, err := debitAccount(ctx, tx, userID, amount)
	if err != nil {
		return Account{}, err
	}

	if err := commit(ctx, tx); err != nil {
		return Account{}, err
	}
	return a, nil
}

// SetBalance overwrites the balance. It is an administrative correction and
// does not take part in the fund/withdraw locking protocol.
func (s *Store) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) (Account, error) {
	if balance.IsNegative() || !ValidMoney(balance) {
		return Account{}, ErrInvalidAmount
	}

	var a Account
	err := s.pool.QueryRow(ctx, `
		UPDATE accounts
		SET balance = $1, updated_at = now()
		WHERE user_id = $2
		RETURNING `+accountColumns,
		balance, userID,
	).Scan(accountDest(&a)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, storageErr("set balance", err)
	}
	return a, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, userID int64) (Account, error) {
	var a Account
	err := tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE user_id = $1 FOR UPDATE", userID).Scan(accountDest(&a)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, storageErr("lock account", err)
	}
	return a, nil
}

// debitAccount must run inside tx; it takes the account row lock itself.
func debitAccount(ctx context.Context, tx pgx.Tx, userID int64, amount decimal.Decimal) (Account, error) {
	a, err := lockAccount(ctx, tx, userID)
	if err != nil {
		return Account{}, err
	}
	if a.Balance.LessThan(amount) {
		return Account{}, ErrInsufficientFunds
	}
	return addToBalance(ctx, tx, userID, amount.Neg())
}

func addToBalance(ctx context.Context, tx pgx.Tx, userID int64, delta decimal.Decimal) (Account, error) {
	var a Account
	err := tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = now()
		WHERE user_id = $2
		RETURNING `+accountColumns,
		delta, userID,
	).Scan(accountDest(&a)...)
	if err != nil {
		if isCheckViolation(err) {
			return Account{}, ErrInsufficientFunds
		}
		if isNumericOverflow(err) {
			return Account{}, ErrInvalidAmount
		}
		return Account{}, storageErr("update balance", err)
	}
	return a, nil
}

func accountDest(a *Account) []any {
	return []any{
		&a.ID,
		&a.UserID,
		&a.Balance,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}
