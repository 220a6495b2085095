package store

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending = "pending"
)

type User struct {
	ID              int64
	Email           string
	Username        string
	PasswordHash    string
	ShippingAddress *string
	IsAdmin         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateUserInput struct {
	Email           string
	Username        string
	PasswordHash    string
	ShippingAddress *string
	IsAdmin         bool
}

type Account struct {
	ID        int64
	UserID    int64
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID            int64
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      *string
}

// ProductPatch changes only the fields that are non-nil. A Description or
// ImageURL with Valid=false clears the column.
type ProductPatch struct {
	Name          *string
	Description   *pgtype.Text
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURL      *pgtype.Text
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.StockQuantity == nil && p.ImageURL == nil
}

type CartItem struct {
	ID        int64
	UserID    *int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID          int64
	ProductID   int64
	UserID      int64
	Quantity    int
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	OrderStatus string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Transaction struct {
	ID        int64
	OrderID   int64
	PaymentID *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
