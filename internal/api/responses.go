package api

import (
	"time"

	"github.com/shopspring/decimal"

	"vintique.shop/internal/store"
)

type userResponse struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	ShippingAddress *string   `json:"shipping_address"`
	IsAdmin         bool      `json:"is_admin"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type accountResponse struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type productResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      *string         `json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type cartItemResponse struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type orderResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	UserID      int64           `json:"user_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	OrderStatus string          `json:"order_status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type transactionResponse struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	PaymentID *string   `json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u store.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		ShippingAddress: u.ShippingAddress,
		IsAdmin:         u.IsAdmin,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func toAccountResponse(a store.Account) accountResponse {
	return accountResponse{ID: a.ID, UserID: a.UserID, Balance: a.Balance, UpdatedAt: a.UpdatedAt}
}

func toProductResponse(p store.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		ImageURL:      p.ImageURL,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toCartItemResponse(i store.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:        i.ID,
		UserID:    i.UserID,
		ProductID: i.ProductID,
		Quantity:  i.Quantity,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func toOrderResponse(o store.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		ProductID:   o.ProductID,
		UserID:      o.UserID,
		Quantity:    o.Quantity,
		UnitPrice:   o.UnitPrice,
		Amount:      o.Amount,
		OrderStatus: o.OrderStatus,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toTransactionResponse(t store.Transaction) transactionResponse {
	return transactionResponse{ID: t.ID, OrderID: t.OrderID, PaymentID: t.PaymentID, CreatedAt: t.CreatedAt}
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
