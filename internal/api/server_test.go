package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"vintique.shop/internal/api"
	"vintique.shop/internal/catalog"
	"vintique.shop/internal/idempotency"
	"vintique.shop/internal/store"
)

const authToken = "test-token"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	store   *mockStore
	catalog *mockCatalog
	guard   *mockGuard
	handler http.Handler
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{store: &mockStore{}, catalog: &mockCatalog{}, guard: &mockGuard{}}
	srv := api.NewServer(env.store, env.catalog, authToken, log.New(io.Discard, "", 0),
		api.WithIdempotencyGuard(env.guard),
		api.WithBcryptCost(bcrypt.MinCost),
	)
	env.handler = srv.Routes()
	t.Cleanup(func() {
		env.store.AssertExpectations(t)
		env.catalog.AssertExpectations(t)
		env.guard.AssertExpectations(t)
	})
	return env
}

type request struct {
	method  string
	path    string
	body    string
	userID  int64
	headers map[string]string
	noAuth  bool
}

func (e *testEnv) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader = http.NoBody
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.noAuth {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if r.userID != 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(r.userID))
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func decEq(s string) any {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func int64Ptr(v int64) *int64 { return &v }

func TestHealth(t *testing.T) {
	env := setupTest(t)
	env.store.On("Ping", mock.Anything).Return(nil).Once()

	rec := env.do(t, request{method: http.MethodGet, path: "/health", noAuth: true})
	assert.Equal(t, http.StatusOK, rec.Code)

	env.store.On("Ping", mock.Anything).Return(errors.New("down")).Once()
	rec = env.do(t, request{method: http.MethodGet, path: "/health", noAuth: true})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := setupTest(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/v1/products", noAuth: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))

	rec = env.do(t, request{
		method:  http.MethodGet,
		path:    "/v1/products",
		noAuth:  true,
		headers: map[string]string{"Authorization": "Bearer wrong-token"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, request{
		method:  http.MethodGet,
		path:    "/v1/account",
		headers: map[string]string{"X-User-ID": "abc"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_user_id", errorCode(t, rec))

	rec = env.do(t, request{method: http.MethodGet, path: "/v1/account"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "user_required", errorCode(t, rec))
}

func TestRequestIDHeader(t *testing.T) {
	env := setupTest(t)
	env.store.On("ListProducts", mock.Anything).Return([]store.Product{}, nil).Twice()

	rec := env.do(t, request{method: http.MethodGet, path: "/v1/products"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, request{
		method:  http.MethodGet,
		path:    "/v1/products",
		headers: map[string]string{"X-Request-ID": "req-1"},
	})
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestCreateUser(t *testing.T) {
	env := setupTest(t)
	env.store.On("CreateUser", mock.Anything, mock.MatchedBy(func(in store.CreateUserInput) bool {
		return in.Email == "alice@example.com" &&
			in.Username == "alice" &&
			!in.IsAdmin &&
			bcrypt.CompareHashAndPassword([]byte(in.PasswordHash), []byte("S3cret!pass")) == nil
	})).Return(store.User{ID: 1, Email: "alice@example.com", Username: "alice", PasswordHash: "hash"}, nil).Once()

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/v1/users",
		body:   `{"email":"Alice@Example.com","username":"alice","password":"S3cret!pass"}`,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hash")

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 1, got["id"])
	assert.Equal(t, false, got["is_admin"])
}

func TestCreateUserErrors(t *testing.T) {
	env := setupTest(t)
	env.store.On("CreateUser", mock.Anything, mock.Anything).Return(store.User{}, store.ErrConflict).Once()

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/v1/users",
		body:   `{"email":"alice@example.com","username":"alice","password":"S3cret!pass"}`,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorCode(t, rec))

	for _, body := range []string{
		`{"email":"not-an-email","username":"alice","password":"S3cret!pass"}`,
		`{"email":"a@example.com","username":"al","password":"S3cret!pass"}`,
		`{"email":"a@example.com","username":"alice","password":"short"}`,
		`{"email":"a@example.com","username":"al ice!","password":"S3cret!pass"}`,
		`{"email":"a@example.com","username":"alice","password":"s3cret!pass"}`,
		`{"email":"a@example.com","username":"alice","password":"S3cretpass"}`,
		`{"email":"a@example.com","username":"alice","password":"Secret!pass"}`,
		`{"email":"a@example.com","username":"alice","password":"S3cret!pass","shipping_address":"  "}`,
		`{"email":`,
	} {
		rec := env.do(t, request{method: http.MethodPost, path: "/v1/users", body: body})
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCreateUserAcceptsUnderscoreUsername(t *testing.T) {
	env := setupTest(t)
	env.store.On("CreateUser", mock.Anything, mock.MatchedBy(func(in store.CreateUserInput) bool {
		return in.Username == "vintage_fan_01" &&
			in.ShippingAddress != nil && *in.ShippingAddress == "1 Main St"
	})).Return(store.User{ID: 2, Username: "vintage_fan_01"}, nil).Once()

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/v1/users",
		body:   `{"email":"fan@example.com","username":"vintage_fan_01","password":"S3cret!pass","shipping_address":" 1 Main St "}`,
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestFund(t *testing.T) {
	env := setupTest(t)
	env.store.On("Fund", mock.Anything, int64(7), decEq("4.25")).
		Return(store.Account{ID: 1, UserID: 7, Balance: decimal.RequireFromString("14.75")}, nil).Once()

	rec := env.do(t, request{method: http.MethodPost, path: "/v1/account/fund", userID: 7, body: `{"amount":"4.25"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("14.75")))
}

func TestLedgerErrors(t *testing.T) {
	env := setupTest(t)
	env.store.On("Fund", mock.Anything, int64(7), decEq("-1")).Return(store.Account{}, store.ErrInvalidAmount).Once()
	env.store.On("Withdraw", mock.Anything, int64(7), decEq("500")).Return(store.Account{}, store.ErrInsufficientFunds).Once()
	env.store.On("Withdraw", mock.Anything, int64(8), decEq("1")).Return(store.Account{}, store.ErrAccountNotFound).Once()
	env.store.On("Withdraw", mock.Anything, int64(9), decEq("1")).
		Return(store.Account{}, fmt.Errorf("%w: begin: conn refused", store.ErrStorage)).Once()

	cases := []struct {
		path   string
		userID int64
		body   string
		status int
		code   string
	}{
		{"/v1/account/fund", 7, `{"amount":-1}`, http.StatusBadRequest, "invalid_amount"},
		{"/v1/account/fund", 7, `{}`, http.StatusBadRequest, "invalid_request"},
		{"/v1/account/withdraw", 7, `{"amount":500}`, http.StatusBadRequest, "insufficient_funds"},
		{"/v1/account/withdraw", 8, `{"amount":1}`, http.StatusNotFound, "account_not_found"},
		{"/v1/account/withdraw", 9, `{"amount":1}`, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		rec := env.do(t, request{method: http.MethodPost, path: tc.path, userID: tc.userID, body: tc.body})
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.path, tc.body)
		assert.Equal(t, tc.code, errorCode(t, rec), "%s %s", tc.path, tc.body)
	}
}

func TestCheckout(t *testing.T) {
	env := setupTest(t)
	env.store.On("CreateOrder", mock.Anything, int64(7), int64(3), 3).Return(store.Order{
		ID:          11,
		UserID:      7,
		ProductID:   3,
		Quantity:    3,
		UnitPrice:   decimal.RequireFromString("19.99"),
		Amount:      decimal.RequireFromString("59.97"),
		OrderStatus: store.OrderStatusPending,
	}, nil).Once()

	rec := env.do(t, request{method: http.MethodPost, path: "/v1/orders/checkout", userID: 7, body: `{"product_id":3,"quantity":3}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got struct {
		ID          int64           `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		OrderStatus string          `json:"order_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(11), got.ID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("59.97")))
	assert.Equal(t, "pending", got.OrderStatus)
}

func TestCheckoutDefaultsToOneUnit(t *testing.T) {
	env := setupTest(t)
	env.store.On("CreateOrder", mock.Anything, int64(7), int64(3), 1).Return(store.Order{ID: 1}, nil).Once()

	rec := env.do(t, request{method: http.MethodPost, path: "/v1/orders/checkout", userID: 7, body: `{"product_id":3}`})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCheckoutErrors(t *testing.T) {
	env := setupTest(t)
	env.store.On("CreateOrder", mock.Anything, int64(7), int64(3), 5).Return(store.Order{}, store.ErrInsufficientStock).Once()
	env.store.On("CreateOrder", mock.Anything, int64(7), int64(4), 1).Return(store.Order{}, store.ErrProductNotFound).Once()
	env.store.On("CreateOrder", mock.Anything, int64(7), int64(3), 0).Return(store.Order{}, store.ErrInvalidQuantity).Once()

	cases := []struct {
		body   string
		status int
		code   string
	}{
		{`{"product_id":3,"quantity":5}`, http.StatusBadRequest, "insufficient_stock"},
		{`{"product_id":4,"quantity":1}`, http.StatusNotFound, "product_not_found"},
		{`{"product_id":3,"quantity":0}`, http.StatusBadRequest, "invalid_quantity"},
		{`{"quantity":1}`, http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range cases {
		rec := env.do(t, request{method: http.MethodPost, path: "/v1/orders/checkout", userID: 7, body: tc.body})
		assert.Equal(t, tc.status, rec.Code, tc.body)
		assert.Equal(t, tc.code, errorCode(t, rec), tc.body)
	}
}

func TestCheckoutIdempotencyKey(t *testing.T) {
	env := setupTest(t)
	headers := map[string]string{"Idempotency-Key": "k-1"}
	body := `{"product_id":3,"quantity":1}`

	env.guard.On("Acquire", mock.Anything, int64(7), "k-1").Return(nil).Once()
	env.store.On("CreateOrder", mock.Anything, int64(7), int64(3), 1).Return(store.Order{ID: 1}, nil).Once()
	rec := env.do(t, request{method: http.MethodPost, path: "/v1/orders/checkout", userID: 7, body: body, headers: headers})
	assert.Equal(t, http.StatusCreated, rec.Code)

	env.guard.On("Acquire", mock.Anything, int64(7), "k-1").Return(idempotency.ErrDuplicate).Once()
	rec = env.do(t, request{method: http.MethodPost, path: "/v1/orders/checkout", userID: 7, body: body, headers: headers})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_request", errorCode(t, rec))
	env.store.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestCheckoutFailureReleasesKey(t *testing.T) {
	env := setupTest(t)
	headers := map[string]string{"Idempotency-Key": "k-2"}

	env.guard.On("Acquire", mock.Anything, int64(7), "k-2").Return(nil).Once()
	env.store.On("CreateOrder", mock.Anything, int64(7), int64(3), 1).Return(store.Order{}, store.ErrInsufficientFunds).Once()
	env.guard.On("Release", mock.Anything, int64(7), "k-2").Return(nil).Once()

	rec := env.do(t, request{method: http.MethodPost, path: "/v1/orders/checkout", userID: 7, body: `{"product_id":3}`, headers: headers})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_funds", errorCode(t, rec))
}

func TestGetOrderOwnership(t *testing.T) {
	env := setupTest(t)
	env.store.On("GetOrder", mock.Anything, int64(5)).Return(store.Order{ID: 5, UserID: 7}, nil).Times(3)
	env.store.On("GetUser", mock.Anything, int64(8)).Return(store.User{ID: 8}, nil).Once()
	env.store.On("GetUser", mock.Anything, int64(9)).Return(store.User{ID: 9, IsAdmin: true}, nil).Once()

	rec := env.do(t, request{method: http.MethodGet, path: "/v1/orders/5", userID: 7})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, request{method: http.MethodGet, path: "/v1/orders/5", userID: 8})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, request{method: http.MethodGet, path: "/v1/orders/5", userID: 9})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, request{method: http.MethodGet, path: "/v1/orders/abc", userID: 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestCart(t *testing.T) {
	env := setupTest(t)
	env.store.On("AddToCart", mock.Anything, (*int64)(nil), int64(3), 2).
		Return(store.CartItem{ID: 1, ProductID: 3, Quantity: 2}, nil).Once()
	env.store.On("ListCart", mock.Anything, (*int64)(nil)).
		Return([]store.CartItem{{ID: 1, ProductID: 3, Quantity: 2}}, nil).Once()
	env.store.On("ClearCart", mock.Anything, (*int64)(nil)).Return(int64(1), nil).Once()

	rec := env.do(t, request{method: http.MethodPost, path: "/v1/cart", body: `{"product_id":3,"quantity":2}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, request{method: http.MethodGet, path: "/v1/cart"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":null`)

	rec = env.do(t, request{method: http.MethodDelete, path: "/v1/cart"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":1}`, rec.Body.String())
}

func TestCartOwnership(t *testing.T) {
	env := setupTest(t)
	env.store.On("UpdateCartItem", mock.Anything, int64(4), int64Ptr(8), 2).Return(store.CartItem{}, store.ErrForbidden).Once()
	env.store.On("RemoveCartItem", mock.Anything, int64(4), int64Ptr(7)).Return(nil).Once()
	env.store.On("AddToCart", mock.Anything, int64Ptr(7), int64(3), 9).Return(store.CartItem{}, store.ErrInsufficientStock).Once()

	rec := env.do(t, request{method: http.MethodPatch, path: "/v1/cart/4", userID: 8, body: `{"quantity":2}`})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, request{method: http.MethodPatch, path: "/v1/cart/4", userID: 8, body: `{}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, request{method: http.MethodDelete, path: "/v1/cart/4", userID: 7})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, request{method: http.MethodPost, path: "/v1/cart", userID: 7, body: `{"product_id":3,"quantity":9}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_stock", errorCode(t, rec))
}

func expectAdmin(env *testEnv, userID int64, isAdmin bool) {
	env.store.On("GetUser", mock.Anything, userID).Return(store.User{ID: userID, IsAdmin: isAdmin}, nil)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := setupTest(t)
	expectAdmin(env, 7, false)

	rec := env.do(t, request{method: http.MethodGet, path: "/v1/admin/users", userID: 7})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, request{method: http.MethodGet, path: "/v1/admin/users"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminSetBalanceAndStatus(t *testing.T) {
	env := setupTest(t)
	expectAdmin(env, 1, true)
	env.store.On("SetBalance", mock.Anything, int64(7), decEq("42.42")).
		Return(store.Account{UserID: 7, Balance: decimal.RequireFromString("42.42")}, nil).Once()
	env.store.On("UpdateOrderStatus", mock.Anything, int64(5), "shipped").
		Return(store.Order{ID: 5, OrderStatus: "shipped"}, nil).Once()
	env.store.On("CreateTransaction", mock.Anything, int64(5), mock.MatchedBy(func(p *string) bool {
		return p != nil && *p == "pay_1"
	})).Return(store.Transaction{ID: 2, OrderID: 5}, nil).Once()
	env.store.On("ListTransactions", mock.Anything, int64(6)).Return([]store.Transaction(nil), store.ErrOrderNotFound).Once()

	rec := env.do(t, request{method: http.MethodPut, path: "/v1/admin/users/7/balance", userID: 1, body: `{"balance":"42.42"}`})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, request{method: http.MethodPatch, path: "/v1/admin/orders/5/status", userID: 1, body: `{"order_status":"shipped"}`})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, request{method: http.MethodPost, path: "/v1/admin/orders/5/transactions", userID: 1, body: `{"payment_id":"pay_1"}`})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, request{method: http.MethodGet, path: "/v1/admin/orders/6/transactions", userID: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order_not_found", errorCode(t, rec))
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func multipartRequest(t *testing.T, method, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("X-User-ID", "1")
	return req
}

func TestAdminCreateProduct(t *testing.T) {
	env := setupTest(t)
	expectAdmin(env, 1, true)
	env.catalog.On("Create", mock.Anything, mock.MatchedBy(func(in catalog.CreateProductInput) bool {
		return in.Name == "Jacket" &&
			in.Price.Equal(decimal.RequireFromString("19.99")) &&
			in.StockQuantity == 4 &&
			bytes.Equal(in.Image, pngBytes)
	})).Return(store.Product{ID: 3, Name: "Jacket"}, nil).Once()

	req := multipartRequest(t, http.MethodPost, "/v1/admin/products", map[string]string{
		"name":           "Jacket",
		"price":          "19.99",
		"stock_quantity": "4",
	}, pngBytes)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAdminCreateProductRejectsBadInput(t *testing.T) {
	env := setupTest(t)
	expectAdmin(env, 1, true)

	req := multipartRequest(t, http.MethodPost, "/v1/admin/products", map[string]string{
		"name":  "Jacket",
		"price": "cheap",
	}, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_price", errorCode(t, rec))

	req = multipartRequest(t, http.MethodPost, "/v1/admin/products", map[string]string{
		"name":  "Jacket",
		"price": "1.00",
	}, nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_stock_quantity", errorCode(t, rec))

	req = multipartRequest(t, http.MethodPost, "/v1/admin/products", map[string]string{
		"name":           "Jacket",
		"price":          "1.00",
		"stock_quantity": "2",
	}, []byte("plain text, not an image"))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_image", errorCode(t, rec))
}

func TestAdminUpdateProductOnlyPresentFields(t *testing.T) {
	env := setupTest(t)
	expectAdmin(env, 1, true)
	env.catalog.On("Update", mock.Anything, int64(3), mock.MatchedBy(func(in catalog.UpdateProductInput) bool {
		p := in.Patch
		return p.Price != nil && p.Price.Equal(decimal.RequireFromString("25.00")) &&
			p.Name == nil && p.StockQuantity == nil && p.ImageURL == nil &&
			p.Description != nil && !p.Description.Valid &&
			in.Image == nil
	})).Return(store.Product{ID: 3}, nil).Once()

	req := multipartRequest(t, http.MethodPatch, "/v1/admin/products/3", map[string]string{
		"price":       "25.00",
		"description": "",
	}, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdminDeleteProduct(t *testing.T) {
	env := setupTest(t)
	expectAdmin(env, 1, true)
	env.catalog.On("Delete", mock.Anything, int64(3)).Return(store.Product{ID: 3}, nil).Once()
	env.catalog.On("Delete", mock.Anything, int64(4)).Return(store.Product{}, store.ErrConflict).Once()

	rec := env.do(t, request{method: http.MethodDelete, path: "/v1/admin/products/3", userID: 1})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, request{method: http.MethodDelete, path: "/v1/admin/products/4", userID: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminAdjustStock(t *testing.T) {
	env := setupTest(t)
	expectAdmin(env, 1, true)
	env.store.On("AdjustStock", mock.Anything, int64(3), 5).Return(store.Product{ID: 3, StockQuantity: 12}, nil).Once()
	env.store.On("AdjustStock", mock.Anything, int64(3), -20).Return(store.Product{}, store.ErrInsufficientStock).Once()

	rec := env.do(t, request{method: http.MethodPost, path: "/v1/admin/products/3/stock", userID: 1, body: `{"delta":5}`})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"stock_quantity":12`)

	rec = env.do(t, request{method: http.MethodPost, path: "/v1/admin/products/3/stock", userID: 1, body: `{"delta":-20}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_stock", errorCode(t, rec))

	rec = env.do(t, request{method: http.MethodPost, path: "/v1/admin/products/3/stock", userID: 1, body: `{}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestImageUploadFailureMapsToBadGateway(t *testing.T) {
	env := setupTest(t)
	expectAdmin(env, 1, true)
	env.catalog.On("Update", mock.Anything, int64(3), mock.Anything).
		Return(store.Product{}, fmt.Errorf("%w: timeout", catalog.ErrImageUpload)).Once()

	req := multipartRequest(t, http.MethodPatch, "/v1/admin/products/3", nil, pngBytes)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "image_upload_failed", errorCode(t, rec))
}
