package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"vintique.shop/internal/catalog"
	"vintique.shop/internal/logging"
	"vintique.shop/internal/store"
)

const instrumentationName = "vintique.shop/internal/api"

type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, input store.CreateUserInput) (store.User, error)
	GetUser(ctx context.Context, id int64) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)

	GetAccount(ctx context.Context, userID int64) (store.Account, error)
	Fund(ctx context.Context, userID int64, amount decimal.Decimal) (store.Account, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (store.Account, error)
	SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) (store.Account, error)

	GetProduct(ctx context.Context, id int64) (store.Product, error)
	ListProducts(ctx context.Context) ([]store.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) (store.Product, error)

	ListCart(ctx context.Context, userID *int64) ([]store.CartItem, error)
	AddToCart(ctx context.Context, userID *int64, productID int64, quantity int) (store.CartItem, error)
	UpdateCartItem(ctx context.Context, itemID int64, userID *int64, quantity int) (store.CartItem, error)
	RemoveCartItem(ctx context.Context, itemID int64, userID *int64) error
	ClearCart(ctx context.Context, userID *int64) (int64, error)

	CreateOrder(ctx context.Context, userID, productID int64, quantity int) (store.Order, error)
	GetOrder(ctx context.Context, id int64) (store.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]store.Order, error)
	ListOrders(ctx context.Context) ([]store.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (store.Order, error)
	CreateTransaction(ctx context.Context, orderID int64, paymentID *string) (store.Transaction, error)
	ListTransactions(ctx context.Context, orderID int64) ([]store.Transaction, error)
}

type Catalog interface {
	Create(ctx context.Context, input catalog.CreateProductInput) (store.Product, error)
	Update(ctx context.Context, id int64, input catalog.UpdateProductInput) (store.Product, error)
	Delete(ctx context.Context, id int64) (store.Product, error)
}

// IdempotencyGuard claims Idempotency-Key values for checkout.
type IdempotencyGuard interface {
	Acquire(ctx context.Context, userID int64, key string) error
	Release(ctx context.Context, userID int64, key string) error
}

type Logger = logging.Logger

type Server struct {
	store       Store
	catalog     Catalog
	guard       IdempotencyGuard
	authToken   string
	logger      Logger
	bcryptCost  int
	serviceName string
	tracer      trace.Tracer
	metrics     metrics
}

type Option func(*Server)

func WithIdempotencyGuard(g IdempotencyGuard) Option {
	return func(s *Server) { s.guard = g }
}

func WithBcryptCost(cost int) Option {
	return func(s *Server) { s.bcryptCost = cost }
}

func WithServiceName(name string) Option {
	return func(s *Server) { s.serviceName = name }
}

func NewServer(st Store, cat Catalog, authToken string, logger Logger, opts ...Option) *Server {
	s := &Server{
		store:       st,
		catalog:     cat,
		authToken:   authToken,
		logger:      logging.OrNop(logger),
		bcryptCost:  bcrypt.DefaultCost,
		serviceName: "vintique-api",
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.logger)
	registerValidators()
	return s
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(s.serviceName), requestID())

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/v1", s.authMiddleware(), s.identify())
	v1.POST("/users", s.handleCreateUser)

	v1.GET("/products", s.handleListProducts)
	v1.GET("/products/:id", s.handleGetProduct)

	v1.GET("/cart", s.handleListCart)
	v1.POST("/cart", s.handleAddToCart)
	v1.DELETE("/cart", s.handleClearCart)
	v1.PATCH("/cart/:id", s.handleUpdateCartItem)
	v1.DELETE("/cart/:id", s.handleRemoveCartItem)

	user := v1.Group("", requireUser())
	user.GET("/account", s.handleGetAccount)
	user.POST("/account/fund", s.handleFund)
	user.POST("/account/withdraw", s.handleWithdraw)
	user.POST("/orders/checkout", s.handleCheckout)
	user.GET("/orders", s.handleListMyOrders)
	user.GET("/orders/:id", s.handleGetOrder)

	admin := v1.Group("/admin", requireUser(), s.requireAdmin())
	admin.GET("/users", s.handleListUsers)
	admin.PUT("/users/:id/balance", s.handleSetBalance)
	admin.GET("/orders", s.handleListAllOrders)
	admin.PATCH("/orders/:id/status", s.handleUpdateOrderStatus)
	admin.POST("/orders/:id/transactions", s.handleCreateTransaction)
	admin.GET("/orders/:id/transactions", s.handleListTransactions)
	admin.POST("/products", s.handleCreateProduct)
	admin.PATCH("/products/:id", s.handleUpdateProduct)
	admin.DELETE("/products/:id", s.handleDeleteProduct)
	admin.POST("/products/:id/stock", s.handleAdjustStock)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not_found")
	})
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logEvent(c, "health_check_failed", map[string]any{"reason": err.Error()})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if !secureCompare(token, s.authToken) {
			writeError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
