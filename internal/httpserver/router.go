package httpserver

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logger"
	productrepo "storefront/internal/repository/product"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	"storefront/internal/service/reconciler"
)

type cartService interface {
	Validate(ctx context.Context, items []domain.CartLine) (*domain.CartSummary, error)
}

type orderService interface {
	Checkout(ctx context.Context, userID string, in ordersvc.CheckoutInput) (*ordersvc.CheckoutResult, error)
	Cancel(ctx context.Context, orderID, userID string) (*domain.Order, error)
	Get(ctx context.Context, orderID, userID string) (*domain.Order, error)
	ListMine(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	SetStatus(ctx context.Context, orderID, status string) (*domain.Order, error)
}

type webhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (reconciler.Outcome, error)
}

type productService interface {
	List(ctx context.Context, f productrepo.Filter) ([]domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
	Update(ctx context.Context, id string, patch productrepo.Patch) (*domain.Product, error)
	Delete(ctx context.Context, id string) (*domain.Product, error)
}

type favoriteService interface {
	List(ctx context.Context, userID string) ([]domain.Product, error)
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
}

type userService interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	ConfirmEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	AdminLogin(password string) (string, error)
	Get(ctx context.Context, id string) (*domain.User, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP layer calls into.
type Deps struct {
	Cart      cartService
	Orders    orderService
	Webhooks  webhookService
	Products  productService
	Favorites favoriteService
	Users     userService
	Tokens    tokenParser
	DB        pinger
}

type Options struct {
	AllowedOrigins  []string
	Production      bool
	FrontendURL     string
	Currency        string
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

type handler struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// buildRouter wires routes for the API.
func buildRouter(log *zap.Logger, deps Deps, opts Options) *gin.Engine {
	log = logger.OrNop(log)
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if opts.LoginRateWindow <= 0 {
		opts.LoginRateWindow = 15 * time.Minute
	}
	h := &handler{deps: deps, opts: opts, logger: log.Named("http")}

	router := gin.New()
	router.Use(logger.RequestLogger(log), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))

	api := router.Group("/api")
	api.GET("/health", healthHandler)

	api.POST("/cart/validate", h.validateCart)
	api.GET("/products", h.listProducts)
	api.GET("/products/slug/:slug", h.productBySlug)

	loginLimiter := rateLimit(newIPLimiter(opts.LoginRateLimit, opts.LoginRateWindow))
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.GET("/confirm-email", h.confirmEmail)
	authGroup.POST("/login", loginLimiter, h.login)
	authGroup.GET("/me", requireUser(deps.Tokens), h.me)

	api.POST("/admin/login", loginLimiter, h.adminLogin)

	api.POST("/payments/stripe/webhook", h.webhook)

	user := api.Group("", requireUser(deps.Tokens))
	user.POST("/orders", h.createOrder)
	user.GET("/orders/my", h.myOrders)
	user.GET("/orders/:id", h.getOrder)
	user.PATCH("/orders/:id/cancel", h.cancelOrder)
	user.POST("/payments/stripe/create-session", h.createSession)
	user.GET("/favorites", h.listFavorites)
	user.POST("/favorites/:productId", h.addFavorite)
	user.DELETE("/favorites/:productId", h.removeFavorite)

	admin := api.Group("/admin", requireAdmin(deps.Tokens))
	admin.GET("/orders", h.adminListOrders)
	admin.PATCH("/orders/:id", h.adminSetOrderStatus)
	admin.GET("/products/:id", h.adminGetProduct)
	admin.POST("/products", h.adminCreateProduct)
	admin.PATCH("/products/:id", h.adminUpdateProduct)
	admin.PUT("/products/:id", h.adminUpdateProduct)
	admin.DELETE("/products/:id", h.adminDeleteProduct)

	return router
}
