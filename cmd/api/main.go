package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logger"
	"storefront/internal/migrate"
	"storefront/internal/notify"
	"storefront/internal/payment"
	"storefront/internal/payment/stripepay"
	"storefront/internal/pricing"
	favoriterepo "storefront/internal/repository/favorite"
	inventoryrepo "storefront/internal/repository/inventory"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	cartsvc "storefront/internal/service/cart"
	favoritesvc "storefront/internal/service/favorite"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	"storefront/internal/service/reconciler"
	usersvc "storefront/internal/service/user"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		zl.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	version, err := migrate.Apply(ctx, pool)
	if err != nil {
		zl.Fatal("apply migrations", zap.Error(err))
	}
	zl.Info("schema ready", zap.Uint("version", version))

	var provider payment.Provider = payment.Disabled{}
	if cfg.StripeSecretKey != "" {
		provider = stripepay.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.PaymentTimeout, zl)
	} else {
		zl.Warn("STRIPE_SECRET_KEY not set, card payments disabled")
	}

	mailer := notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
	})
	notifier := notify.New(mailer, notify.Options{
		Timeout:     cfg.NotifyTimeout,
		Currency:    cfg.PaymentCurrency,
		FrontendURL: cfg.FrontendURL,
		BackendURL:  cfg.BackendURL,
	}, zl)
	defer notifier.Wait()

	policy := pricing.Policy{
		FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
		FlatShippingCents:          cfg.FlatShippingCents,
	}
	tokens := auth.NewManager(cfg.JWTSecret)
	tx := db.NewTxRunner(pool)

	productRepo := productrepo.NewPostgres(pool, zl)
	inventoryRepo := inventoryrepo.NewPostgres(pool, zl)
	orderRepo := orderrepo.NewPostgres(pool, zl)
	userRepo := userrepo.NewPostgres(pool, zl)

	orderService := ordersvc.New(ordersvc.Deps{
		Tx:        tx,
		Products:  productRepo,
		Inventory: inventoryRepo,
		Orders:    orderRepo,
		Users:     userRepo,
		Payments:  provider,
		Notifier:  notifier,
	}, ordersvc.Options{
		Policy:         policy,
		Currency:       cfg.PaymentCurrency,
		FrontendURL:    cfg.FrontendURL,
		PaymentTimeout: cfg.PaymentTimeout,
	}, zl)

	srv := httpserver.New(cfg.HTTPAddr, zl, httpserver.Deps{
		Cart:      cartsvc.New(productRepo, policy, zl),
		Orders:    orderService,
		Webhooks:  reconciler.New(tx, inventoryRepo, orderRepo, provider, notifier, zl),
		Products:  productsvc.New(productRepo, zl),
		Favorites: favoritesvc.New(favoriterepo.NewPostgres(pool, zl), productRepo),
		Users:     usersvc.New(userRepo, tokenrepo.NewPostgres(pool), tokens, notifier, cfg.AdminPassword, zl),
		Tokens:    tokens,
		DB:        pool,
	}, httpserver.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		Production:      cfg.IsProduction(),
		FrontendURL:     cfg.FrontendURL,
		Currency:        cfg.PaymentCurrency,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: cfg.LoginRateWindow,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	case err := <-serverErr:
		zl.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	zl.Info("server stopped")
}
