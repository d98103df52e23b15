package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/hanko-storefront/internal/config"
	"finitefield.org/hanko-storefront/internal/gateway"
	mw "finitefield.org/hanko-storefront/internal/middleware"
	"finitefield.org/hanko-storefront/internal/observability"
	"finitefield.org/hanko-storefront/internal/persist"
	"finitefield.org/hanko-storefront/internal/session"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.Parse()

	var opts []config.Option
	if configPath != "" {
		opts = append(opts, config.WithFile(configPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", invalid.Fields())
		} else {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		}
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storefront")

	if err := run(cfg, logger); err != nil {
		logger.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()

	kv, closeKV, err := newPersistStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeKV()

	client := gateway.NewClient(cfg.API.BaseURL,
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithObserver(metrics),
	)
	if cfg.API.BaseURL == "" {
		logger.Warn("api.base_url not set; serving the built-in catalog")
	}

	viewers := session.NewManager(session.Config{
		Persist: kv,
		Gateway: client,
		Widget: session.WidgetConfig{
			SDKURL:   cfg.PayPal.SDKURL,
			ClientID: cfg.PayPal.ClientID,
			Currency: cfg.PayPal.Currency,
		},
		Logger:      logger.Named("session"),
		Recorder:    metrics,
		Gauge:       metrics,
		IdleTimeout: cfg.Session.IdleTimeout,
		SweepEvery:  cfg.Session.SweepEvery,
	})
	defer viewers.Close()

	rd, err := newRenderer(cfg.Render.TemplatesDir, cfg.Render.Dev, cfg.PayPal.Currency)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	a := &app{viewers: viewers, render: rd, settle: cfg.Server.SettleTimeout, logger: logger}
	sessions := mw.NewSessions(cfg.Session.SigningKey, cfg.Server.Secure, logger)
	handler := newRouter(a, routerConfig{
		logger:    logger.Named("http"),
		metrics:   metrics,
		sessions:  sessions,
		secure:    cfg.Server.Secure,
		publicDir: cfg.Server.PublicDir,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("storefront listening", zap.Bool("dev", cfg.Render.Dev))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-shutdown:
	}
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

// newPersistStore picks Redis when an address is configured and falls back to memory.
func newPersistStore(cfg config.Config, logger *zap.Logger) (persist.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info("redis.addr not set; viewer state is kept in memory")
		return persist.NewMemory(cfg.Redis.TTL), func() {}, nil
	}
	r := persist.NewRedis(persist.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		PoolSize:  cfg.Redis.PoolSize,
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       cfg.Redis.TTL,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return r, func() {
		if err := r.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}, nil
}

type routerConfig struct {
	logger    *zap.Logger
	metrics   *observability.Metrics
	sessions  *mw.Sessions
	secure    bool
	publicDir string
}

func newRouter(a *app, rc routerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(observability.RequestLogger(rc.logger, rc.metrics))
	r.Use(observability.Recovery(rc.logger))

	r.Get("/healthz", a.healthz)
	if rc.metrics != nil {
		r.Handle("/metrics", rc.metrics.Handler())
	}
	r.Handle("/assets/*", mw.Assets("/assets", filepath.Join(rc.publicDir, "assets")))

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(rc.sessions.Middleware)
		r.Use(mw.CSRF(rc.secure))

		r.Get("/", a.HomeHandler)
		r.Get("/product/{id}", a.ProductHandler)
		r.Get("/cart", a.CartHandler)
		r.Get("/cart/{id}", a.CartHandler)
		r.Post("/cart/checkout", a.CheckoutHandler)
		r.Post("/cart/{id}/qty", a.CartQtyHandler)
		r.Post("/cart/{id}/remove", a.CartRemoveHandler)
		r.Get("/login", a.LoginHandler)
		r.Post("/login", a.LoginSubmitHandler)
		r.Post("/logout", a.LogoutHandler)
		r.Get("/shipping", a.ShippingHandler)
		r.Post("/shipping", a.ShippingSubmitHandler)
		r.Get("/payment", a.PaymentHandler)
		r.Post("/payment", a.PaymentSubmitHandler)
		r.Get("/placeorder", a.PlaceOrderHandler)
		r.Post("/placeorder", a.PlaceOrderSubmitHandler)
		r.Get("/order/{id}", a.OrderHandler)
		r.Post("/order/{id}/pay", a.OrderPayHandler)
		r.Post("/order/{id}/deliver", a.OrderDeliverHandler)
		r.Post("/paywidget/loaded", a.WidgetLoadedHandler)

		r.Route("/frag", func(r chi.Router) {
			r.Get("/home", a.HomeFrag)
			r.Get("/product/{id}", a.ProductFrag)
			r.Get("/cart", a.CartFrag)
			r.Get("/order/{id}", a.OrderFrag)
		})

		r.NotFound(a.notFound)
	})
	return r
}
