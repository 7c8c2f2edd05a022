package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kombee/eshop-storefront/internal/cart"
	"github.com/kombee/eshop-storefront/internal/catalog"
	h "github.com/kombee/eshop-storefront/internal/http"
	"github.com/kombee/eshop-storefront/internal/saleor"
	"github.com/kombee/eshop-storefront/internal/session"
	"github.com/kombee/eshop-storefront/internal/signup"
	"github.com/kombee/eshop-storefront/internal/store"
)

type Config struct {
	HTTPPort        string
	RedisAddr       string
	RedisPassword   string
	SaleorEndpoint  string
	SaleorChannel   string
	VisitorStateTTL time.Duration
	CatalogCacheTTL time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		SaleorEndpoint:  getEnv("SALEOR_ENDPOINT", "https://saleor.kombee.co.in/graphql/"),
		SaleorChannel:   getEnv("SALEOR_CHANNEL", "online-inr"),
		VisitorStateTTL: 24 * time.Hour,
		CatalogCacheTTL: 60 * time.Second,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := loadConfig()
	ctx := context.Background()

	// Visitor state store: Redis when configured, in-memory otherwise
	var visitorStore store.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		log.Printf("Redis ping succeeded")
		visitorStore = store.NewRedisStore(redisClient, cfg.VisitorStateTTL)
	} else {
		log.Printf("REDIS_ADDR empty, visitor state will not survive restarts")
		visitorStore = store.NewMemoryStore()
	}

	api := saleor.NewClient(cfg.SaleorEndpoint, cfg.SaleorChannel)
	log.Printf("Using commerce API at %s (channel %s)", cfg.SaleorEndpoint, cfg.SaleorChannel)

	// State containers are built here and injected explicitly; nothing else in
	// the application holds ambient references to them.
	sessions := session.NewManager(visitorStore)
	carts := cart.NewManager(visitorStore)
	flow := signup.NewFlow(api, sessions)
	products := catalog.NewService(api, cfg.CatalogCacheTTL)

	cartHandler := h.NewCartHandler(carts, cfg.RequestTimeout)
	productHandler := h.NewProductHandler(products, cfg.RequestTimeout)
	authHandler := h.NewAuthHandler(flow, api, sessions, carts, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.VisitorIDMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", productHandler.List)
		r.Get("/products/{id}", productHandler.Get)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
			r.Delete("/", cartHandler.ClearCart)
		})

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
