package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shoplite/apiserver/config"
	"github.com/shoplite/apiserver/internal/cryptox"
	"github.com/shoplite/apiserver/internal/db"
	"github.com/shoplite/apiserver/internal/events"
	"github.com/shoplite/apiserver/internal/handlers"
	"github.com/shoplite/apiserver/internal/mq"
	"github.com/shoplite/apiserver/internal/services"
	"github.com/shoplite/apiserver/internal/session"
	"github.com/shoplite/apiserver/internal/storage"
	"github.com/shoplite/apiserver/internal/store"
	"github.com/shoplite/apiserver/internal/token"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Broker
	logger     *slog.Logger
}

// New constructs a Server with every dependency wired from cfg. The
// broker and object storage are optional; everything else is required.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := newLogger(cfg)

	issuer, err := token.New(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Connect(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if broker == nil {
		logger.Info("message broker disabled, account events will not be published")
	}

	backend, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		closeAll(dbConn, broker)
		return nil, err
	}
	if backend != nil {
		if err := backend.EnsureBucket(ctx); err != nil {
			closeAll(dbConn, broker)
			return nil, fmt.Errorf("failed to prepare avatar bucket: %w", err)
		}
	} else {
		logger.Info("object storage disabled, avatar uploads will be rejected")
	}

	hasher := cryptox.NewHasher(cfg.Auth.BcryptCost)
	cookies := session.NewCookieManager(cfg.Auth.CookieName, issuer.TTL(), cfg.Auth.CookieSecure)
	publisher := events.NewPublisher(broker, logger)

	userRepo := store.NewUserRepository(dbConn, hasher)
	orderRepo := store.NewOrderRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)

	accounts := services.NewAccountService(userRepo, orderRepo, hasher, issuer, publisher, backend)
	products := services.NewProductService(productRepo)

	auth := handlers.NewSessionAuthenticator(cookies, issuer, accounts)
	limiter := handlers.NewIPRateLimiter(cfg.RateLimit)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/users", func(r chi.Router) {
		handlers.AccountRouter(r, accounts, auth, cookies, limiter)
	})
	router.Route("/products", func(r chi.Router) {
		handlers.ProductRouter(r, products, auth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the database and
// broker connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	closeAll(s.db, s.broker)
	return err
}

func closeAll(dbConn *sql.DB, broker mq.Broker) {
	if dbConn != nil {
		_ = dbConn.Close()
	}
	if broker != nil {
		_ = broker.Close()
	}
}
