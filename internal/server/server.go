package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"campus-market/internal/auth"
	"campus-market/internal/config"
	"campus-market/internal/domain"
	"campus-market/internal/handler"
	"campus-market/internal/repository"
	"campus-market/internal/repository/memstore"
	"campus-market/internal/service"
	"campus-market/migrations"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
	port   string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, db, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	router := NewRouter(cfg, store, logger)

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"storage":   cfg.StorageDriver,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router: router,
		db:     db,
		logger: logger,
	}, nil
}

// openStore connects the configured storage backend. The returned *sql.DB is
// nil for the in-memory store.
func openStore(cfg *config.Config, logger *slog.Logger) (domain.Store, *sql.DB, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data will not survive a restart")
		return memstore.NewStore(logger), nil, nil
	}

	// Initialize database connection
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Successfully connected to database")

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, db, logger); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	// Initialize store (Unit of Work)
	return repository.NewStore(db, logger), db, nil
}

// NewRouter wires services and handlers over store and registers the API
// routes.
func NewRouter(cfg *config.Config, store domain.Store, logger *slog.Logger) *mux.Router {
	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})

	// Initialize services
	userService := service.NewUserService(store, auth.NewPasswordHasherWithCost(cfg.BcryptCost), tokens, logger)
	productService := service.NewProductService(store, cfg.MaxPageSize, logger)
	orderService := service.NewOrderService(store, cfg.MaxPageSize, logger)

	// Initialize handlers
	options := handler.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		ImageBaseURL:    cfg.ImageBaseURL,
	}
	userHandler := handler.NewUserHandler(userService)
	productHandler := handler.NewProductHandler(productService, options)
	transactionHandler := handler.NewTransactionHandler(orderService, options)

	required := requireAuth(userService)
	optional := optionalAuth(userService)

	// Setup router
	router := mux.NewRouter()

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	api := router.PathPrefix("/api").Subrouter()

	// Auth and user routes
	api.HandleFunc("/auth/register", userHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", userHandler.Login).Methods("POST")
	api.Handle("/users/profile", required(userHandler.GetProfile)).Methods("GET")
	api.Handle("/users/profile", required(userHandler.UpdateProfile)).Methods("PUT")

	// Catalog routes; fixed paths go before {product_id}
	api.HandleFunc("/categories", productHandler.ListCategories).Methods("GET")
	api.Handle("/products", required(productHandler.CreateProduct)).Methods("POST")
	api.Handle("/products/available", optional(productHandler.ListAvailable)).Methods("GET")
	api.Handle("/products/my", required(productHandler.ListMyProducts)).Methods("GET")
	api.HandleFunc("/products/{product_id}", productHandler.GetProduct).Methods("GET")
	api.Handle("/products/{product_id}", required(productHandler.UpdateProduct)).Methods("PUT")
	api.Handle("/products/{product_id}", required(productHandler.WithdrawListing)).Methods("DELETE")

	// Transaction routes
	api.Handle("/transactions", required(transactionHandler.PlaceOrder)).Methods("POST")
	api.Handle("/transactions/my", required(transactionHandler.ListMyTransactions)).Methods("GET")
	api.Handle("/transactions/{transaction_id}", required(transactionHandler.GetTransaction)).Methods("GET")
	api.Handle("/transactions/{transaction_id}/pay", required(transactionHandler.Pay)).Methods("PUT")
	api.Handle("/transactions/{transaction_id}/cancel", required(transactionHandler.CancelOrder)).Methods("PUT")

	return router
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	// Get the actual port being used
	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	// Create HTTP server
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	// Start server in background
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server, then closes the database.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger builds the process logger. Port "0" marks a test run and
// discards output.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.ServerPort == "0" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	logger := NewLogger(cfg)

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	// Start the server and get the actual port
	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
