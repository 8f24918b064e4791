package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/virionlabs/onboardflow/campaign"
	"github.com/virionlabs/onboardflow/flow"
	"github.com/virionlabs/onboardflow/internal/logger"
	"github.com/virionlabs/onboardflow/session"
)

// Config is the server's environment configuration.
type Config struct {
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisAddr   string        `env:"REDIS_ADDR"`
	Port        string        `env:"PORT" envDefault:"8080"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"30m"`
}

type Server struct {
	db       *sql.DB
	manager  *campaign.Manager
	sessions session.Store
	router   *chi.Mux
}

// NewServer wires the server from config: Postgres-backed definitions when
// DATABASE_URL is set (in-memory otherwise, for local development), Redis
// sessions when REDIS_ADDR is set.
func NewServer(cfg Config) (*Server, error) {
	var (
		db    *sql.DB
		store flow.FieldStore
	)

	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store = flow.NewPostgresFieldStore(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory field store")
		store = flow.NewInMemoryFieldStore()
	}

	var sessions session.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		sessions = session.NewRedisStore(client, cfg.SessionTTL)
	} else {
		sessions = session.NewInMemoryStore(cfg.SessionTTL)
	}

	manager := campaign.NewManager(store)
	logger.Info("loading campaigns")
	if err := manager.LoadAll(); err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	logger.Info("campaigns loaded", "count", len(manager.ListCampaigns()))

	s := &Server{
		db:       db,
		manager:  manager,
		sessions: sessions,
	}
	s.setupRoutes()
	return s, nil
}

// newServerWith builds a server over pre-constructed stores; used by tests.
func newServerWith(db *sql.DB, manager *campaign.Manager, sessions session.Store) *Server {
	s := &Server{db: db, manager: manager, sessions: sessions}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)

	r.Post("/api/v1/evaluate", s.handleEvaluate)
	r.Post("/api/v1/validate", s.handleValidate)

	r.Route("/api/v1/sessions/{campaignId}/{userId}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Post("/answers", s.handleSubmitAnswers)
		r.Delete("/", s.handleDeleteSession)
	})

	r.Route("/api/v1/campaigns", func(r chi.Router) {
		r.Get("/", s.handleListCampaigns)
		r.Post("/", s.handleCreateCampaign)

		r.Route("/{campaignId}/fields", func(r chi.Router) {
			r.Get("/", s.handleListFields)
			r.Post("/", s.handleCreateField)
			r.Get("/{fieldKey}", s.handleGetField)
			r.Put("/{fieldKey}", s.handleUpdateField)
			r.Delete("/{fieldKey}", s.handleDeleteField)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

func newFieldID() string {
	return uuid.New().String()
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if store, ok := server.sessions.(*session.InMemoryStore); ok {
		store.Close()
	}
	_ = logger.Shutdown(ctx)

	logger.Info("server stopped")
}
