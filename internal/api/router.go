// Package api serves the ledger over GraphQL.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	graphql "github.com/graph-gophers/graphql-go"
)

// Defaults applied by NewRouter to zero Config fields.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxDepth       = 10
)

// DefaultAllowedOrigins are the development origins of the web client.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}

// Config configures the gateway router.
type Config struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxDepth       int
	Logger         *slog.Logger
}

// NewRouter builds the HTTP surface of the ledger: /graphql, /graphql/legacy
// and /health.
func NewRouter(l Ledger, cfg Config) (chi.Router, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	logger := cfg.Logger.With("component", "api")

	opts := []graphql.SchemaOpt{
		graphql.MaxDepth(cfg.MaxDepth),
		graphql.PanicHandler(panicHandler{}),
		graphql.Logger(panicLogger{logger: logger}),
	}

	schema, err := graphql.ParseSchema(Schema, &resolver{ledger: l}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	legacy, err := graphql.ParseSchema(LegacySchema, &legacyResolver{ledger: l}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse legacy schema: %w", err)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(RecoverJSON(logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Method(http.MethodPost, "/graphql", NewGraphQLHandler(schema, logger))
	r.Method(http.MethodPost, "/graphql/legacy", NewGraphQLHandler(legacy, logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})

	return r, nil
}
