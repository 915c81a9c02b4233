package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"arithmitra/pkg/account"
	"arithmitra/pkg/chain"
	"arithmitra/pkg/gateway"
	"arithmitra/pkg/logging"
	"arithmitra/pkg/metrics"
	memorycollector "arithmitra/pkg/metrics/memory"
	"arithmitra/pkg/session"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Assessor is the part of the gateway the API calls. *gateway.Gateway
// implements it.
type Assessor interface {
	AnalyzeFraud(ctx context.Context, text string) (*gateway.FraudResult, error)
	PredictLoan(ctx context.Context, in gateway.LoanInput) (*gateway.LoanResult, error)
	CircuitState() metrics.CircuitState
}

// Deps are the services behind the routes. Sessions, Accounts and Assessor
// are required.
type Deps struct {
	Sessions *session.Registry
	Accounts *account.Store
	Assessor Assessor

	// Cache is reported on /status when set.
	Cache *chain.Chain

	// Snapshot backs /metrics/json when set.
	Snapshot *memorycollector.MemoryCollector

	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer

	// Registerer receives the HTTP request metrics when set.
	Registerer prometheus.Registerer

	Logger *logging.Logger
}

// Server is the ArithMitra HTTP API.
type Server struct {
	deps     Deps
	config   ServerConfig
	router   *mux.Router
	server   *http.Server
	validate *validator.Validate
	logger   *logging.Logger
	started  time.Time

	requestDuration *prometheus.HistogramVec
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Address string `yaml:"address"`

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout for HTTP responses; chat streams extend it to StreamTimeout
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// StreamTimeout bounds a streamed chat reply
	StreamTimeout time.Duration `yaml:"stream_timeout"`

	// RequestTimeout bounds assessment calls made on behalf of a request
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// EnablePprof enables Go profiling endpoints at /debug/pprof/*
	EnablePprof bool `yaml:"enable_pprof"`
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:         ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    45 * time.Second,
		StreamTimeout:   3 * time.Minute,
		RequestTimeout:  40 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxBodyBytes:    1 << 20,
		EnablePprof:     false,
	}
}

// NewServer wires every route.
func NewServer(deps Deps, config ServerConfig) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.L()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		deps:     deps,
		config:   config,
		router:   mux.NewRouter(),
		validate: newValidator(),
		logger:   deps.Logger.Named("api"),
		started:  time.Now(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "code"},
		),
	}
	if deps.Registerer != nil {
		if err := deps.Registerer.Register(s.requestDuration); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				s.requestDuration = are.ExistingCollector.(*prometheus.HistogramVec)
			} else {
				s.logger.Warn("http metrics not registered", zap.Error(err))
			}
		}
	}

	s.routes()

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.recoverer, s.instrument)

	// Health and status endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	// Metrics endpoints
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/metrics/json", s.handleMetricsJSON).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/calc/emi", s.handleEMI).Methods(http.MethodPost)
	api.HandleFunc("/calc/premium", s.handlePremium).Methods(http.MethodPost)
	api.HandleFunc("/credit/band", s.handleBand).Methods(http.MethodGet)
	api.HandleFunc("/credit/score", s.handleScore).Methods(http.MethodPost)
	api.HandleFunc("/credit/cards", s.handleCards).Methods(http.MethodPost)
	api.HandleFunc("/providers", s.handleProviders).Methods(http.MethodGet)
	api.HandleFunc("/languages", s.handleLanguages).Methods(http.MethodGet)

	api.HandleFunc("/assess/fraud", s.handleFraud).Methods(http.MethodPost)
	api.HandleFunc("/assess/loan", s.handleLoan).Methods(http.MethodPost)

	api.HandleFunc("/auth/signup", s.handleSignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/federated", s.handleFederated).Methods(http.MethodPost)

	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{id}", s.withSession(s.handleGetSession)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)

	sess := api.PathPrefix("/sessions/{id}").Subrouter()
	sess.HandleFunc("/language", s.withSession(s.handleSetLanguage)).Methods(http.MethodPut)
	sess.HandleFunc("/theme", s.withSession(s.handleGetTheme)).Methods(http.MethodGet)
	sess.HandleFunc("/theme", s.withSession(s.handleSetTheme)).Methods(http.MethodPut)

	sess.HandleFunc("/transfer", s.withSession(s.handleTransferSnapshot)).Methods(http.MethodGet)
	sess.HandleFunc("/transfer", s.withSession(s.handleTransferSubmit)).Methods(http.MethodPost)
	sess.HandleFunc("/transfer/pin", s.withSession(s.handleTransferPIN)).Methods(http.MethodPost)
	sess.HandleFunc("/transfer/cancel", s.withSession(s.handleTransferCancel)).Methods(http.MethodPost)
	sess.HandleFunc("/transfer/topup", s.withSession(s.handleTopUp)).Methods(http.MethodPost)
	sess.HandleFunc("/transactions", s.withSession(s.handleTransactions)).Methods(http.MethodGet)

	sess.HandleFunc("/expenses", s.withSession(s.handleListExpenses)).Methods(http.MethodGet)
	sess.HandleFunc("/expenses", s.withSession(s.handleAddExpense)).Methods(http.MethodPost)
	sess.HandleFunc("/expenses/{expenseID}", s.withSession(s.handleDeleteExpense)).Methods(http.MethodDelete)

	sess.HandleFunc("/chat", s.withSession(s.handleChatHistory)).Methods(http.MethodGet)
	sess.HandleFunc("/chat", s.withSession(s.handleChat)).Methods(http.MethodPost)

	// Optional pprof endpoints
	if s.config.EnablePprof {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("api listening", zap.String("address", s.config.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleHealth returns a simple health check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleStatus reports uptime, live sessions, the model breaker and the
// warm-up writers.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "running",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(s.started).String(),
		"sessions":  s.deps.Sessions.Len(),
		"model":     s.deps.Assessor.CircuitState().String(),
	}
	if s.deps.Cache != nil {
		response["cache"] = map[string]interface{}{
			"layers":  s.deps.Cache.String(),
			"writers": s.deps.Cache.Stats(),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// handleMetricsJSON returns the in-process metrics snapshot.
func (s *Server) handleMetricsJSON(w http.ResponseWriter, r *http.Request) {
	if s.deps.Snapshot == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "json metrics are not enabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Snapshot.Snapshot())
}
