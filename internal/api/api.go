// Package api provides HTTP handlers and the main API server logic for InterviewPipe.
//
// It exposes RESTful endpoints for driving interview conversations and for
// seeding the question bank and state intro messages. The API integrates with
// the flow, validator, genai, and store modules.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/InterviewPipe/internal/flow"
	"github.com/BTreeMap/InterviewPipe/internal/genai"
	"github.com/BTreeMap/InterviewPipe/internal/store"
	"github.com/BTreeMap/InterviewPipe/internal/validator"
)

// DefaultAPIAddr is the listen address used when none is configured.
const DefaultAPIAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address for the API server.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server bundles the HTTP surface with the coordinator and store it fronts.
type Server struct {
	st          store.Store
	coordinator *flow.Coordinator
	addr        string
}

// NewServer creates an API server over an existing store and coordinator.
func NewServer(st store.Store, coordinator *flow.Coordinator, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAPIAddr
	}
	return &Server{st: st, coordinator: coordinator, addr: cfg.Addr}
}

// Run wires up the store, GenAI client, validator, and coordinator, then
// serves the HTTP API until the listener fails.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	slog.Debug("api.Run: initializing modules", "storeOpts", len(storeOpts), "genaiOpts", len(genaiOpts), "apiOpts", len(apiOpts))

	st, err := store.NewStore(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	coordinator := flow.NewCoordinator(st, validator.New(genaiClient))
	srv := NewServer(st, coordinator, apiOpts...)

	slog.Info("api.Run: InterviewPipe API running", "addr", srv.addr)
	return srv.ListenAndServe()
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler returns the routing mux for the API, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/interview/start", s.startHandler)
	mux.HandleFunc("/interview/continue", s.continueHandler)
	mux.HandleFunc("/interview/history", s.historyHandler)
	mux.HandleFunc("/questions", s.questionsHandler)
	mux.HandleFunc("/states", s.statesHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}
