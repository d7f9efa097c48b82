// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/poiesic/quickrag"
	"github.com/poiesic/quickrag/answer"
	"github.com/poiesic/quickrag/config"
	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/pipeline"
)

const (
	defaultRequestTimeout  = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	// formOverhead is allowed on top of the upload limit for the other form fields.
	formOverhead = 1 << 20
)

// Service runs ingestion and question answering requests.
type Service interface {
	Ingest(ctx context.Context, req *core.IngestionRequest, src pipeline.Source, opts ...pipeline.EmbeddingOption) (*quickrag.IngestResult, error)
	Ask(ctx context.Context, req quickrag.AskRequest) (*answer.Answer, error)
}

var _ Service = (*quickrag.App)(nil)

// Server exposes a Service over HTTP.
type Server struct {
	service         Service
	apiKey          string
	corsOrigins     []string
	maxUpload       int64
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	httpServer      *http.Server
	logger          *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds the handling time of a single request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithShutdownTimeout bounds how long in-flight requests may finish on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds the router. cfg must carry the pre-shared API key.
func New(cfg *config.Config, service Service, opts ...Option) (*Server, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	if service == nil {
		return nil, errors.New("service required")
	}

	s := &Server{
		service:         service,
		apiKey:          cfg.APIKey,
		corsOrigins:     cfg.CORSOrigins,
		maxUpload:       cfg.MaxUploadBytes(),
		requestTimeout:  defaultRequestTimeout,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(s.requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", APIKeyHeader},
		AllowCredentials: true,
	}))

	r.Group(func(protected chi.Router) {
		protected.Use(requireAPIKey(s.apiKey))
		protected.Get("/", s.health)
		protected.Post("/upload-and-generate-embeddings", s.uploadAndGenerateEmbeddings)
		protected.Post("/get-answer", s.getAnswer)
	})
	return r
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", l.Addr().String())
		errCh <- s.httpServer.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}
