package api

import (
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apimcp "github.com/papercomputeco/stacks/api/mcp"
)

// Server is the API server for ingesting and querying documents.
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. All collaborators are injected through
// Config so tests can swap in mocks.
func NewServer(config Config) (*Server, error) {
	if config.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if config.Coordinator == nil {
		return nil, errors.New("ingestion coordinator is required")
	}
	if config.Ranker == nil {
		return nil, errors.New("retrieval ranker is required")
	}
	if config.Synthesizer == nil {
		return nil, errors.New("answer synthesizer is required")
	}
	if config.Store == nil {
		return nil, errors.New("store is required")
	}
	if config.Logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: config.Logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/healthz", s.handleHealthz)
	app.Post("/api/pdfs/upload", s.handleUpload)
	app.Post("/api/pdfs/query/:documentId", s.handleQuery)

	mcpServer, err := apimcp.NewServer(apimcp.Config{
		Ranker:      config.Ranker,
		Synthesizer: config.Synthesizer,
		Logger:      config.Logger,
	})
	if err != nil {
		return nil, err
	}
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
