// Package mcp exposes the orchestration pipeline and the execution router
// as MCP tools over the stdio transport, using the MCP SDK
// (github.com/modelcontextprotocol/go-sdk/mcp).
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/orchestrator"
	"github.com/fyrsmithlabs/workflowd/internal/router"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// Server wires the orchestrator, router, and validator behind MCP tools.
type Server struct {
	mcp          *mcp.Server
	orchestrator *orchestrator.Orchestrator
	router       *router.Router
	validator    workflow.Validator
	metrics      *Metrics
	logger       *zap.Logger
	maxRetries   int
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "workflowd").
	Name string

	// Version is the server version (default: "0.1.0").
	Version string

	// MaxRetries caps retries for orchestrate_workflow calls that opt in
	// to retrying (default: 2).
	MaxRetries int

	// Logger for structured logging.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:       "workflowd",
		Version:    "0.1.0",
		MaxRetries: 2,
		Logger:     zap.NewNop(),
	}
}

// NewServer creates an MCP server over the given services.
func NewServer(
	cfg *Config,
	orch *orchestrator.Orchestrator,
	rtr *router.Router,
	validator workflow.Validator,
) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if rtr == nil {
		return nil, fmt.Errorf("router is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:          mcpServer,
		orchestrator: orch,
		router:       rtr,
		validator:    validator,
		metrics:      NewMetrics(cfg.Logger),
		logger:       cfg.Logger,
		maxRetries:   cfg.MaxRetries,
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on the stdio transport and blocks until the
// client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Close shuts down the orchestration pipeline.
func (s *Server) Close() error {
	s.logger.Info("closing MCP server")
	if err := s.orchestrator.Shutdown(); err != nil {
		return fmt.Errorf("orchestrator shutdown: %w", err)
	}
	return nil
}
