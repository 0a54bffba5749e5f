// Package mcp exposes the scoring workflows as MCP tools for operator
// assistants.
package mcp

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/teamtally/teamtally/internal/services/scoring/app"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/ledger"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
	"github.com/teamtally/teamtally/internal/services/scoring/storage"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "TeamTally Scoring MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	Transport TransportKind
	// HTTPAddr is the listen address for the HTTP transport. Defaults to
	// localhost:8081.
	HTTPAddr string
}

// ScoringService is the application surface the tool handlers call.
type ScoringService interface {
	ListRules(ctx context.Context, teamID string) ([]rule.Rule, error)
	Preview(ctx context.Context, in app.CompleteMatchInput) (app.CompleteMatchResult, error)
	CompleteMatch(ctx context.Context, in app.CompleteMatchInput) (app.CompleteMatchResult, error)
	ReopenMatch(ctx context.Context, matchID string) (app.ReopenMatchResult, error)
	Leaderboard(ctx context.Context, teamID string, pointType ledger.PointType) ([]storage.PlayerTotal, error)
}

var _ ScoringService = (*app.Service)(nil)

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	config    Config
}

// New creates a configured MCP server backed by the scoring service.
func New(service ScoringService, config Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	if config.Transport == "" {
		config.Transport = TransportStdio
	}
	if strings.TrimSpace(config.HTTPAddr) == "" {
		config.HTTPAddr = "localhost:8081"
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerTools(mcpServer, service)

	return &Server{mcpServer: mcpServer, config: config}, nil
}

func registerTools(mcpServer *mcp.Server, service ScoringService) {
	mcp.AddTool(mcpServer, ListRulesTool(), ListRulesHandler(service))
	mcp.AddTool(mcpServer, ValidateRuleTool(), ValidateRuleHandler())
	mcp.AddTool(mcpServer, PreviewMatchScoringTool(), PreviewMatchScoringHandler(service))
	mcp.AddTool(mcpServer, CompleteMatchTool(), CompleteMatchHandler(service))
	mcp.AddTool(mcpServer, ReopenMatchTool(), ReopenMatchHandler(service))
	mcp.AddTool(mcpServer, TeamLeaderboardTool(), TeamLeaderboardHandler(service))
}

// Serve runs the server on the configured transport until the context is
// canceled.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	switch s.config.Transport {
	case TransportHTTP:
		return s.serveHTTP(ctx)
	default:
		return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	}
}

func (s *Server) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	httpServer := &http.Server{Addr: s.config.HTTPAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("MCP HTTP server listening on %s/mcp", s.config.HTTPAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx := context.Background()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown MCP HTTP server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve MCP HTTP: %w", err)
		}
		return nil
	}
}
