package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/teamtally/teamtally/internal/mcp"
	"github.com/teamtally/teamtally/internal/platform/config"
	"github.com/teamtally/teamtally/internal/platform/otel"
	"github.com/teamtally/teamtally/internal/services/scoring/app"
	scoringsqlite "github.com/teamtally/teamtally/internal/services/scoring/storage/sqlite"
	"github.com/teamtally/teamtally/internal/telemetry"
)

type serverEnv struct {
	DBPath    string `env:"TEAMTALLY_SCORING_DB_PATH"`
	Transport string `env:"TEAMTALLY_MCP_TRANSPORT"`
	HTTPAddr  string `env:"TEAMTALLY_MCP_HTTP_ADDR"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "scoring.db")
	}
	if strings.TrimSpace(cfg.Transport) == "" {
		cfg.Transport = string(mcp.TransportStdio)
	}
	return cfg
}

// main starts the scoring MCP server on stdio or HTTP.
func main() {
	log.SetPrefix("[SCORING] ")
	cfg := loadServerEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "teamtally-scoring")
	if err != nil {
		log.Fatalf("setup tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	store, err := scoringsqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open scoring store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close scoring store: %v", err)
		}
	}()

	service := app.NewService(store, telemetry.NewEmitter(store))
	server, err := mcp.New(service, mcp.Config{
		Transport: mcp.TransportKind(cfg.Transport),
		HTTPAddr:  cfg.HTTPAddr,
	})
	if err != nil {
		log.Fatalf("configure MCP server: %v", err)
	}

	if err := server.Serve(ctx); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}
