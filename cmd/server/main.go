package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/openmedicaid/nadac-mcp/config"
	"github.com/openmedicaid/nadac-mcp/internal/datastore"
	"github.com/openmedicaid/nadac-mcp/internal/pricing"
	"github.com/openmedicaid/nadac-mcp/internal/registry"
	"github.com/openmedicaid/nadac-mcp/internal/runtime"
	"github.com/openmedicaid/nadac-mcp/internal/telemetry"
	"github.com/openmedicaid/nadac-mcp/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		useStdio        bool
		httpAddr        string
		configPath      string
		shutdownTimeout time.Duration
	)

	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.StringVar(&httpAddr, "http", "", "Listen address for the HTTP transport (e.g. :8080)")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file path")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.Parse()

	logger := zlog.With().Str("service", "nadac-mcp-server").Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	// NADAC_MCP_TRANSPORT picks the transport when no flag was given.
	if !useStdio && httpAddr == "" {
		switch strings.ToLower(os.Getenv("NADAC_MCP_TRANSPORT")) {
		case "http":
			httpAddr = os.Getenv("NADAC_MCP_HTTP_ADDR")
			if httpAddr == "" {
				httpAddr = ":8080"
			}
		case "stdio", "":
			useStdio = true
		}
	}

	client := datastore.NewClient(cfg)
	builder := pricing.NewBuilder(cfg.RecencyCutoff, time.Now)

	limits := runtime.NewLimits(cfg.MaxConcurrentRequests)
	limits.OperationTimeout = cfg.OperationTimeout
	runtimeController := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(runtimeController, logger)

	toolRegistry := registry.New()
	toolFilter := registry.NewToolFilterFromEnv()

	srv := server.NewMCPServer(
		"NADAC Drug Pricing Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(telemetry.Hooks(logger)),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
		server.WithToolFilter(toolFilter.FilterTools),
	)

	registry.RegisterTools(srv, toolRegistry, registry.Deps{
		Client:  client,
		Builder: builder,
	})

	logger.Info().
		Str("version", version.Version()).
		Str("dataset_id", cfg.DatasetID).
		Str("recency_cutoff", cfg.RecencyCutoff).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if useStdio {
		if err := server.ServeStdio(srv); err != nil {
			// Use stderr for transport errors so clients don't misinterpret output
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if httpAddr == "" {
		fmt.Fprintln(os.Stderr, "no transport selected; use --stdio or --http ADDR")
		os.Exit(2)
	}

	if err := serveHTTP(srv, toolRegistry, logger, httpAddr, shutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("http transport failed")
		os.Exit(1)
	}
}

// serveHTTP mounts the streamable MCP handler at /mcp next to a health
// endpoint and blocks until SIGINT/SIGTERM triggers a graceful shutdown.
func serveHTTP(srv *server.MCPServer, tools registry.ToolProvider, logger zerolog.Logger, addr string, shutdownTimeout time.Duration) error {
	streamable := server.NewStreamableHTTPServer(srv, server.WithEndpointPath("/mcp"))

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)
	mux.HandleFunc("/health", healthHandler(tools))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("http transport listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// healthHandler reports liveness plus the registered tool names so operators
// can see the effective tool surface without an MCP client.
func healthHandler(tools registry.ToolProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := []string{}
		if defs, err := tools.Tools(r.Context()); err == nil {
			for _, def := range defs {
				names = append(names, def.Name)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"version": version.Version(),
			"tools":   names,
		})
	}
}
