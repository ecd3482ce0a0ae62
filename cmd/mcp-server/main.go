package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/config"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/database"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/query"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/relay"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/schema"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/server"
	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/server/metrics"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultMetricsAddr = "0.0.0.0:0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	enablePprofFlag := flag.Bool("enable-pprof", false, "enable pprof server")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "address to listen on for prometheus metrics")
	listenAddrFlag := flag.String("listen-addr", "", "HTTP server listen address (default: 0.0.0.0:$PORT)")
	showVersionFlag := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersionFlag {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		return nil
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		if missing, ok := err.(*config.MissingVarsError); ok {
			fmt.Printf("Missing required environment variables: %s\n", strings.Join(missing.Names, ", "))
			fmt.Println("Please set these in your .env file")
			os.Exit(1)
		}
		return err
	}

	log := newLogger(*verboseFlag)

	listenAddr := *listenAddrFlag
	if listenAddr == "" {
		listenAddr = fmt.Sprintf("0.0.0.0:%d", cfg.ListenPort)
	}

	metricsAddr := *metricsAddrFlag
	if envAddr := os.Getenv("METRICS_ADDR"); envAddr != "" {
		metricsAddr = envAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *enablePprofFlag {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	var metricsServerErrCh = make(chan error, 1)
	if metricsAddr != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", metricsAddr)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				metricsServerErrCh <- err
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
				metricsServerErrCh <- err
			}
		}()
	}

	provider := database.NewPgxProvider(log, cfg.DB)
	log.Info("database configured", "target", cfg.DB.Redacted())

	facade, err := query.NewFacade(query.FacadeConfig{
		Logger:   log,
		Provider: provider,
		Clock:    clockwork.NewRealClock(),
	})
	if err != nil {
		return fmt.Errorf("failed to create query facade: %w", err)
	}

	reporter, err := schema.NewReporter(schema.ReporterConfig{
		Logger:   log,
		Provider: provider,
	})
	if err != nil {
		return fmt.Errorf("failed to create schema reporter: %w", err)
	}

	nlRelay, err := relay.New(relay.Config{
		Logger: log,
		Schema: reporter,
		Clock:  clockwork.NewRealClock(),
	})
	if err != nil {
		return fmt.Errorf("failed to create relay: %w", err)
	}

	srv, err := server.New(ctx, server.Config{
		Logger:        log,
		Executor:      facade,
		Reporter:      reporter,
		Relay:         nlRelay,
		Provider:      provider,
		Version:       version,
		ListenAddr:    listenAddr,
		AllowedTokens: allowedTokens(log),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Println("Starting MCP Server...")
	fmt.Println("Available tools:")
	for _, tool := range server.Tools {
		fmt.Printf("- %s: %s\n", tool.Name, tool.Summary)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.Run(ctx); err != nil {
			serverErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("server: shutting down", "reason", ctx.Err())
		return nil
	case err := <-serverErrCh:
		log.Error("server: server error causing shutdown", "error", err)
		return err
	case err := <-metricsServerErrCh:
		log.Error("server: metrics server error causing shutdown", "error", err)
		return err
	}
}

// allowedTokens parses bearer tokens from the environment (comma-separated).
// Auth can be explicitly disabled with MCP_AUTH_DISABLED=true.
func allowedTokens(log *slog.Logger) []string {
	if os.Getenv("MCP_AUTH_DISABLED") == "true" {
		log.Info("mcp server: authentication explicitly disabled")
		return nil
	}

	tokensEnv := os.Getenv("MCP_ALLOWED_TOKENS")
	if tokensEnv == "" {
		log.Info("mcp server: authentication disabled (no tokens configured)")
		return nil
	}

	var tokens []string
	for token := range strings.SplitSeq(tokensEnv, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) > 0 {
		log.Info("mcp server: token authentication enabled", "token_count", len(tokens))
	}
	return tokens
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(t.Format(time.RFC3339))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}
