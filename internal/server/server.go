// Package server exposes the database bridge as MCP tools over streamable
// HTTP. Tool handlers return normally-shaped results even on failure; the
// transport never sees a fault for a data-level error.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/abhisheksingh810/skill-coins-postgres-mcp/internal/server/metrics"
)

// ServerName identifies this MCP implementation to clients.
const ServerName = "postgres-nl-query-server"

// ToolSummary is a name plus the one-line description printed at startup.
type ToolSummary struct {
	Name    string
	Summary string
}

// Tools lists the exposed tools in announcement order.
var Tools = []ToolSummary{
	{Name: "natural_language_query", Summary: "Convert natural language to SQL and execute"},
	{Name: "execute_sql_query", Summary: "Execute SQL queries against PostgreSQL database"},
	{Name: "get_database_schema", Summary: "Get database schema information"},
}

type Server struct {
	log  *slog.Logger
	cfg  Config
	mcp  *mcp.Server
	http *http.Server
}

func New(ctx context.Context, cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		log: cfg.Logger,
		cfg: cfg,
		mcp: mcpServer,
	}

	if err := RegisterExecuteSQLTool(s.log, mcpServer, cfg.Executor); err != nil {
		return nil, fmt.Errorf("failed to register execute_sql_query tool: %w", err)
	}
	if err := RegisterNaturalLanguageTool(s.log, mcpServer, cfg.Relay); err != nil {
		return nil, fmt.Errorf("failed to register natural_language_query tool: %w", err)
	}
	if err := RegisterSchemaTool(s.log, mcpServer, cfg.Reporter); err != nil {
		return nil, fmt.Errorf("failed to register get_database_schema tool: %w", err)
	}

	mux := http.NewServeMux()
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{
		Stateless: true, // Auto-initialize sessions, no manual initialize required
	})

	metricsHandler := s.metricsMiddleware(handler)
	if len(cfg.AllowedTokens) > 0 {
		mux.Handle("/", s.authMiddleware(metricsHandler))
	} else {
		mux.Handle("/", metricsHandler)
	}

	mux.Handle("/healthz", s.metricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok\n")); err != nil {
			s.log.Error("failed to write healthz response", "error", err)
		}
	})))
	mux.Handle("/readyz", s.metricsMiddleware(http.HandlerFunc(s.readyzHandler)))

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	return s, nil
}

func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server: http server error", "error", err)
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.log.Info("server: mcp streamable http listening",
		"listenAddr", s.cfg.ListenAddr,
	)

	select {
	case <-ctx.Done():
		s.log.Info("server: stopping",
			"reason", ctx.Err(),
			"listenAddr", s.cfg.ListenAddr,
		)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		s.log.Info("server: HTTP server shutdown complete")
		return nil
	case err := <-serveErrCh:
		s.log.Error("server: http server error causing shutdown",
			"error", err,
			"listenAddr", s.cfg.ListenAddr,
		)
		return err
	}
}

// readyzHandler acquires and releases a database connection. Because there
// is no pool, this pays the same connection-setup cost as any tool call.
func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Provider != nil {
		conn, err := s.cfg.Provider.Acquire(r.Context())
		if err != nil {
			s.log.Debug("readyz: database not reachable", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("database not reachable\n")); err != nil {
				s.log.Error("failed to write readyz response", "error", err)
			}
			return
		}
		if err := conn.Close(r.Context()); err != nil {
			s.log.Error("readyz: failed to close connection", "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write readyz response", "error", err)
	}
}

// authMiddleware wraps an HTTP handler with Bearer token authentication
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.rejectUnauthorized(w, "missing_header", "unauthorized: missing authorization header\n")
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			s.rejectUnauthorized(w, "invalid_format", "unauthorized: invalid authorization header format\n")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			s.rejectUnauthorized(w, "empty_token", "unauthorized: empty token\n")
			return
		}

		allowed := false
		for _, allowedToken := range s.cfg.AllowedTokens {
			if token == allowedToken {
				allowed = true
				break
			}
		}
		if !allowed {
			s.rejectUnauthorized(w, "invalid_token", "unauthorized: invalid token\n")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rejectUnauthorized(w http.ResponseWriter, reason, body string) {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	w.Header().Set("WWW-Authenticate", `Bearer`)
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(body)); err != nil {
		s.log.Error("failed to write auth error response", "error", err)
	}
}

// metricsMiddleware wraps an HTTP handler with metrics collection
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		method := r.Method
		endpoint := r.URL.Path

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(startTime).Seconds()
		status := fmt.Sprintf("%d", wrapped.statusCode)

		metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HTTPRequestDuration.Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
