package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/auth"
	"github.com/sha1n/mcp-repo-radar/internal/config"
)

// StartSSEServer starts the HTTP server with authentication
func StartSSEServer(s *mcp.Server, settings *config.Settings) error {
	srv, err := NewSSEServer(s, settings)
	if err != nil {
		return err
	}

	slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type)
	return srv.ListenAndServe()
}

// NewSSEServer creates the HTTP server exposing the MCP server over SSE
// (/sse) and streamable HTTP (/mcp), behind the auth middleware.
func NewSSEServer(s *mcp.Server, settings *config.Settings) (*http.Server, error) {
	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	getServer := func(r *http.Request) *mcp.Server {
		return s
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(authMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/sse", mcp.NewSSEHandler(getServer, nil))
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(getServer, nil))

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", settings.Host, settings.Port),
		Handler: r,
	}, nil
}
