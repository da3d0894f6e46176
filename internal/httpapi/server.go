// Package httpapi exposes the orchestrator over HTTP as thin
// pass-through endpoints.
package httpapi

import (
	"context"
	"net/http"

	"cookiesync/internal/engine"
)

// Orchestrator is the slice of the refresh engine the API serves.
type Orchestrator interface {
	Refresh(ctx context.Context, ids []string, force bool) map[string]engine.Outcome
	Status() []engine.PlatformStatus
	TestConnection(ctx context.Context) (engine.ConnectionInfo, error)
	ClearCache(ids []string) error
	Platforms() []engine.Platform
}

// ConfigView is the non-sensitive configuration slice reported by the API.
type ConfigView struct {
	Enabled          bool  `json:"enabled"`
	CacheTTLSeconds  int64 `json:"cache_ttl"`
	FallbackEnabled  bool  `json:"fallback_enabled"`
	ServerConfigured bool  `json:"server_configured"`
	PlatformCount    int   `json:"platform_count"`
}

type Server struct {
	router *http.ServeMux
	orch   Orchestrator
	view   ConfigView
}

func NewServer(orch Orchestrator, view ConfigView) *Server {
	s := &Server{
		router: http.NewServeMux(),
		orch:   orch,
		view:   view,
	}
	s.router.HandleFunc("GET /cookiecloud/status", s.handleStatus)
	s.router.HandleFunc("POST /cookiecloud/refresh", s.handleRefresh)
	s.router.HandleFunc("POST /cookiecloud/test-connection", s.handleTestConnection)
	s.router.HandleFunc("GET /cookiecloud/platforms", s.handlePlatforms)
	s.router.HandleFunc("DELETE /cookiecloud/cache", s.handleClearCache)
	s.router.HandleFunc("GET /cookiecloud/config", s.handleConfig)
	return s
}

// Handler returns the routed handler, for embedding in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}
