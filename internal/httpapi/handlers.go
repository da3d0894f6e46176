package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"cookiesync/internal/engine"
)

type statusResponse struct {
	Enabled   bool                    `json:"enabled"`
	Platforms []engine.PlatformStatus `json:"platforms"`
}

type refreshRequest struct {
	Platforms    []string `json:"platforms,omitempty"`
	ForceRefresh bool     `json:"force_refresh"`
}

type refreshResponse struct {
	Success bool                      `json:"success"`
	Results map[string]engine.Outcome `json:"results"`
	Message string                    `json:"message"`
}

type testConnectionResponse struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	ServerInfo *engine.ConnectionInfo `json:"server_info,omitempty"`
}

type platformsResponse struct {
	Platforms     []string          `json:"platforms"`
	DomainMapping map[string]string `json:"domain_mapping"`
	Enabled       bool              `json:"enabled"`
}

type clearCacheResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Enabled:   s.view.Enabled,
		Platforms: s.orch.Status(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	results := s.orch.Refresh(r.Context(), req.Platforms, req.ForceRefresh)

	succeeded := 0
	var failed []string
	for id, out := range results {
		if out.Status == engine.StatusFailed {
			failed = append(failed, id)
			continue
		}
		succeeded++
	}
	sort.Strings(failed)

	msg := fmt.Sprintf("refreshed %d/%d platforms", succeeded, len(results))
	if len(failed) > 0 {
		msg += ", failed: " + strings.Join(failed, ", ")
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Success: len(failed) == 0,
		Results: results,
		Message: msg,
	})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if !s.view.Enabled {
		writeJSON(w, http.StatusOK, testConnectionResponse{
			Success: false,
			Message: "cookie sync is disabled",
		})
		return
	}
	info, err := s.orch.TestConnection(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, testConnectionResponse{
			Success: false,
			Message: fmt.Sprintf("connection test failed: %v", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, testConnectionResponse{
		Success:    true,
		Message:    "connection ok",
		ServerInfo: &info,
	})
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	platforms := s.orch.Platforms()
	resp := platformsResponse{
		Platforms:     make([]string, 0, len(platforms)),
		DomainMapping: make(map[string]string, len(platforms)),
		Enabled:       s.view.Enabled,
	}
	for _, p := range platforms {
		resp.Platforms = append(resp.Platforms, p.ID)
		resp.DomainMapping[p.ID] = p.Domain
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if raw := strings.TrimSpace(r.URL.Query().Get("platforms")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if err := s.orch.ClearCache(ids); err != nil {
		writeJSON(w, http.StatusBadRequest, clearCacheResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, clearCacheResponse{
		Success: true,
		Message: "cookie cache cleared",
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
