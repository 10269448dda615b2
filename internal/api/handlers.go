package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Veraticus/the-sales-must-flow/internal/aggregate"
	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error string `json:"error"`
}

type invalidateRequest struct {
	SourceURL string `json:"source_url"`
}

type invalidateResponse struct {
	SourceURL string `json:"source_url,omitempty"`
	Scope     string `json:"scope"`
	Published bool   `json:"published"`
}

// badRequest marks input errors raised while reading query parameters.
type badRequest struct {
	err error
}

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	cfg := s.dashboard.Config()
	year, err := intParam(r, "year", cfg.Year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	table, err := s.dashboard.Table(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.NewRevenueView(aggregate.CityYearRevenue(table, year)))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	dimension, err := model.ParseDimension(chi.URLParam(r, "dimension"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	cfg := s.dashboard.Config()
	year, err := intParam(r, "year", cfg.Year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		city = cfg.Cities[0]
	}

	table, err := s.dashboard.Table(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.NewBreakdownView(aggregate.BreakdownBy(table, dimension, city, year)))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sel := dashboard.Selection{City: strings.TrimSpace(r.URL.Query().Get("city"))}
	if raw := r.URL.Query().Get("previous_year"); raw != "" {
		show, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, badRequest{fmt.Errorf("previous_year must be a boolean, got %q", raw)})
			return
		}
		sel.ShowPreviousYear = show
	}

	snapshot, err := s.dashboard.Render(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.NewSnapshotView(snapshot))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, badRequest{fmt.Errorf("invalid request body: %w", err)})
		return
	}

	resp := invalidateResponse{SourceURL: strings.TrimSpace(req.SourceURL), Scope: "all"}
	if resp.SourceURL == "" {
		s.cache.InvalidateAll()
	} else {
		resp.Scope = "source"
		s.cache.Invalidate(resp.SourceURL)
	}
	s.logger.Info("Cache invalidated", "scope", resp.Scope, "source", resp.SourceURL)

	if s.publisher != nil {
		if err := s.publisher.PublishInvalidation(r.Context(), resp.SourceURL); err != nil {
			s.logger.Warn("Failed to publish invalidation", "error", err)
		} else {
			resp.Published = true
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps an error onto the response status.
func statusFor(err error) int {
	var input badRequest
	switch {
	case errors.As(err, &input):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownCity):
		return http.StatusNotFound
	case errors.Is(err, common.ErrSchema), errors.Is(err, common.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrLoad):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest{fmt.Errorf("%s must be an integer, got %q", name, raw)}
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // Headers are already sent
}
