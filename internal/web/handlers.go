package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/go-chi/chi/v5"
)

// tableInfo is the API view of one catalog entry.
type tableInfo struct {
	Name           string            `json:"name"`
	RequiredFields []string          `json:"required_fields"`
	ForeignKeys    map[string]string `json:"foreign_keys"`
	TenantScoped   bool              `json:"tenant_scoped"`
}

// handleImport runs a dry run or a real import into the tenant in the URL.
// Once the engine runs, the response is 200 with the ImportResult, even
// when the import failed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mode, err := core.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %q", err, r.URL.Query().Get("mode")))
		return
	}

	payload, err := s.decodeBody(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Import(r.Context(), core.ImportRequest{
		Mode:     mode,
		TenantID: chi.URLParam(r, "tenantID"),
		Payload:  payload,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleValidate runs a dry run that is not tied to a tenant.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	payload, err := s.decodeBody(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Validate(r.Context(), payload)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeBody reads the backup from the request body within the size limit.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (*core.Payload, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxPayloadSize)
	defer body.Close()

	payload, err := core.DecodePayload(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		return nil, err
	}
	return payload, nil
}

// handleListTables returns the catalog in import order.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables := s.service.Tables()
	out := make([]tableInfo, len(tables))
	for i, td := range tables {
		out[i] = tableInfo{
			Name:           td.Name,
			RequiredFields: nonNil(td.RequiredFields),
			ForeignKeys:    td.ForeignKeys,
			TenantScoped:   td.TenantScoped,
		}
		if out[i].ForeignKeys == nil {
			out[i].ForeignKeys = map[string]string{}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": out, "count": len(out)})
}

// handleHistory lists recent imports of a tenant.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20)

	runs, err := s.service.History(r.Context(), chi.URLParam(r, "tenantID"), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleHealth reports liveness and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
