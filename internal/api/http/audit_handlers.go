package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
)

func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	params := appAudit.QueryParams{
		Limit: 50,
	}
	q := r.URL.Query()
	if v := q.Get("entityType"); v != "" {
		params.EntityType = &v
	}
	if v := q.Get("entityId"); v != "" {
		params.EntityID = &v
	}
	if v := q.Get("action"); v != "" {
		params.Action = &v
	}
	if v := q.Get("actor"); v != "" {
		params.Actor = &v
	}
	if v := q.Get("riskLevel"); v != "" {
		params.RiskLevel = &v
	}
	if v := q.Get("sessionId"); v != "" {
		params.SessionID = &v
	}
	if v := q.Get("traceId"); v != "" {
		params.TraceID = &v
	}
	if v := q.Get("startTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.StartTime = &t
		}
	}
	if v := q.Get("endTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.EndTime = &t
		}
	}
	if v := q.Get("tags"); v != "" {
		params.Tags = splitCSV(v)
	}
	if v := q.Get("cursor"); v != "" {
		params.Cursor = &v
	}
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			params.Limit = l
		}
	}
	res, err := s.auditSvc.Query(r.Context(), params, "")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "auditId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid auditId")
		return
	}
	log, err := s.auditSvc.GetByID(r.Context(), id, "")
	if err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, log)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
