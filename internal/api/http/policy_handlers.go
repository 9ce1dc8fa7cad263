package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appPolicy "github.com/settlement-hub/settlement-hub/internal/application/policy"
	"github.com/settlement-hub/settlement-hub/internal/domain/policy"
)

func (s *Server) listPolicyRules(w http.ResponseWriter, r *http.Request) {
	filter := policy.Filter{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := policy.RuleStatus(v)
		filter.Status = &status
	}
	rules, err := s.policySvc.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

func (s *Server) createPolicyRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Expression  string `json:"expression"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	rule, err := s.policySvc.Create(r.Context(), appPolicy.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
	}, s.actorFromRequest(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (s *Server) archivePolicyRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid ruleId")
		return
	}
	if err := s.policySvc.Archive(r.Context(), ruleID, s.actorFromRequest(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rule_id": ruleID, "status": "ARCHIVED"})
}

func (s *Server) setPolicyRuleStatus(w http.ResponseWriter, r *http.Request) {
	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid ruleId")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if err := s.policySvc.SetStatus(r.Context(), ruleID, policy.RuleStatus(req.Status), s.actorFromRequest(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rule_id": ruleID, "status": req.Status})
}
