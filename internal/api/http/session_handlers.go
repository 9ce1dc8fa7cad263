package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	appSettlement "github.com/settlement-hub/settlement-hub/internal/application/settlement"
	"github.com/settlement-hub/settlement-hub/internal/domain/dispute"
	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
	"github.com/settlement-hub/settlement-hub/internal/domain/session"
)

type lockRequest struct {
	SessionID string `json:"session_id"`
	Payer     string `json:"payer"`
	Payee     string `json:"payee"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	FeeBps    *int   `json:"fee_bps,omitempty"`
}

func (s *Server) lockSession(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be a decimal integer string")
		return
	}
	var feeBps int
	if req.FeeBps != nil {
		feeBps = *req.FeeBps
	} else {
		// Omitted fee_bps freezes the current platform rate.
		p, err := s.paramsSvc.Get(r.Context())
		if err != nil {
			respondDomainError(w, err)
			return
		}
		feeBps = p.FeeBps
	}
	sess, err := s.settlementSvc.Lock(r.Context(), appSettlement.LockInput{
		SessionID: req.SessionID,
		Payer:     req.Payer,
		Payee:     req.Payee,
		Asset:     req.Asset,
		Amount:    amount,
		FeeBps:    feeBps,
		Caller:    s.actorFromRequest(r),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 200)
	filter := session.Filter{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := session.Status(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("account"); v != "" {
		account := v
		filter.Account = &account
	}
	if v := r.URL.Query().Get("asset"); v != "" {
		asset := v
		filter.Asset = &asset
	}
	sessions, err := s.settlementSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.settlementSvc.Get(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) approveSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.settlementSvc.Approve(r.Context(), chi.URLParam(r, "sessionId"), s.actorFromRequest(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) settleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.settlementSvc.Settle(r.Context(), chi.URLParam(r, "sessionId"), s.actorFromRequest(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) settleSessionWithVoucher(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Voucher releaseauth.Voucher `json:"voucher"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	sess, err := s.settlementSvc.SettleWithVoucher(r.Context(), chi.URLParam(r, "sessionId"), req.Voucher, s.actorFromRequest(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) openDispute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	d, err := s.settlementSvc.OpenDispute(r.Context(), chi.URLParam(r, "sessionId"), s.actorFromRequest(r), req.Reason)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) resolveDispute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Outcome string `json:"outcome"`
		Reason  string `json:"reason,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	d, err := s.settlementSvc.ResolveDispute(r.Context(), chi.URLParam(r, "sessionId"), s.actorFromRequest(r), dispute.Outcome(req.Outcome), req.Reason)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) listSessionDisputes(w http.ResponseWriter, r *http.Request) {
	disputes, err := s.settlementSvc.GetDisputes(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"disputes": disputes})
}

func (s *Server) listDisputes(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 200)
	var status *dispute.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := dispute.Status(v)
		status = &st
	}
	disputes, err := s.settlementSvc.ListDisputes(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"disputes": disputes})
}
