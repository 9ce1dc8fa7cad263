package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (s *Server) getBalances(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if asset := r.URL.Query().Get("asset"); asset != "" {
		bal, err := s.ledgerSvc.Balance(r.Context(), account, asset)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"account": account,
			"asset":   asset,
			"balance": bal.String(),
		})
		return
	}
	balances, err := s.ledgerSvc.Balances(r.Context(), account)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	out := make(map[string]string, len(balances))
	for asset, bal := range balances {
		out[asset] = bal.String()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account":  account,
		"balances": out,
	})
}

func (s *Server) creditAccount(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	var req struct {
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be a decimal integer string")
		return
	}
	if err := s.ledgerSvc.Credit(r.Context(), account, req.Asset, amount, s.actorFromRequest(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	bal, err := s.ledgerSvc.Balance(r.Context(), account, req.Asset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account": account,
		"asset":   req.Asset,
		"balance": bal.String(),
	})
}
