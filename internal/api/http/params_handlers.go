package httpapi

import (
	"net/http"
	"time"
)

type initializeParamsRequest struct {
	Treasury             string `json:"treasury"`
	FeeBps               int    `json:"fee_bps"`
	DisputeWindowSeconds int64  `json:"dispute_window_seconds"`
}

func (s *Server) initializeParams(w http.ResponseWriter, r *http.Request) {
	var req initializeParamsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	p, err := s.paramsSvc.Initialize(r.Context(), s.actorFromRequest(r), req.Treasury, req.FeeBps,
		time.Duration(req.DisputeWindowSeconds)*time.Second)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) getParams(w http.ResponseWriter, r *http.Request) {
	p, err := s.paramsSvc.Get(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) setDisputeWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisputeWindowSeconds int64 `json:"dispute_window_seconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	p, err := s.paramsSvc.SetDisputeWindow(r.Context(), s.actorFromRequest(r),
		time.Duration(req.DisputeWindowSeconds)*time.Second)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) setFeeBps(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeeBps int `json:"fee_bps"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	p, err := s.paramsSvc.SetFeeBps(r.Context(), s.actorFromRequest(r), req.FeeBps)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) setTreasury(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Treasury string `json:"treasury"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	p, err := s.paramsSvc.SetTreasury(r.Context(), s.actorFromRequest(r), req.Treasury)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
