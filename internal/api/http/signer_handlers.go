package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listSigners(w http.ResponseWriter, r *http.Request) {
	includeRevoked := r.URL.Query().Get("includeRevoked") == "true"
	signers, err := s.signerSvc.List(r.Context(), includeRevoked)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"signers": signers})
}

func (s *Server) addSigner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SignerID    string `json:"signer_id"`
		PublicKey   string `json:"public_key"`
		Description string `json:"description,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	sg, err := s.signerSvc.Add(r.Context(), req.SignerID, req.PublicKey, req.Description, s.actorFromRequest(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sg)
}

func (s *Server) revokeSigner(w http.ResponseWriter, r *http.Request) {
	signerID := chi.URLParam(r, "signerId")
	if err := s.signerSvc.Revoke(r.Context(), signerID, s.actorFromRequest(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"signer_id": signerID, "status": "REVOKED"})
}
