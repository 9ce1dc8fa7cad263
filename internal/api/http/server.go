package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appAccount "github.com/settlement-hub/settlement-hub/internal/application/account"
	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	appAuth "github.com/settlement-hub/settlement-hub/internal/application/auth"
	appLedger "github.com/settlement-hub/settlement-hub/internal/application/ledger"
	appParams "github.com/settlement-hub/settlement-hub/internal/application/params"
	appPolicy "github.com/settlement-hub/settlement-hub/internal/application/policy"
	appSettlement "github.com/settlement-hub/settlement-hub/internal/application/settlement"
	appSigner "github.com/settlement-hub/settlement-hub/internal/application/signer"
	domainUser "github.com/settlement-hub/settlement-hub/internal/domain/user"
	"github.com/settlement-hub/settlement-hub/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	settlementSvc       *appSettlement.Service
	paramsSvc           *appParams.Service
	ledgerSvc           *appLedger.Service
	signerSvc           *appSigner.Service
	policySvc           *appPolicy.Service
	auditSvc            *appAudit.Service
	authSvc             *appAuth.Service
	accountSvc          *appAccount.Service
	sseHub              *sse.Hub
	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	settlementSvc *appSettlement.Service,
	paramsSvc *appParams.Service,
	ledgerSvc *appLedger.Service,
	signerSvc *appSigner.Service,
	policySvc *appPolicy.Service,
	auditSvc *appAudit.Service,
	authSvc *appAuth.Service,
	accountSvc *appAccount.Service,
	sseHub *sse.Hub,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		settlementSvc:       settlementSvc,
		paramsSvc:           paramsSvc,
		ledgerSvc:           ledgerSvc,
		signerSvc:           signerSvc,
		policySvc:           policySvc,
		auditSvc:            auditSvc,
		authSvc:             authSvc,
		accountSvc:          accountSvc,
		sseHub:              sseHub,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(auditRequestContext)

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/bootstrap", s.bootstrapAdmin)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
			})
		})

		r.Post("/users", s.registerUser)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/users/me", s.me)
			r.With(s.requireRole(string(domainUser.RoleAdmin))).Get("/users", s.listUsers)
			r.With(s.requireRole(string(domainUser.RoleAdmin))).Patch("/users/{userId}", s.updateUser)

			r.Route("/params", func(r chi.Router) {
				r.Post("/initialize", s.initializeParams)
				r.Get("/", s.getParams)
				r.Put("/dispute-window", s.setDisputeWindow)
				r.Put("/fee", s.setFeeBps)
				r.Put("/treasury", s.setTreasury)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", s.lockSession)
				r.Get("/", s.listSessions)
				r.Get("/{sessionId}", s.getSession)
				r.Post("/{sessionId}/approve", s.approveSession)
				r.Post("/{sessionId}/settle", s.settleSession)
				r.Post("/{sessionId}/settle-voucher", s.settleSessionWithVoucher)
				r.Post("/{sessionId}/dispute", s.openDispute)
				r.Post("/{sessionId}/resolve", s.resolveDispute)
				r.Get("/{sessionId}/disputes", s.listSessionDisputes)
			})

			r.Get("/disputes", s.listDisputes)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/{account}/balances", s.getBalances)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Post("/{account}/credit", s.creditAccount)
			})

			r.Route("/signers", func(r chi.Router) {
				r.Use(s.requireRole(string(domainUser.RoleAdmin)))
				r.Get("/", s.listSigners)
				r.Post("/", s.addSigner)
				r.Delete("/{signerId}", s.revokeSigner)
			})

			r.Route("/policy/rules", func(r chi.Router) {
				r.Get("/", s.listPolicyRules)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Post("/", s.createPolicyRule)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Delete("/{ruleId}", s.archivePolicyRule)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Patch("/{ruleId}/status", s.setPolicyRuleStatus)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Use(s.requireRole(string(domainUser.RoleAdmin)))
				r.Get("/", s.queryAudit)
				r.Get("/{auditId}", s.getAudit)
			})

			r.Get("/events/sse", s.sseEndpoint)
		})
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// actorFromRequest returns the authenticated account name. Handlers behind
// requireAuth always get a non-empty actor.
func (s *Server) actorFromRequest(r *http.Request) string {
	if u := authUserFromContext(r.Context()); u != nil {
		return u.Username
	}
	return ""
}
