package httpapi

import (
	"errors"
	"net/http"

	appAccount "github.com/settlement-hub/settlement-hub/internal/application/account"
	appAuth "github.com/settlement-hub/settlement-hub/internal/application/auth"
	"github.com/settlement-hub/settlement-hub/internal/domain/dispute"
	"github.com/settlement-hub/settlement-hub/internal/domain/ledger"
	"github.com/settlement-hub/settlement-hub/internal/domain/money"
	"github.com/settlement-hub/settlement-hub/internal/domain/params"
	"github.com/settlement-hub/settlement-hub/internal/domain/policy"
	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
	"github.com/settlement-hub/settlement-hub/internal/domain/session"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Ordering matters only where errors wrap each other; sentinels here are
// disjoint.
var errorMappings = []errorMapping{
	{params.ErrAlreadyInitialized, http.StatusConflict, "ALREADY_INITIALIZED"},
	{params.ErrNotInitialized, http.StatusConflict, "NOT_INITIALIZED"},
	{params.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
	{params.ErrInvalidDisputeWindow, http.StatusBadRequest, "INVALID_DISPUTE_WINDOW"},
	{params.ErrInvalidFeeBps, http.StatusBadRequest, "INVALID_FEE_BPS"},
	{params.ErrInvalidTreasury, http.StatusBadRequest, "INVALID_TREASURY_ADDRESS"},

	{session.ErrNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
	{session.ErrInvalidSessionID, http.StatusBadRequest, "INVALID_SESSION_ID"},
	{session.ErrDuplicateID, http.StatusConflict, "DUPLICATE_SESSION_ID"},
	{session.ErrInvalidStatus, http.StatusConflict, "INVALID_SESSION_STATUS"},
	{session.ErrInvalidTransition, http.StatusConflict, "INVALID_SESSION_STATUS"},
	{session.ErrAlreadyApproved, http.StatusConflict, "ALREADY_APPROVED"},
	{session.ErrNotAuthorizedParty, http.StatusForbidden, "NOT_AUTHORIZED_PARTY"},
	{session.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{session.ErrDisputeWindowNotElapsed, http.StatusConflict, "DISPUTE_WINDOW_NOT_ELAPSED"},

	{money.ErrNotInteger, http.StatusBadRequest, "INVALID_AMOUNT"},
	{money.ErrNotPositive, http.StatusBadRequest, "INVALID_AMOUNT"},
	{money.ErrOutOfRange, http.StatusBadRequest, "INVALID_AMOUNT"},
	{money.ErrInvalidBps, http.StatusBadRequest, "INVALID_FEE_BPS"},

	{ledger.ErrInsufficientBalance, http.StatusConflict, "INSUFFICIENT_BALANCE"},
	{ledger.ErrTransfer, http.StatusInternalServerError, "TRANSFER_ERROR"},

	{dispute.ErrNotFound, http.StatusNotFound, "DISPUTE_NOT_FOUND"},
	{dispute.ErrAlreadyOpen, http.StatusConflict, "DISPUTE_ALREADY_OPEN"},
	{dispute.ErrAlreadyResolved, http.StatusConflict, "DISPUTE_ALREADY_RESOLVED"},
	{dispute.ErrInvalidOutcome, http.StatusBadRequest, "INVALID_OUTCOME"},

	{policy.ErrViolation, http.StatusUnprocessableEntity, "POLICY_VIOLATION"},
	{policy.ErrNotFound, http.StatusNotFound, "RULE_NOT_FOUND"},
	{policy.ErrInvalidExpression, http.StatusBadRequest, "INVALID_EXPRESSION"},
	{policy.ErrInvalidStatus, http.StatusBadRequest, "INVALID_PARAM"},

	{releaseauth.ErrDuplicateSigner, http.StatusConflict, "DUPLICATE_SIGNER"},
	{releaseauth.ErrSignerNotFound, http.StatusNotFound, "SIGNER_NOT_FOUND"},
	{releaseauth.ErrSignerRevoked, http.StatusForbidden, "SIGNER_REVOKED"},
	{releaseauth.ErrSignerMismatch, http.StatusBadRequest, "SIGNER_MISMATCH"},
	{releaseauth.ErrNonceUsed, http.StatusConflict, "NONCE_USED"},
	{releaseauth.ErrVoucherExpired, http.StatusBadRequest, "VOUCHER_EXPIRED"},

	{appAuth.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
	{appAuth.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
	{appAccount.ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
	{appAccount.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
}

// respondDomainError maps a domain sentinel to its stable code; anything
// unmapped is treated as a bad request since services validate their own
// inputs and surface storage failures wrapped around a sentinel.
func respondDomainError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondError(w, m.status, m.code, err.Error())
			return
		}
	}
	respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
}
