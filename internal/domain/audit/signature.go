package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"time"
)

// signaturePayload is the canonical signed form of an audit log. The database
// row id is excluded because entries are signed before insertion; everything
// an operator could tamper with is included.
type signaturePayload struct {
	AuditID       string          `json:"auditId"`
	EntityType    string          `json:"entityType"`
	EntityID      string          `json:"entityId"`
	Action        string          `json:"action"`
	Actor         string          `json:"actor"`
	ActorRoles    []string        `json:"actorRoles,omitempty"`
	ActorIP       string          `json:"actorIp,omitempty"`
	UserAgent     string          `json:"userAgent,omitempty"`
	OldValues     json.RawMessage `json:"oldValues,omitempty"`
	NewValues     json.RawMessage `json:"newValues,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	RiskLevel     string          `json:"riskLevel"`
	Tags          []string        `json:"tags,omitempty"`
	TraceID       string          `json:"traceId,omitempty"`
	SessionID     string          `json:"sessionId,omitempty"`
	RequestMethod string          `json:"requestMethod,omitempty"`
	RequestPath   string          `json:"requestPath,omitempty"`
	CreatedAt     string          `json:"createdAt"`
}

func buildSignaturePayload(log *AuditLog) signaturePayload {
	payload := signaturePayload{
		AuditID:       log.AuditID.String(),
		EntityType:    string(log.EntityType),
		EntityID:      log.EntityID,
		Action:        string(log.Action),
		Actor:         log.Actor,
		ActorRoles:    log.ActorRoles,
		UserAgent:     log.UserAgent,
		OldValues:     log.OldValues,
		NewValues:     log.NewValues,
		Reason:        log.Reason,
		RiskLevel:     string(log.RiskLevel),
		Tags:          log.Tags,
		TraceID:       log.TraceID,
		SessionID:     log.SessionID,
		RequestMethod: log.RequestMethod,
		RequestPath:   log.RequestPath,
		CreatedAt:     log.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if log.ActorIP != nil {
		payload.ActorIP = log.ActorIP.String()
	}
	return payload
}

// SignAuditLog generates an HMAC signature for the audit log.
func SignAuditLog(log *AuditLog, key []byte) ([]byte, error) {
	payload := buildSignaturePayload(log)
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyAuditLogSignature verifies the HMAC signature for the audit log.
func VerifyAuditLogSignature(log *AuditLog, key []byte) (bool, error) {
	if len(log.Signature) == 0 {
		return false, nil
	}
	expected, err := SignAuditLog(log, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, log.Signature), nil
}
