package releaseauth

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Action defines what a release voucher authorizes against a locked session.
type Action string

const (
	// ActionSettle disburses custody to payee and treasury immediately.
	ActionSettle Action = "SETTLE"
	// ActionCancel refunds the full principal to the payer.
	ActionCancel Action = "CANCEL"
)

var validActions = map[Action]struct{}{
	ActionSettle: {},
	ActionCancel: {},
}

// Voucher is a signed, single-use authorization issued off-process by a
// registered release signer. The signature covers every field except itself.
type Voucher struct {
	VoucherID string    `json:"voucher_id"`
	SessionID string    `json:"session_id"`
	Action    Action    `json:"action"`
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	SignerID  string    `json:"signer_id"`
	PublicKey string    `json:"public_key"` // base64 raw ed25519 public key
	Signature string    `json:"signature"`  // base64 raw signature
}

type voucherSignable struct {
	VoucherID string    `json:"voucher_id"`
	SessionID string    `json:"session_id"`
	Action    Action    `json:"action"`
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	SignerID  string    `json:"signer_id"`
	PublicKey string    `json:"public_key"`
}

// CanonicalBytes returns the deterministic signing payload.
func (v Voucher) CanonicalBytes() ([]byte, error) {
	signable := voucherSignable{
		VoucherID: strings.TrimSpace(v.VoucherID),
		SessionID: strings.TrimSpace(v.SessionID),
		Action:    v.Action,
		Nonce:     strings.TrimSpace(v.Nonce),
		IssuedAt:  v.IssuedAt.UTC(),
		ExpiresAt: v.ExpiresAt.UTC(),
		SignerID:  strings.TrimSpace(v.SignerID),
		PublicKey: strings.TrimSpace(v.PublicKey),
	}
	return json.Marshal(signable)
}

// ValidateBasic checks required immutable voucher fields.
func (v Voucher) ValidateBasic() error {
	if strings.TrimSpace(v.VoucherID) == "" {
		return errors.New("voucher_id is required")
	}
	if strings.TrimSpace(v.SessionID) == "" {
		return errors.New("session_id is required")
	}
	if _, ok := validActions[v.Action]; !ok {
		return fmt.Errorf("unsupported action: %s", v.Action)
	}
	if strings.TrimSpace(v.Nonce) == "" {
		return errors.New("nonce is required")
	}
	if v.IssuedAt.IsZero() {
		return errors.New("issued_at is required")
	}
	if v.ExpiresAt.IsZero() || !v.ExpiresAt.After(v.IssuedAt) {
		return errors.New("expires_at must be after issued_at")
	}
	if strings.TrimSpace(v.SignerID) == "" {
		return errors.New("signer_id is required")
	}
	if strings.TrimSpace(v.PublicKey) == "" {
		return errors.New("public_key is required")
	}
	if strings.TrimSpace(v.Signature) == "" {
		return errors.New("signature is required")
	}
	return nil
}

// IsExpired reports whether the voucher has passed its expiry at now.
func (v Voucher) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Sign sets the voucher public key/signature for the given private key.
func (v *Voucher) Sign(privateKey ed25519.PrivateKey) error {
	if len(privateKey) != ed25519.PrivateKeySize {
		return errors.New("invalid private key")
	}
	v.PublicKey = base64.StdEncoding.EncodeToString(privateKey.Public().(ed25519.PublicKey))
	payload, err := v.CanonicalBytes()
	if err != nil {
		return err
	}
	sig := ed25519.Sign(privateKey, payload)
	v.Signature = base64.StdEncoding.EncodeToString(sig)
	return nil
}

// Verify validates the voucher signature using the included public key. The
// caller still has to match the key against the registered signer.
func (v Voucher) Verify() error {
	if err := v.ValidateBasic(); err != nil {
		return err
	}
	pubRaw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v.PublicKey))
	if err != nil {
		return fmt.Errorf("invalid public_key: %w", err)
	}
	if len(pubRaw) != ed25519.PublicKeySize {
		return errors.New("invalid public_key size")
	}
	sigRaw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v.Signature))
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	if len(sigRaw) != ed25519.SignatureSize {
		return errors.New("invalid signature size")
	}
	payload, err := v.CanonicalBytes()
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(pubRaw), payload, sigRaw) {
		return errors.New("signature verification failed")
	}
	return nil
}
