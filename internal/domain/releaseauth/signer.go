package releaseauth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"time"
)

var (
	ErrDuplicateSigner = errors.New("signer id already registered")
	ErrSignerNotFound  = errors.New("signer not found")
	ErrSignerRevoked   = errors.New("signer has been revoked")
	ErrSignerMismatch  = errors.New("voucher public key does not match registered signer")
	ErrNonceUsed       = errors.New("voucher nonce already used")
	ErrVoucherExpired  = errors.New("voucher has expired")
)

// Signer is a registered release authority. Only vouchers signed by an
// active signer's registered key are honored.
type Signer struct {
	ID          int64      `json:"id"`
	SignerID    string     `json:"signerId"`
	PublicKey   string     `json:"publicKey"` // base64 raw ed25519 public key
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
}

// NewSigner validates the public key encoding and builds a signer record.
func NewSigner(signerID, publicKey, description, createdBy string, now time.Time) (*Signer, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, errors.New("public key must be base64")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("public key must be a raw ed25519 key")
	}
	return &Signer{
		SignerID:    signerID,
		PublicKey:   publicKey,
		Description: description,
		CreatedAt:   now,
		CreatedBy:   createdBy,
	}, nil
}

// IsActive reports whether the signer may still authorize releases.
func (s *Signer) IsActive() bool {
	return s.RevokedAt == nil
}

// Authorizes checks a verified voucher against this signer's registration:
// key match, active registration, and expiry at now. Replay protection is the
// nonce store's job.
func (s *Signer) Authorizes(v Voucher, now time.Time) error {
	if s.PublicKey != v.PublicKey {
		return ErrSignerMismatch
	}
	if !s.IsActive() {
		return ErrSignerRevoked
	}
	if v.IsExpired(now) {
		return ErrVoucherExpired
	}
	return nil
}
