package releaseauth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"
)

func testVoucher(t *testing.T) (Voucher, ed25519.PrivateKey) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	issued := time.Now().UTC()
	v := Voucher{
		VoucherID: "v-1",
		SessionID: "sess-1",
		Action:    ActionSettle,
		Nonce:     "n1",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
		SignerID:  "ops-signer",
	}
	if err := v.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return v, priv
}

func TestVoucherSignAndVerify(t *testing.T) {
	v, _ := testVoucher(t)
	if err := v.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}

	v.SessionID = "sess-2"
	if err := v.Verify(); err == nil {
		t.Fatalf("expected verify failure after tamper")
	}
}

func TestVoucherValidateBasic(t *testing.T) {
	v, priv := testVoucher(t)

	bad := v
	bad.Action = Action("MELT")
	if err := bad.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := bad.Verify(); err == nil {
		t.Fatalf("expected unsupported action to fail")
	}

	bad = v
	bad.ExpiresAt = bad.IssuedAt
	if err := bad.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := bad.Verify(); err == nil {
		t.Fatalf("expected non-future expiry to fail")
	}
}

func TestVoucherIsExpired(t *testing.T) {
	v, _ := testVoucher(t)
	if v.IsExpired(v.ExpiresAt) {
		t.Fatalf("voucher should not expire exactly at expires_at")
	}
	if !v.IsExpired(v.ExpiresAt.Add(time.Second)) {
		t.Fatalf("voucher should be expired past expires_at")
	}
}

func TestSignerAuthorizes(t *testing.T) {
	v, _ := testVoucher(t)
	now := v.IssuedAt

	signer, err := NewSigner("ops-signer", v.PublicKey, "ops team", "admin", now)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if err := signer.Authorizes(v, now); err != nil {
		t.Fatalf("authorizes: %v", err)
	}

	otherKey := base64.StdEncoding.EncodeToString(make([]byte, ed25519.PublicKeySize))
	stranger, err := NewSigner("other", otherKey, "", "admin", now)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if err := stranger.Authorizes(v, now); err != ErrSignerMismatch {
		t.Fatalf("expected ErrSignerMismatch, got %v", err)
	}

	revoked := *signer
	revokedAt := now
	revoked.RevokedAt = &revokedAt
	if err := revoked.Authorizes(v, now); err != ErrSignerRevoked {
		t.Fatalf("expected ErrSignerRevoked, got %v", err)
	}

	if err := signer.Authorizes(v, v.ExpiresAt.Add(time.Minute)); err != ErrVoucherExpired {
		t.Fatalf("expected ErrVoucherExpired, got %v", err)
	}
}

func TestNewSignerRejectsBadKeys(t *testing.T) {
	now := time.Now().UTC()
	if _, err := NewSigner("s", "not-base64!!!", "", "admin", now); err == nil {
		t.Fatalf("expected base64 error")
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := NewSigner("s", short, "", "admin", now); err == nil {
		t.Fatalf("expected key size error")
	}
}
