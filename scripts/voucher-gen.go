// Command voucher-gen generates and signs release vouchers for manual
// testing against a running hub. It can also mint a fresh ed25519 keypair
// in the encoding the signer registry expects.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
)

type options struct {
	op         string
	sessionID  string
	action     string
	signerID   string
	voucherID  string
	nonce      string
	ttl        time.Duration
	privateKey string
}

func main() {
	var opt options

	flag.StringVar(&opt.op, "op", "voucher", "operation: keygen|voucher")
	flag.StringVar(&opt.sessionID, "session-id", "", "session identifier the voucher targets")
	flag.StringVar(&opt.action, "action", "SETTLE", "voucher action: SETTLE|CANCEL")
	flag.StringVar(&opt.signerID, "signer-id", "ops-signer", "registered signer identifier")
	flag.StringVar(&opt.voucherID, "voucher-id", "", "voucher identifier; auto-generated when empty")
	flag.StringVar(&opt.nonce, "nonce", "", "single-use nonce; auto-generated when empty")
	flag.DurationVar(&opt.ttl, "ttl", 15*time.Minute, "voucher validity window")
	flag.StringVar(&opt.privateKey, "private-key", "", "base64 private key (32-byte seed or 64-byte key); default random")
	flag.Parse()

	switch opt.op {
	case "keygen":
		if err := runKeygen(); err != nil {
			log.Fatal(err)
		}
	case "voucher":
		if err := runVoucher(opt); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("unknown op %q", opt.op)
	}
}

func runKeygen() error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	out := map[string]string{
		"public_key":  base64.StdEncoding.EncodeToString(pub),
		"private_key": base64.StdEncoding.EncodeToString(priv),
	}
	return json.NewEncoder(os.Stdout).Encode(out)
}

func runVoucher(opt options) error {
	if opt.sessionID == "" {
		return errors.New("session-id is required")
	}
	priv, err := loadPrivateKey(opt.privateKey)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	voucherID := opt.voucherID
	if voucherID == "" {
		voucherID = uuid.NewString()
	}
	nonce := opt.nonce
	if nonce == "" {
		nonce = uuid.NewString()
	}

	v := releaseauth.Voucher{
		VoucherID: voucherID,
		SessionID: opt.sessionID,
		Action:    releaseauth.Action(opt.action),
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(opt.ttl),
		SignerID:  opt.signerID,
	}
	if err := v.Sign(priv); err != nil {
		return err
	}
	if err := v.Verify(); err != nil {
		return fmt.Errorf("self-check failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"voucher": v})
}

func loadPrivateKey(encoded string) (ed25519.PrivateKey, error) {
	if encoded == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid private-key: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, errors.New("private-key must be a 32-byte seed or 64-byte key")
	}
}
