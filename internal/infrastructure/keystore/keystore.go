package keystore

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"
)

// StaticKeyStore is a simple in-memory keystore for HMAC signing keys.
type StaticKeyStore struct {
	keys         map[string][]byte
	defaultKeyID string
}

// NewFromEnv builds a keystore from environment variables.
// SIGNING_KEYS format: "keyId:hex,keyId2:hex".
// SIGNING_DEFAULT_KEY_ID sets the default key id.
func NewFromEnv() (*StaticKeyStore, error) {
	keys := make(map[string][]byte)
	raw := os.Getenv("SIGNING_KEYS")
	if raw != "" {
		pairs := strings.Split(raw, ",")
		for _, p := range pairs {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			parts := strings.SplitN(p, ":", 2)
			if len(parts) != 2 {
				return nil, errors.New("invalid SIGNING_KEYS format")
			}
			keyID := parts[0]
			bytes, err := hex.DecodeString(parts[1])
			if err != nil {
				return nil, err
			}
			keys[keyID] = bytes
		}
	}

	return &StaticKeyStore{
		keys:         keys,
		defaultKeyID: os.Getenv("SIGNING_DEFAULT_KEY_ID"),
	}, nil
}

func (s *StaticKeyStore) GetKey(keyID string) ([]byte, error) {
	key, ok := s.keys[keyID]
	if !ok {
		return nil, errors.New("key not found")
	}
	return key, nil
}

// DefaultKey returns the configured default key, or nil when none is set.
func (s *StaticKeyStore) DefaultKey() []byte {
	if s.defaultKeyID == "" {
		return nil
	}
	key, err := s.GetKey(s.defaultKeyID)
	if err != nil {
		return nil
	}
	return key
}
