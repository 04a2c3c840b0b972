package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// Test key generated with: openssl rand -base64 32
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM=" // "test-key-for-unit-tests-32-bytes"

func TestNewCredentialCipher(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{
			name: "valid 32-byte base64 key",
			key:  testKey,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
		{
			name: "passphrase hashed to 32 bytes",
			key:  "my-simple-passphrase",
		},
		{
			name: "short base64 treated as passphrase",
			key:  base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCredentialCipher(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("expected non-nil cipher")
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCredentialCipher(testKey)
	if err != nil {
		t.Fatalf("NewCredentialCipher: %v", err)
	}

	plaintexts := []string{
		"hunter2",
		"p@ssw0rd with spaces and ünïcode",
		strings.Repeat("long", 100),
	}

	for _, pt := range plaintexts {
		enc, err := c.Encrypt(pt)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", pt, err)
		}
		if enc == pt {
			t.Errorf("ciphertext equals plaintext for %q", pt)
		}

		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if dec != pt {
			t.Errorf("round trip = %q, want %q", dec, pt)
		}
	}
}

func TestKeyRotation(t *testing.T) {
	old, err := NewCredentialCipher("retired-passphrase")
	if err != nil {
		t.Fatalf("NewCredentialCipher: %v", err)
	}
	enc, err := old.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	rotated, err := NewCredentialCipher(testKey, "retired-passphrase")
	if err != nil {
		t.Fatalf("NewCredentialCipher with previous: %v", err)
	}

	// Old ciphertext still opens via the fallback key.
	dec, err := rotated.Decrypt(enc)
	if err != nil || dec != "hunter2" {
		t.Fatalf("Decrypt old ciphertext = (%q, %v), want (\"hunter2\", nil)", dec, err)
	}

	// New ciphertext seals under the primary key only.
	reEnc, err := rotated.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := old.Decrypt(reEnc); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("retired key decrypted new ciphertext, want ErrDecryptionFailed, got %v", err)
	}

	// An empty previous key is rejected like an empty primary.
	if _, err := NewCredentialCipher(testKey, ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for empty previous key, got %v", err)
	}
}

func TestEncryptEmptyPassthrough(t *testing.T) {
	c, _ := NewCredentialCipher(testKey)

	enc, err := c.Encrypt("")
	if err != nil || enc != "" {
		t.Errorf("Encrypt(\"\") = (%q, %v), want (\"\", nil)", enc, err)
	}
	dec, err := c.Decrypt("")
	if err != nil || dec != "" {
		t.Errorf("Decrypt(\"\") = (%q, %v), want (\"\", nil)", dec, err)
	}
}

func TestDecryptFailures(t *testing.T) {
	c, _ := NewCredentialCipher(testKey)

	t.Run("not base64", func(t *testing.T) {
		_, err := c.Decrypt("%%% not base64 %%%")
		if !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("expected ErrDecryptionFailed, got %v", err)
		}
	})

	t.Run("too short", func(t *testing.T) {
		_, err := c.Decrypt(base64.StdEncoding.EncodeToString([]byte("tiny")))
		if !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("expected ErrDecryptionFailed, got %v", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		enc, err := c.Encrypt("secret")
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		other, _ := NewCredentialCipher("a-different-passphrase")
		if _, err := other.Decrypt(enc); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("expected ErrDecryptionFailed with wrong key, got %v", err)
		}
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		enc, err := c.Encrypt("secret")
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		raw, _ := base64.StdEncoding.DecodeString(enc)
		raw[len(raw)-1] ^= 0xff
		if _, err := c.Decrypt(base64.StdEncoding.EncodeToString(raw)); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("expected ErrDecryptionFailed on tamper, got %v", err)
		}
	})
}
