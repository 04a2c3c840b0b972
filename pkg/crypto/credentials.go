// Package crypto provides the credential cipher for database passwords.
// DatabaseConfig carries passwords as AES-256-GCM ciphertext; connectors
// decrypt them only at dial time, so the plaintext never sits in a config
// struct or a log field. The cipher supports key rotation: new ciphertext is
// always sealed under the primary key, while decryption falls back through
// any previous keys still referenced by the inventory.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrDecryptionFailed is returned when decryption fails under every
	// configured key.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// CredentialCipher provides AES-256-GCM authenticated encryption for
// database credentials. The first AEAD seals; all of them may open.
type CredentialCipher struct {
	aeads []cipher.AEAD
}

// NewCredentialCipher creates a cipher from a primary key plus any previous
// keys kept for rotation. Each key can be:
//   - a base64-encoded 32-byte key (e.g. from: openssl rand -base64 32)
//   - any passphrase (hashed to 32 bytes with SHA-256)
//
// To rotate, promote a fresh key to primary and list the old one in
// previous; re-encrypt inventory entries at leisure.
func NewCredentialCipher(key string, previous ...string) (*CredentialCipher, error) {
	aeads := make([]cipher.AEAD, 0, 1+len(previous))
	for _, k := range append([]string{key}, previous...) {
		aead, err := newAEAD(k)
		if err != nil {
			return nil, err
		}
		aeads = append(aeads, aead)
	}
	return &CredentialCipher{aeads: aeads}, nil
}

// deriveKey turns a key string into 32 raw bytes. Valid base64 decoding to
// exactly 32 bytes is used directly; anything else is treated as a
// passphrase.
func deriveKey(keyInput string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(keyInput); err == nil && len(decoded) == 32 {
		return decoded
	}
	hash := sha256.Sum256([]byte(keyInput))
	return hash[:]
}

func newAEAD(keyInput string) (cipher.AEAD, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(deriveKey(keyInput))
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under the primary key and returns
// base64(nonce || ciphertext || tag). Empty strings are returned as-is (not
// encrypted).
func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm := c.aeads[0]
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext and tag to nonce: nonce || ciphertext || tag.
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64(nonce || ciphertext || tag), trying the primary key
// first and then each previous key. Empty strings are returned as-is (not
// decrypted).
func (c *CredentialCipher) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}

	for _, gcm := range c.aeads {
		if len(data) < gcm.NonceSize()+gcm.Overhead() {
			continue
		}
		nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
		if plaintext, err := gcm.Open(nil, nonce, ciphertext, nil); err == nil {
			return string(plaintext), nil
		}
	}
	return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
}
