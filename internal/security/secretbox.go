// Package security seals configuration secrets at rest.
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EnvelopePrefix tags values produced by SecretBox.Seal.
const EnvelopePrefix = "petanco.secret.v1:"

var (
	ErrEmptyKey       = errors.New("security: app key is required")
	ErrEmptyPlaintext = errors.New("security: plaintext is required")
	ErrNotSealed      = errors.New("security: value is not a sealed envelope")
)

// SecretBox encrypts short secrets with AES-256-GCM under an application key.
type SecretBox struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewSecretBox derives a 32-byte key from keyMaterial with SHA-256, so any
// non-empty passphrase is accepted.
func NewSecretBox(keyMaterial string) (*SecretBox, error) {
	key := bytes.TrimSpace([]byte(keyMaterial))
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	sum := sha256.Sum256(key)

	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}

	return &SecretBox{aead: aead, rand: rand.Reader}, nil
}

// Seal returns EnvelopePrefix followed by base64(nonce || ciphertext).
func (b *SecretBox) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(b.rand, nonce); err != nil {
		return "", fmt.Errorf("security: nonce generation failed: %w", err)
	}

	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return EnvelopePrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (b *SecretBox) Open(envelope string) (string, error) {
	envelope = strings.TrimSpace(envelope)
	if !IsSealed(envelope) {
		return "", ErrNotSealed
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(envelope, EnvelopePrefix))
	if err != nil {
		return "", fmt.Errorf("security: decode envelope: %w", err)
	}

	ns := b.aead.NonceSize()
	if len(raw) < ns+b.aead.Overhead() {
		return "", fmt.Errorf("security: envelope too short")
	}

	plaintext, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("security: decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

// IsSealed reports whether s carries the envelope prefix.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, EnvelopePrefix)
}
