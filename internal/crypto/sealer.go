// Package crypto seals caller credentials with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/davidbz/ttibu/internal/domain"
)

// Config holds the process-wide secret.
type Config struct {
	Secret string `env:"CREDENTIAL_SECRET"`
}

// Sealer implements domain.CredentialSealer.
// Sealed values are base64(nonce || ciphertext || tag) with a 12-byte nonce.
type Sealer struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewSealer derives the AES-256 key from SHA-256 of the secret (DI constructor).
func NewSealer(cfg *Config) (*Sealer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("credential secret is empty: %w", domain.ErrCrypto)
	}

	key := sha256.Sum256([]byte(cfg.Secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w: %w", domain.ErrCrypto, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w: %w", domain.ErrCrypto, err)
	}

	return &Sealer{aead: aead, random: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (s *Sealer) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w: %w", domain.ErrCrypto, err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt with the same secret.
func (s *Sealer) Decrypt(sealed string) (string, error) {
	if sealed == "" {
		return "", fmt.Errorf("sealed credential is empty: %w", domain.ErrCrypto)
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode credential: %w: %w", domain.ErrCrypto, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize+s.aead.Overhead() {
		return "", fmt.Errorf("sealed credential too short: %w", domain.ErrCrypto)
	}

	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to open credential: %w: %w", domain.ErrCrypto, err)
	}

	return string(plaintext), nil
}
