// Package cryptox implements the vault's authenticated encryption. A single
// Cipher wraps the process-wide AES-GCM master key; everything persisted at
// rest (file content, document metadata, share tokens) goes through it.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrIntegrity is returned by Decrypt when the GCM tag does not verify:
// wrong key, corrupted or truncated ciphertext, or non-ciphertext input.
// It is distinguishable from I/O errors via errors.Is.
var ErrIntegrity = errors.New("ciphertext integrity check failed")

const nonceSize = 12

// Cipher encrypts and decrypts byte payloads with AES-GCM under one
// symmetric key. The key is held in memory only and never logged.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from the given key. The key must be 16, 24 or
// 32 bytes (AES-128/192/256).
func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce and returns
// nonce||ciphertext||tag as a single slice. An empty plaintext is a valid
// input and produces a valid (nonce+tag only) ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt. It returns ErrIntegrity when the
// authentication tag does not verify or the input is too short to contain
// a nonce.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < nonceSize {
		return nil, fmt.Errorf("%w: input shorter than nonce", ErrIntegrity)
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return plaintext, nil
}

// EncryptString is a convenience wrapper for metadata fields stored as text
// at the application layer but ciphertext at rest.
func (c *Cipher) EncryptString(s string) ([]byte, error) {
	return c.Encrypt([]byte(s))
}

// DecryptString reverses EncryptString.
func (c *Cipher) DecryptString(data []byte) (string, error) {
	b, err := c.Decrypt(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DeriveKey stretches a passphrase into a 32-byte AES key using Argon2id.
// Used when the master key is configured as a passphrase+salt pair rather
// than raw key bytes.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}
