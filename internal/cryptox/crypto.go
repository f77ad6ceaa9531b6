// Package cryptox holds the PIN-related cryptographic primitives for the
// pintask client: hashing a PIN for server-side comparison, generating a
// random 4-digit PIN, and sealing/opening the authenticated-encryption
// envelope used by the deprecated envelope credential scheme.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// PINLength is the number of digits in a generated PIN.
const PINLength = 4

// HashPIN returns the hex-encoded SHA-256 digest of the PIN. This is the
// stored form in hash mode; the server compares digests directly.
func HashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// VerifyPIN re-hashes the candidate PIN and compares it to the stored hash
// in constant time. Malformed input simply fails verification.
func VerifyPIN(pin string, storedHash string) bool {
	if pin == "" || storedHash == "" {
		return false
	}
	candidate := HashPIN(pin)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}

// GeneratePIN returns a random 4-digit PIN (1000..9999) using crypto/rand.
// Leading zeros are excluded so the PIN survives round-trips through
// numeric form fields.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("failed to generate pin: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}

// Envelope is the wire form of an encrypted PIN in the deprecated
// symmetric credential scheme: AES-GCM ciphertext split from its auth tag,
// plus the nonce. All fields are hex-encoded.
type Envelope struct {
	EncryptedPIN string `json:"encryptedPin"`
	IV           string `json:"iv"`
	AuthTag      string `json:"authTag"`
}

// SealPIN encrypts a PIN with AES-GCM under the given key. The key must be
// a valid AES key length (16, 24 or 32 bytes). A fresh random 12-byte
// nonce is generated per call.
//
// Clients never seal in production (the server owns the envelope key); this
// exists for the migration path and for exercising OpenPIN in tests.
func SealPIN(pin string, key []byte) (*Envelope, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init error: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation error: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(pin), nil)
	tagStart := len(sealed) - gcm.Overhead()

	return &Envelope{
		EncryptedPIN: hex.EncodeToString(sealed[:tagStart]),
		IV:           hex.EncodeToString(nonce),
		AuthTag:      hex.EncodeToString(sealed[tagStart:]),
	}, nil
}

// OpenPIN decrypts an envelope and returns the plain PIN. Tampered
// ciphertext or a wrong key fails authentication and returns an error.
func OpenPIN(env *Envelope, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init error: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init error: %w", err)
	}

	ciphertext, err := hex.DecodeString(env.EncryptedPIN)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	nonce, err := hex.DecodeString(env.IV)
	if err != nil {
		return "", fmt.Errorf("invalid iv encoding: %w", err)
	}
	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil {
		return "", fmt.Errorf("invalid auth tag encoding: %w", err)
	}

	plain, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("decryption error: %w", err)
	}
	return string(plain), nil
}
