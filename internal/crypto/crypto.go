// Package crypto seals per-user API tokens so they are never stored in the
// clear. Keys are derived from a password (the login password at rest, the
// session key while logged in) with scrypt, and the data is sealed with
// AES-256-GCM. The encoded form is salt ‖ nonce ‖ ciphertext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLen  = 16
	nonceLen = 12
	keyLen   = 32

	// scrypt work parameters, per the OWASP password storage cheat sheet.
	scryptN = 1 << 17
	scryptR = 8
	scryptP = 1
)

// ErrInvalidCiphertext indicates bytes that cannot possibly encode a sealed
// value (too short, truncated).
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// ErrDecryptFailed indicates a wrong password or tampered ciphertext.
var ErrDecryptFailed = errors.New("decrypt failed")

// EncryptString seals data under a key derived from password.
func EncryptString(data, password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltLen+nonceLen+len(data)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, []byte(data), nil)
	return out, nil
}

// DecryptString opens a value produced by EncryptString.
func DecryptString(ciphertext []byte, password string) (string, error) {
	if len(ciphertext) < saltLen+nonceLen+1 {
		return "", ErrInvalidCiphertext
	}
	salt := ciphertext[:saltLen]
	nonce := ciphertext[saltLen : saltLen+nonceLen]
	sealed := ciphertext[saltLen+nonceLen:]

	key, err := deriveKey(password, salt)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plain), nil
}

// ReencryptString opens a value with oldPassword and seals it again with
// newPassword. Used at login to move tokens from password-sealed storage to
// session-sealed cache entries.
func ReencryptString(ciphertext []byte, oldPassword, newPassword string) ([]byte, error) {
	plain, err := DecryptString(ciphertext, oldPassword)
	if err != nil {
		return nil, err
	}
	return EncryptString(plain, newPassword)
}

// NewSessionKey returns a random hex-encodable key for sealing session
// copies of the tokens.
func NewSessionKey() (string, error) {
	b := make([]byte, keyLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", b), nil
}

func deriveKey(password string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLen)
}
