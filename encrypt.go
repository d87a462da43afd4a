package model

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Encryption errors.
var (
	ErrInvalidKeySize   = errors.New("invalid key size")
	ErrCiphertextShort  = errors.New("ciphertext too short")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Encryptor encrypts the values of encrypted casts.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// base64KeyPrefix marks a key given in base64 text.
const base64KeyPrefix = "base64:"

// ParseKey reads an application key. Keys prefixed with "base64:" are
// decoded; anything else is used as raw bytes.
func ParseKey(key string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(key, base64KeyPrefix)
	if !ok {
		return []byte(key), nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return raw, nil
}

// gcmEncryptor seals values with AES-GCM. The nonce is stored in front of
// the ciphertext.
type gcmEncryptor struct {
	aead cipher.AEAD
}

// AES returns an AES-GCM encryptor. Key must be 16, 24 or 32 bytes.
func AES(key []byte) (Encryptor, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: must be 16, 24, or 32 bytes, got %d", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &gcmEncryptor{aead: aead}, nil
}

// AESFromKey is AES for a textual application key, see ParseKey.
func AESFromKey(key string) (Encryptor, error) {
	raw, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	return AES(raw)
}

func (e *gcmEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(plaintext)+e.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *gcmEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	n := e.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextShort
	}
	plaintext, err := e.aead.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// rotatingEncryptor encrypts with the current key and decrypts with any.
type rotatingEncryptor struct {
	keys []Encryptor
}

// Rotating returns an encryptor that writes with current and reads values
// written by current or any of previous, tried in order. Use it while
// re-encrypting stored attributes under a new key.
func Rotating(current Encryptor, previous ...Encryptor) Encryptor {
	return &rotatingEncryptor{keys: append([]Encryptor{current}, previous...)}
}

func (e *rotatingEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	return e.keys[0].Encrypt(plaintext)
}

func (e *rotatingEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	var errs []error
	for _, k := range e.keys {
		plaintext, err := k.Decrypt(ciphertext)
		if err == nil {
			return plaintext, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// encryptString encrypts plaintext into base64 text, the form encrypted
// attributes are stored in.
func encryptString(enc Encryptor, plaintext string) (string, error) {
	ciphertext, err := enc.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decryptString reverses encryptString.
func decryptString(enc Encryptor, text string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	plaintext, err := enc.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
