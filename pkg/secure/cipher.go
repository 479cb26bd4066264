// Package secure implements the selective field encryption and snapshot
// compression used for ledger payloads.
package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the required encryption key length in bytes (AES-256).
const KeySize = 32

// ErrKeySize is returned when the configured encryption key is not exactly
// 32 bytes. It must surface before any ledger call is attempted.
var ErrKeySize = errors.New("encryption key must be exactly 32 bytes")

// ValidateKey checks the encryption key length.
func ValidateKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w (got %d)", ErrKeySize, len(key))
	}
	return nil
}

// Encrypt encrypts a field value with AES-CBC under a random 16-byte IV and
// returns hex(iv) + ":" + base64(ciphertext). Empty strings pass through
// unencrypted.
func Encrypt(plaintext string, key []byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. A value without the iv separator is treated as
// already-cleartext and returned unchanged.
func Decrypt(value string, key []byte) (string, error) {
	if value == "" {
		return "", nil
	}

	sep := strings.Index(value, ":")
	if sep < 0 {
		return value, nil
	}

	if err := ValidateKey(key); err != nil {
		return "", err
	}

	iv, err := hex.DecodeString(value[:sep])
	if err != nil {
		return "", fmt.Errorf("invalid iv encoding: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("invalid iv length %d", len(iv))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(value[sep+1:])
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length %d", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded data length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
