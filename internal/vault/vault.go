// Package vault opens encrypted exam envelopes. Two algorithms are
// understood: the original aes-256-cbc envelope (hex iv, hex ciphertext,
// PKCS#7 padding) and xchacha20-poly1305, which authenticates the
// ciphertext. Keys are 32 bytes, hex encoded.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/storage"
)

const (
	AlgAES256CBC         = "aes-256-cbc"
	AlgXChaCha20Poly1305 = "xchacha20-poly1305"

	keySize = 32
)

var errPadding = errors.New("bad padding")

// NewKey returns a random hex encoded key.
func NewKey() (string, error) {
	k := make([]byte, keySize)
	if _, err := rand.Read(k); err != nil {
		return "", err
	}
	return hex.EncodeToString(k), nil
}

func parseKey(key string) ([]byte, error) {
	k, err := hex.DecodeString(key)
	if err != nil || len(k) != keySize {
		return nil, fmt.Errorf("key must be %d hex encoded bytes: %w", keySize, exam.ErrDecryptionFailed)
	}
	return k, nil
}

// Decrypt recovers and validates the exam document inside env. Wrong keys
// and corrupt ciphertext fail with exam.ErrDecryptionFailed; a document
// that decrypts but is structurally unusable fails with
// exam.ErrInvalidContent.
func Decrypt(env storage.Envelope, key string) (exam.Document, error) {
	k, err := parseKey(key)
	if err != nil {
		return exam.Document{}, err
	}
	iv, err := hex.DecodeString(env.IV)
	if err != nil {
		return exam.Document{}, fmt.Errorf("iv: %v: %w", err, exam.ErrDecryptionFailed)
	}
	data, err := hex.DecodeString(env.EncryptedData)
	if err != nil {
		return exam.Document{}, fmt.Errorf("encryptedData: %v: %w", err, exam.ErrDecryptionFailed)
	}

	var plain []byte
	switch env.Alg {
	case "", AlgAES256CBC:
		plain, err = openCBC(k, iv, data)
	case AlgXChaCha20Poly1305:
		plain, err = openXChaCha(k, iv, data)
	default:
		err = fmt.Errorf("unknown alg %q", env.Alg)
	}
	if err != nil {
		return exam.Document{}, fmt.Errorf("open envelope: %v: %w", err, exam.ErrDecryptionFailed)
	}

	// CBC has no integrity check: a wrong key that happens to leave valid
	// padding still yields bytes that are not a JSON document.
	doc, err := ParseDocument(plain)
	if errors.Is(err, errNotDocument) {
		return exam.Document{}, fmt.Errorf("plaintext is not an exam document: %w", exam.ErrDecryptionFailed)
	}
	if err != nil {
		return exam.Document{}, err
	}
	return doc, nil
}

func openCBC(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv must be %d bytes", aes.BlockSize)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext is not a whole number of blocks")
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return unpad(out)
}

func openXChaCha(key, nonce, data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("nonce must be %d bytes", chacha20poly1305.NonceSizeX)
	}
	return aead.Open(nil, nonce, data, nil)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errPadding
		}
	}
	return b[:len(b)-n], nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

// Seal encrypts doc under key. alg defaults to aes-256-cbc.
func Seal(doc exam.Document, key, alg string) (storage.Envelope, error) {
	if err := Validate(doc); err != nil {
		return storage.Envelope{}, err
	}
	k, err := parseKey(key)
	if err != nil {
		return storage.Envelope{}, err
	}
	plain, err := json.Marshal(doc)
	if err != nil {
		return storage.Envelope{}, err
	}

	switch alg {
	case "", AlgAES256CBC:
		block, err := aes.NewCipher(k)
		if err != nil {
			return storage.Envelope{}, err
		}
		iv := make([]byte, aes.BlockSize)
		if _, err := rand.Read(iv); err != nil {
			return storage.Envelope{}, err
		}
		padded := pad(plain)
		out := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
		return storage.Envelope{IV: hex.EncodeToString(iv), EncryptedData: hex.EncodeToString(out)}, nil
	case AlgXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(k)
		if err != nil {
			return storage.Envelope{}, err
		}
		nonce := make([]byte, chacha20poly1305.NonceSizeX)
		if _, err := rand.Read(nonce); err != nil {
			return storage.Envelope{}, err
		}
		return storage.Envelope{
			Alg:           AlgXChaCha20Poly1305,
			IV:            hex.EncodeToString(nonce),
			EncryptedData: hex.EncodeToString(aead.Seal(nil, nonce, plain, nil)),
		}, nil
	default:
		return storage.Envelope{}, fmt.Errorf("unknown alg %q", alg)
	}
}
