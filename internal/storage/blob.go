package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"

	"github.com/mind-engage/examvault/internal/exam"
)

// maxEnvelopeBytes caps how much of a content blob is read.
const maxEnvelopeBytes = 16 << 20

// Envelope is the encrypted exam blob as published to the content store.
// Alg is empty for the original aes-256-cbc format.
type Envelope struct {
	Alg           string `json:"alg,omitempty"`
	IV            string `json:"iv"`
	EncryptedData string `json:"encryptedData"`
}

// Fetcher retrieves the envelope stored under a content address.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (Envelope, error)
}

var addressPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,128}$`)

// ValidAddress reports whether address is safe to use as a content key.
func ValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// DecodeEnvelope parses an envelope and rejects one missing iv or data.
func DecodeEnvelope(r io.Reader) (Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(io.LimitReader(r, maxEnvelopeBytes)).Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %v: %w", err, exam.ErrContentUnavailable)
	}
	if env.IV == "" || env.EncryptedData == "" {
		return Envelope{}, fmt.Errorf("envelope missing iv or encryptedData: %w", exam.ErrContentUnavailable)
	}
	return env, nil
}
