package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/metrics"
)

// FSStore is a content-addressed blob directory. The address of a blob is
// the hex sha256 of its bytes.
type FSStore struct {
	base    string
	metrics *metrics.Metrics
}

func NewFSStore(base string, m *metrics.Metrics) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base, metrics: m}, nil
}

func (s *FSStore) path(address string) string {
	return filepath.Join(s.base, address[:2], address)
}

// Put stores env and returns its content address. Storing the same
// envelope twice yields the same address.
func (s *FSStore) Put(env Envelope) (string, error) {
	if env.IV == "" || env.EncryptedData == "" {
		return "", errors.New("empty envelope")
	}
	buf, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf)
	address := hex.EncodeToString(sum[:])
	dst := s.path(address)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return address, nil
}

func (s *FSStore) Fetch(ctx context.Context, address string) (env Envelope, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveFetch("fs", start, err) }()

	if err := ctx.Err(); err != nil {
		return Envelope{}, fmt.Errorf("fetch %s: %v: %w", address, err, exam.ErrContentUnavailable)
	}
	if !ValidAddress(address) || len(address) < 2 {
		return Envelope{}, fmt.Errorf("bad content address %q: %w", address, exam.ErrContentUnavailable)
	}
	buf, err := os.ReadFile(s.path(address))
	if err != nil {
		return Envelope{}, fmt.Errorf("fetch %s: %v: %w", address, err, exam.ErrContentUnavailable)
	}
	return DecodeEnvelope(bytes.NewReader(buf))
}
