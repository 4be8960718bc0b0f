package vault

import (
	"context"
	"fmt"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/storage"
)

// Loader pairs a fetch with a decrypt. It keeps no plaintext between calls.
type Loader struct {
	fetcher storage.Fetcher
}

func NewLoader(f storage.Fetcher) *Loader {
	return &Loader{fetcher: f}
}

func (l *Loader) Load(ctx context.Context, e exam.Exam) (exam.Document, error) {
	env, err := l.fetcher.Fetch(ctx, e.ContentAddress)
	if err != nil {
		return exam.Document{}, err
	}
	doc, err := Decrypt(env, e.EncryptionKey)
	if err != nil {
		return exam.Document{}, fmt.Errorf("exam %s: %w", e.ID, err)
	}
	return doc, nil
}

var _ exam.DocumentSource = (*Loader)(nil)
