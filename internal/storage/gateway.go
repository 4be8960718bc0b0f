package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/metrics"
)

// Gateway reads envelopes from an HTTP content gateway such as an IPFS
// gateway: GET {base}/{address}.
type Gateway struct {
	base    string
	client  *http.Client
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewGateway(base string, timeout time.Duration, m *metrics.Metrics) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		base:    strings.TrimSuffix(base, "/"),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		metrics: m,
	}
}

func (g *Gateway) Fetch(ctx context.Context, address string) (env Envelope, err error) {
	start := time.Now()
	defer func() { g.metrics.ObserveFetch("gateway", start, err) }()

	if !ValidAddress(address) {
		return Envelope{}, fmt.Errorf("bad content address %q: %w", address, exam.ErrContentUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+"/"+address, nil)
	if err != nil {
		return Envelope{}, fmt.Errorf("build request: %v: %w", err, exam.ErrContentUnavailable)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return Envelope{}, fmt.Errorf("fetch %s: %v: %w", address, err, exam.ErrContentUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Envelope{}, fmt.Errorf("fetch %s: status %d: %w", address, resp.StatusCode, exam.ErrContentUnavailable)
	}
	return DecodeEnvelope(resp.Body)
}
