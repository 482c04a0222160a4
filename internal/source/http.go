package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/partnerpulse/engine/internal/dataset"
)

// DefaultHTTPTimeout bounds a single dataset fetch.
const DefaultHTTPTimeout = 10 * time.Second

// HTTP fetches the dataset from a REST endpoint returning either the
// { success, data } envelope or a plain dataset document.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP creates an HTTP source for the given URL.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTP{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a single GET of the dataset document.
func (s *HTTP) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}

	ds, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}

	slog.Debug("dataset_fetched",
		"url", s.url,
		"clients", len(ds.Clients),
		"trades", len(ds.Trades),
		"deposits", len(ds.Deposits),
	)
	return ds, nil
}
