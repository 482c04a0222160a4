// Package source provides the upstream dataset loaders: a REST endpoint, a
// static JSON document, or a MySQL database. Every loader returns the
// canonical normalized dataset shape.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/partnerpulse/engine/internal/dataset"
)

// Source fetches the full dataset from an upstream.
type Source interface {
	Fetch(ctx context.Context) (*dataset.Dataset, error)
}

// envelope is the REST response wrapper: { success, data, error }. A plain
// document without the wrapper is also accepted.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// ParseDocument decodes a dataset from raw JSON, unwrapping the REST
// envelope when present and normalizing missing collections to empty.
func ParseDocument(raw []byte) (*dataset.Dataset, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Success != nil {
		if !*env.Success {
			if env.Error == "" {
				env.Error = "request failed"
			}
			return nil, fmt.Errorf("upstream error: %s", env.Error)
		}
		raw = env.Data
	}

	var ds dataset.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	ds.Normalize()
	return &ds, nil
}
