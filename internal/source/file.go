package source

import (
	"context"
	"fmt"
	"os"

	"github.com/partnerpulse/engine/internal/dataset"
)

// File loads the dataset from a static JSON document such as database.json.
type File struct {
	path string
}

// NewFile creates a file source for the given path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Fetch reads and decodes the document.
func (s *File) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}
	return ParseDocument(raw)
}
