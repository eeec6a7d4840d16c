// Package extract turns raw uploaded bytes into plain text for segmentation.
package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/curation-cli/internal/config"
)

// Extractor extracts text content from raw document bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.IngestConfig) (Extractor, error) {
	switch cfg.Extractor {
	case "text", "":
		return NewText(), nil
	default:
		return nil, eris.Errorf("extract: unknown extractor %q", cfg.Extractor)
	}
}

// textExtractor handles documents that are already plain text. It validates
// the encoding and normalizes line endings.
type textExtractor struct{}

// NewText creates the plain-text extractor.
func NewText() Extractor {
	return textExtractor{}
}

func (textExtractor) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", eris.New("extract: document is not valid UTF-8 text")
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
