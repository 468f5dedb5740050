// Package chunker splits document text into overlapping fixed-size windows.
package chunker

import (
	"strings"

	"github.com/aura-labs/aura/internal/domain"
)

// Config controls the sliding window.
type Config struct {
	Window  int
	Overlap int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		Window:  1000,
		Overlap: 200,
	}
}

// Split cuts text into chunks of Window runes advancing by Window-Overlap
// each step. The split is purely positional: overlap compensates for
// sentences cut at window boundaries, so no boundary detection is done.
// The final chunk may be shorter than the window. Same input always yields
// the same chunk sequence.
func Split(text string, cfg Config) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocument
	}
	if cfg.Window <= 0 || cfg.Overlap < 0 || cfg.Overlap >= cfg.Window {
		return nil, domain.ErrInvalidChunkWindow
	}

	runes := []rune(text)
	if len(runes) <= cfg.Window {
		return []domain.Chunk{{
			Index:     0,
			Text:      text,
			CharStart: 0,
			CharEnd:   len(runes),
		}}, nil
	}

	stride := cfg.Window - cfg.Overlap
	chunks := make([]domain.Chunk, 0, len(runes)/stride+1)
	for start := 0; start < len(runes); start += stride {
		end := start + cfg.Window
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, domain.Chunk{
			Index:     len(chunks),
			Text:      string(runes[start:end]),
			CharStart: start,
			CharEnd:   end,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
