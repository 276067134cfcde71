package reply

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/bikebot/internal/logging"
)

// Fallback tries each source in order and returns the first successful reply.
type Fallback struct {
	sources []Source
}

// NewFallback chains sources. Nil entries are skipped.
func NewFallback(sources ...Source) *Fallback {
	kept := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Fallback{sources: kept}
}

// Reply implements Source.
func (f *Fallback) Reply(ctx context.Context, prompt string) (string, error) {
	if len(f.sources) == 0 {
		return "", errors.New("no reply sources configured")
	}

	logger := logging.Component("reply")
	var lastErr error
	for i, src := range f.sources {
		text, err := src.Reply(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		logger.Warn().Err(err).Int("source", i).Msg("reply source failed, trying next")
	}
	return "", fmt.Errorf("all reply sources failed, last error: %w", lastErr)
}
