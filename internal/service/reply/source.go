// Package reply provides the sources the support bot draws its answers from.
package reply

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// ErrEmptyCatalog is returned when a catalog source has nothing to choose from.
var ErrEmptyCatalog = errors.New("reply catalog is empty")

// Source maps an incoming prompt to a bot reply.
type Source interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, prompt string) (string, error)

// Reply calls f.
func (f SourceFunc) Reply(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Catalog picks a canned response uniformly at random, ignoring the prompt.
type Catalog struct {
	mu        sync.Mutex
	rng       *rand.Rand
	responses []string
}

// NewCatalog creates a catalog source. A nil rng seeds one from the clock.
func NewCatalog(responses []string, rng *rand.Rand) (*Catalog, error) {
	kept := make([]string, 0, len(responses))
	for _, r := range responses {
		if strings.TrimSpace(r) != "" {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmptyCatalog
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Catalog{rng: rng, responses: kept}, nil
}

// Reply returns one of the canned responses.
func (c *Catalog) Reply(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	idx := c.rng.Intn(len(c.responses))
	c.mu.Unlock()
	return c.responses[idx], nil
}

// Responses returns a copy of the catalog.
func (c *Catalog) Responses() []string {
	return append([]string(nil), c.responses...)
}
