package reply

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Delay draws the simulated typing time of the bot.
type Delay struct {
	mu  sync.Mutex
	rng *rand.Rand
	min time.Duration
	max time.Duration
}

// NewDelay returns a uniform delay over [min, max].
func NewDelay(min, max time.Duration, rng *rand.Rand) (*Delay, error) {
	if min < 0 || max < min {
		return nil, fmt.Errorf("invalid reply delay range [%s, %s]", min, max)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Delay{rng: rng, min: min, max: max}, nil
}

// Next returns the next delay.
func (d *Delay) Next() time.Duration {
	span := d.max - d.min
	if span <= 0 {
		return d.min
	}
	d.mu.Lock()
	jitter := time.Duration(d.rng.Int63n(int64(span) + 1))
	d.mu.Unlock()
	return d.min + jitter
}
