package client

import (
	"math/rand"
	"time"
)

// CalculateBackoff returns the delay before retry attempt n (0-based),
// doubling from base with up to 25% jitter, capped at maxDelay.
func CalculateBackoff(base time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	delay += jitter
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
