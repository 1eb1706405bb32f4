// Package registration abstracts the external signup call the worker makes
// for each generated account. The simulated implementation stands in for
// the real upstream API and exists to exercise the retry path.
package registration

import (
	"context"
	"math/rand"
	"time"
)

// Func attempts to register an account upstream. ok=false means the
// upstream rejected the signup; err is reserved for transport failures.
type Func func(ctx context.Context, username, email, phone, password string) (ok bool, err error)

const simulatedSuccessRate = 0.95

// Simulated returns a Func that sleeps a uniform random delay in
// [minDelay, maxDelay] and then succeeds 95% of the time.
func Simulated(minDelay, maxDelay time.Duration) Func {
	return func(ctx context.Context, username, email, phone, password string) (bool, error) {
		delay := minDelay
		if maxDelay > minDelay {
			delay += time.Duration(rand.Int63n(int64(maxDelay - minDelay)))
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
		return rand.Float64() < simulatedSuccessRate, nil
	}
}
