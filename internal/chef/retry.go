package chef

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

const defaultMaxRetries = 3

// DefaultBackOff is the retry schedule used by the generator backends.
func DefaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultMaxRetries)
}

// Retry runs op until it succeeds, b is exhausted, ctx is done, or op fails
// with an error transient rejects.
func Retry(ctx context.Context, b backoff.BackOff, transient func(error) bool, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
