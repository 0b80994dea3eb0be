package permission

import (
	"context"
	"errors"
	"fmt"
)

// ErrRequestFailed reports that the host environment could not be asked for
// authorization at all (torn down, unsupported, or the prompt itself broke).
var ErrRequestFailed = errors.New("permission request failed")

// Decision is the one-shot outcome of a permission request.
// A non-nil Err means the request failed; Granted is meaningless then.
type Decision struct {
	Granted bool
	Err     error
}

// Gate asks the host environment whether scanning may proceed.
//
// Request triggers the authorization flow once and returns a channel that
// delivers at most one Decision and is then closed. The decision may arrive
// immediately or after user interaction. Cancelling ctx releases the
// subscription: the channel is closed, possibly without a value, and a
// decision that arrives later is discarded.
//
// A synchronous error means the request could not be issued. Callers must not
// issue a second request while one is unresolved.
type Gate interface {
	Request(ctx context.Context) (<-chan Decision, error)
}

// RequestFailed wraps err so that errors.Is(err, ErrRequestFailed) holds.
func RequestFailed(err error) error {
	if err == nil {
		return ErrRequestFailed
	}
	if errors.Is(err, ErrRequestFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRequestFailed, err)
}

// Granted returns a decision that allows scanning.
func Granted() Decision {
	return Decision{Granted: true}
}

// Denied returns a decision that refuses scanning.
func Denied() Decision {
	return Decision{}
}

// Failed returns a decision for a request that could not be answered.
func Failed(err error) Decision {
	return Decision{Err: RequestFailed(err)}
}

// Resolved returns a channel already holding d.
func Resolved(d Decision) <-chan Decision {
	ch := make(chan Decision, 1)
	ch <- d
	close(ch)
	return ch
}

// Await issues a request on g and blocks until it resolves or ctx ends.
// Request failures come back as a Decision with Err set; the returned error
// is non-nil only when ctx ended first.
func Await(ctx context.Context, g Gate) (Decision, error) {
	ch, err := g.Request(ctx)
	if err != nil {
		return Failed(err), nil
	}

	select {
	case d, ok := <-ch:
		if !ok {
			if ctx.Err() != nil {
				return Decision{}, ctx.Err()
			}
			return Failed(errors.New("gate closed without a decision")), nil
		}
		if d.Err != nil {
			d.Err = RequestFailed(d.Err)
		}
		return d, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}
