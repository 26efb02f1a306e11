package approval

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrRequestNotFound = errors.New("approval request not found")
	ErrTimeout         = errors.New("approval request timed out")
)

// Response is a user's answer to one pending request.
type Response struct {
	Approved bool
	Remember bool
}

// Waiter bridges asynchronous responders (the HTTP API, a TUI) to the
// goroutine blocked inside the gate. One channel per pending request.
type Waiter struct {
	pending sync.Map // map[string]chan Response
}

func NewWaiter() *Waiter {
	return &Waiter{}
}

// register creates the response channel for a request id. Buffered so
// Respond never blocks the responder.
func (w *Waiter) register(id string) chan Response {
	ch := make(chan Response, 1)
	w.pending.Store(id, ch)
	return ch
}

// Respond delivers the user's decision to whoever is waiting on id.
func (w *Waiter) Respond(id string, approved, remember bool) error {
	val, ok := w.pending.Load(id)
	if !ok {
		return ErrRequestNotFound
	}
	select {
	case val.(chan Response) <- Response{Approved: approved, Remember: remember}:
		return nil
	default:
		return errors.New("response already delivered")
	}
}

// wait blocks until a response arrives, the TTL lapses, or the context
// is cancelled. The pending entry is removed either way.
func (w *Waiter) wait(ctx context.Context, id string, ch chan Response, ttl time.Duration) (Response, error) {
	defer w.pending.Delete(id)

	timer := time.NewTimer(ttl)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		return Response{}, ErrTimeout
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
