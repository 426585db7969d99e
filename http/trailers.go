package http

import (
	"context"
	"sync"

	"github.com/indigo-web/h1/kv"
)

// Trailers delivers trailer fields of a chunked body. They become available strictly after
// the whole body has been read, therefore they're resolved exactly once, at the moment the
// terminating chunk and the trailer section are fully consumed.
type Trailers struct {
	once   sync.Once
	done   chan struct{}
	fields *kv.Storage
}

// NewTrailers returns an unresolved Trailers and the function resolving it. Only the first
// call of the function has an effect.
func NewTrailers() (*Trailers, func(*kv.Storage)) {
	t := &Trailers{done: make(chan struct{})}

	return t, t.resolve
}

func (t *Trailers) resolve(fields *kv.Storage) {
	t.once.Do(func() {
		if fields == nil {
			fields = kv.New()
		}

		t.fields = fields
		close(t.done)
	})
}

// Done returns a channel, which is closed as soon as trailers are resolved.
func (t *Trailers) Done() <-chan struct{} {
	return t.done
}

// Ready reports whether trailers were already resolved.
func (t *Trailers) Ready() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Fields returns trailer fields without blocking. The second value is false, if the body
// wasn't read till the end yet or failed.
func (t *Trailers) Fields() (*kv.Storage, bool) {
	if !t.Ready() {
		return nil, false
	}

	return t.fields, true
}

// Wait blocks until trailers are resolved or the context is done. As trailers are resolved
// by reading the body, it must be read in a different goroutine, otherwise Wait blocks until
// the context expires. Trailers of a body that failed to be read are never resolved.
func (t *Trailers) Wait(ctx context.Context) (*kv.Storage, error) {
	select {
	case <-t.done:
		return t.fields, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
