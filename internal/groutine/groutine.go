// Package groutine starts named goroutines and records which goroutine owns
// a named execution context, such as the host-event context.
package groutine

import (
	"bytes"
	"context"
	"runtime"
	"runtime/pprof"
	"strconv"
	"sync/atomic"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// Go starts fn on a goroutine labelled with name in CPU profiles and returns
// a channel closed once fn returns.
//
//	done := groutine.Go(ctx, "host-event", func(ctx context.Context) {
//	    // work
//	})
//	<-done
//
// If parentCtx is nil, context.Background() is used.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) <-chan struct{} {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	done := make(chan struct{})
	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		defer close(done)
		ctx = context.WithValue(ctx, goroutineNameKey, name)
		fn(ctx)
	})
	return done
}

// Name retrieves the goroutine name from a context passed to a Go function.
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(goroutineNameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ID returns the numeric goroutine ID parsed from the stack header.
func ID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return 0
	}
	gid, _ := strconv.ParseUint(string(b[:i]), 10, 64)
	return gid
}

// Owner records the goroutine currently running a named execution context.
type Owner struct {
	name string
	gid  atomic.Uint64
}

func NewOwner(name string) *Owner {
	return &Owner{name: name}
}

func (o *Owner) Name() string { return o.name }

// Claim binds the owner to the calling goroutine.
func (o *Owner) Claim() { o.gid.Store(ID()) }

// Release unbinds the owner.
func (o *Owner) Release() { o.gid.Store(0) }

// Current reports whether the caller is the goroutine that claimed the owner.
func (o *Owner) Current() bool {
	gid := o.gid.Load()
	return gid != 0 && gid == ID()
}

// Run claims the owner on a new named goroutine for the duration of fn.
func (o *Owner) Run(parentCtx context.Context, fn func(ctx context.Context)) <-chan struct{} {
	return Go(parentCtx, o.name, func(ctx context.Context) {
		o.Claim()
		defer o.Release()
		fn(ctx)
	})
}
