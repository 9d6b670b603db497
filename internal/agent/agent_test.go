package agent

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAgent is a scriptable Agent used across the package tests.
type fakeAgent struct {
	name   string
	handle func(ctx context.Context, utterance string, actx *Context) (*Response, error)

	mu    sync.Mutex
	calls int
	last  *Context
}

func newFake(name string) *fakeAgent {
	return &fakeAgent{
		name: name,
		handle: func(ctx context.Context, utterance string, actx *Context) (*Response, error) {
			return &Response{Message: name + " says hi", Success: true}, nil
		},
	}
}

func (f *fakeAgent) Name() string { return f.name }

func (f *fakeAgent) Handle(ctx context.Context, utterance string, actx *Context) (*Response, error) {
	f.mu.Lock()
	f.calls++
	cp := *actx
	f.last = &cp
	f.mu.Unlock()
	return f.handle(ctx, utterance, actx)
}

func (f *fakeAgent) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAgent) LastContext() *Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// registryOf registers the named fakes in order.
func registryOf(names ...string) *Registry {
	r := NewRegistry(discardLogger())
	for _, n := range names {
		r.Register(newFake(n))
	}
	return r
}
