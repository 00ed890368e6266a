// Package lifecycle sequences the server's background work: connection
// checks at startup, and sweepers and the HTTP drain at shutdown.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Coordinator gates /readyz. It is ready once every startup hook returns and
// stops being ready the moment Shutdown begins, so load balancers stop
// routing submissions while in-flight writes drain.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	startupWg  sync.WaitGroup
	shutdownWg sync.WaitGroup
	ready      atomic.Bool
}

func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{ctx: ctx, cancel: cancel}
}

// Context is cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn in its own goroutine.
func (c *Coordinator) OnStartup(fn func()) {
	c.startupWg.Go(fn)
}

// OnShutdown runs fn in its own goroutine. Hooks block on Context().Done()
// and then clean up; Shutdown waits for all of them.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(fn)
}

func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// WaitForStartup blocks on the startup hooks, then marks the coordinator
// ready unless shutdown has already begun.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	if c.ctx.Err() == nil {
		c.ready.Store(true)
	}
}

// Shutdown clears readiness, cancels the context and waits up to timeout for
// the shutdown hooks.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
