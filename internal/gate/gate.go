// Package gate provides a named, reusable blocking gate that lets a caller
// wait synchronously for a result produced on another execution context.
//
// A gate cycle is armed with Take, resolved exactly once with Give, and
// observed with the Waiter returned by Take:
//
//	w := g.Take("connect")
//	if rc := issueRequest(); rc != 0 {
//	    g.Give(rc) // nobody will wait, release the cycle
//	    return rc
//	}
//	rc := w.Wait()
//
// Give on an idle gate is a no-op, which lets a disconnect force-release every
// gate of a connection without knowing which ones are armed.
package gate

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Cancelled is the result reported by WaitContext when the context ends
// before the gate is given.
const Cancelled = -1

type cycle struct {
	owner string
	done  chan struct{}
	rc    int
}

// Gate is a binary gate with a result slot.
type Gate struct {
	name   string
	logger *logrus.Logger

	mu     sync.Mutex
	cur    *cycle
	idle   chan struct{} // closed when cur becomes nil
	lastRC int
}

// New creates an idle gate.
func New(name string, logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gate{name: name, logger: logger}
}

// Name returns the gate name used in logs.
func (g *Gate) Name() string {
	return g.name
}

// Take arms a new cycle owned by owner. If a previous cycle is still armed it
// blocks until that cycle is given.
func (g *Gate) Take(owner string) *Waiter {
	g.mu.Lock()
	for g.cur != nil {
		idle := g.idle
		g.mu.Unlock()
		<-idle
		g.mu.Lock()
	}
	c := &cycle{owner: owner, done: make(chan struct{})}
	g.cur = c
	g.idle = make(chan struct{})
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"gate":  g.name,
		"owner": owner,
	}).Debug("Gate taken")

	return &Waiter{g: g, c: c}
}

// Give resolves the armed cycle with rc. It reports whether a cycle was
// armed; giving an idle gate only records rc as the last result.
func (g *Gate) Give(rc int) bool {
	g.mu.Lock()
	c := g.resolveLocked(rc)
	g.mu.Unlock()

	if c == nil {
		return false
	}
	g.logger.WithFields(logrus.Fields{
		"gate":  g.name,
		"owner": c.owner,
		"rc":    rc,
	}).Debug("Gate given")
	return true
}

func (g *Gate) resolveLocked(rc int) *cycle {
	g.lastRC = rc
	c := g.cur
	if c == nil {
		return nil
	}
	c.rc = rc
	g.cur = nil
	close(c.done)
	close(g.idle)
	return c
}

// Armed reports whether a cycle is waiting to be given.
func (g *Gate) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cur != nil
}

// LastResult returns the rc of the most recent Give.
func (g *Gate) LastResult() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRC
}

// Waiter observes one armed cycle.
type Waiter struct {
	g *Gate
	c *cycle
}

// Wait blocks until the cycle is given and returns its result.
func (w *Waiter) Wait() int {
	w.g.logger.WithFields(logrus.Fields{
		"gate":  w.g.name,
		"owner": w.c.owner,
	}).Debug(">> Gate wait")
	<-w.c.done
	w.g.logger.WithFields(logrus.Fields{
		"gate":  w.g.name,
		"owner": w.c.owner,
		"rc":    w.c.rc,
	}).Debug("<< Gate wait")
	return w.c.rc
}

// WaitContext is Wait bounded by ctx. When ctx ends first the cycle is given
// Cancelled so the gate can be taken again, and ctx.Err() is returned.
func (w *Waiter) WaitContext(ctx context.Context) (int, error) {
	select {
	case <-w.c.done:
		return w.c.rc, nil
	default:
	}

	select {
	case <-w.c.done:
		return w.c.rc, nil
	case <-ctx.Done():
		w.g.giveCycle(w.c, Cancelled)
		<-w.c.done
		if w.c.rc != Cancelled {
			// a concurrent Give won the race
			return w.c.rc, nil
		}
		return Cancelled, ctx.Err()
	}
}

// Give resolves this waiter's cycle only. It reports false when the cycle
// was already resolved, e.g. by a forced release or a cancelled wait, so a
// late completion never resolves a cycle armed after it.
func (w *Waiter) Give(rc int) bool {
	w.g.mu.Lock()
	if w.g.cur != w.c {
		w.g.mu.Unlock()
		return false
	}
	w.g.resolveLocked(rc)
	w.g.mu.Unlock()

	w.g.logger.WithFields(logrus.Fields{
		"gate":  w.g.name,
		"owner": w.c.owner,
		"rc":    rc,
	}).Debug("Gate given")
	return true
}

// Done is closed once the cycle has been given.
func (w *Waiter) Done() <-chan struct{} {
	return w.c.done
}

// giveCycle resolves c only if it is still the armed cycle.
func (g *Gate) giveCycle(c *cycle, rc int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cur == c {
		g.resolveLocked(rc)
	}
}
