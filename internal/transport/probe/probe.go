// Package probe provides a recording transport.Ref and a manual clock
// for testing code that talks to a coordinator.
package probe

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/message"
	"github.com/yndnr/devmesh-go/internal/transport"
)

// Default waits used by the Expect helpers.
const (
	DefaultExpectTimeout   = 3 * time.Second
	DefaultNoMessageWindow = 100 * time.Millisecond
)

type received struct {
	env    message.Envelope
	sender transport.Inbox
}

// Probe is a transport.Ref that records everything told to it and lets a
// test answer as the coordinator would.
type Probe struct {
	tb   testing.TB
	msgs chan received

	mu   sync.Mutex
	last *received
}

// New creates a probe bound to tb.
func New(tb testing.TB) *Probe {
	return &Probe{
		tb:   tb,
		msgs: make(chan received, 64),
	}
}

// Tell implements transport.Ref.
func (p *Probe) Tell(env message.Envelope, sender transport.Inbox) error {
	p.msgs <- received{env: env, sender: sender}
	return nil
}

// String implements transport.Ref.
func (p *Probe) String() string {
	return "probe://" + p.tb.Name()
}

// ExpectMsg waits for the next envelope and fails the test unless it is a
// request of the given kind.
func (p *Probe) ExpectMsg(kind message.Kind) message.Envelope {
	p.tb.Helper()
	select {
	case r := <-p.msgs:
		if r.env.Request == nil || r.env.Request.Kind != kind {
			p.tb.Fatalf("ExpectMsg: got %s, want %s", r.env, kind)
		}
		p.mu.Lock()
		p.last = &r
		p.mu.Unlock()
		return r.env
	case <-time.After(DefaultExpectTimeout):
		p.tb.Fatalf("ExpectMsg: timeout waiting for %s", kind)
	}
	return message.Envelope{}
}

// ExpectNoMsg fails the test if anything arrives within the window.
func (p *Probe) ExpectNoMsg() {
	p.tb.Helper()
	select {
	case r := <-p.msgs:
		p.tb.Fatalf("ExpectNoMsg: got %s", r.env)
	case <-time.After(DefaultNoMessageWindow):
	}
}

// Reply answers the last envelope received through ExpectMsg.
func (p *Probe) Reply(r message.Reply) {
	p.tb.Helper()
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last == nil {
		p.tb.Fatal("Reply: no message received yet")
		return
	}
	p.ReplyTo(last.env, last.sender, r)
}

// ReplyTo answers a specific request envelope.
func (p *Probe) ReplyTo(req message.Envelope, sender transport.Inbox, r message.Reply) {
	p.tb.Helper()
	if sender == nil {
		p.tb.Fatalf("ReplyTo: %s was sent without a reply address", req)
		return
	}
	sender.Deliver(req.ReplyTo(r))
}

// Sender returns the reply address of the last received envelope.
func (p *Probe) Sender() transport.Inbox {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	return p.last.sender
}

// ManualClock is a transport.Clock whose time only moves on Advance.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

// NewManualClock creates a clock starting at a fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(1700000000, 0)}
}

// Now implements transport.Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements transport.Clock.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) transport.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return &manualHandle{clock: c, t: t}
}

// Pending returns the number of armed timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves time forward and runs due timers in deadline order on the
// calling goroutine.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	kept := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped || t.fired:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			kept = append(kept, t)
		}
	}
	c.timers = kept
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

type manualHandle struct {
	clock *ManualClock
	t     *manualTimer
}

func (h *manualHandle) Stop() bool {
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	if h.t.stopped || h.t.fired {
		return false
	}
	h.t.stopped = true
	return true
}
