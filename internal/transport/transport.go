package transport

import (
	"errors"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/message"
)

// ErrClosed is returned by Tell once a Ref has been closed.
var ErrClosed = errors.New("transport: ref closed")

// Inbox receives replies addressed to a sender.
type Inbox interface {
	Deliver(env message.Envelope)
}

// Ref addresses one coordinator.
type Ref interface {
	// Tell sends env without waiting. Replies, if any, go to sender,
	// which may be nil for one-way requests.
	Tell(env message.Envelope, sender Inbox) error

	// String describes the address for logging.
	String() string
}

// Handler processes requests on the coordinator side. It answers by
// calling reply at most once per reply-expecting request.
type Handler interface {
	Handle(env message.Envelope, reply func(message.Envelope))
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(env message.Envelope, reply func(message.Envelope))

// Handle implements Handler.
func (f HandlerFunc) Handle(env message.Envelope, reply func(message.Envelope)) {
	f(env, reply)
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the function from running. It reports whether the
	// call was stopped before it ran.
	Stop() bool
}

// Clock supplies time and deadline timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// AfterFunc implements Clock.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
