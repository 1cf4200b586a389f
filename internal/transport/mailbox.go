package transport

import (
	"sync"

	"github.com/yndnr/devmesh-go/internal/core/message"
)

// letter is one queued envelope with its reply address.
type letter struct {
	env    message.Envelope
	sender Inbox
}

// mailbox is an unbounded FIFO drained by a single goroutine, so that
// Tell never blocks on a slow consumer and order is preserved.
type mailbox struct {
	mu     sync.Mutex
	queue  []letter
	notify chan struct{}
	closed bool
	done   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (m *mailbox) put(l letter) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.queue = append(m.queue, l)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// run drains the mailbox until close, calling fn for each letter in order.
func (m *mailbox) run(fn func(letter)) {
	defer close(m.done)
	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()

		for _, l := range batch {
			fn(l)
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			<-m.notify
		}
	}
}

// close stops accepting letters. Queued letters are still drained.
func (m *mailbox) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}
