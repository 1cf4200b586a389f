package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/message"
)

type collectInbox struct {
	mu   sync.Mutex
	envs []message.Envelope
	ch   chan struct{}
}

func newCollectInbox() *collectInbox {
	return &collectInbox{ch: make(chan struct{}, 16)}
}

func (c *collectInbox) Deliver(env message.Envelope) {
	c.mu.Lock()
	c.envs = append(c.envs, env)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func TestLocalRef_PreservesOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		kinds []message.Kind
	)
	h := HandlerFunc(func(env message.Envelope, reply func(message.Envelope)) {
		mu.Lock()
		kinds = append(kinds, env.Request.Kind)
		mu.Unlock()
	})

	ref := NewLocalRef("dev1", h)
	order := []message.Kind{message.KindPut, message.KindMerge, message.KindDelete, message.KindSubmit}
	for _, k := range order {
		if err := ref.Tell(message.Envelope{Request: &message.Request{Kind: k}}, nil); err != nil {
			t.Fatalf("Tell() error = %v", err)
		}
	}
	if err := ref.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != len(order) {
		t.Fatalf("handled %d envelopes, want %d", len(kinds), len(order))
	}
	for i := range order {
		if kinds[i] != order[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], order[i])
		}
	}
}

func TestLocalRef_RepliesToSender(t *testing.T) {
	h := HandlerFunc(func(env message.Envelope, reply func(message.Envelope)) {
		reply(env.ReplyTo(&message.BooleanReply{Value: true}))
	})
	ref := NewLocalRef("dev1", h)
	defer ref.Close()

	inbox := newCollectInbox()
	if err := ref.Tell(message.Envelope{CorrelationID: 7, Request: &message.Request{Kind: message.KindCancel}}, inbox); err != nil {
		t.Fatalf("Tell() error = %v", err)
	}

	select {
	case <-inbox.ch:
	case <-time.After(time.Second):
		t.Fatal("no reply delivered")
	}
	inbox.mu.Lock()
	defer inbox.mu.Unlock()
	if inbox.envs[0].CorrelationID != 7 {
		t.Errorf("CorrelationID = %d, want 7", inbox.envs[0].CorrelationID)
	}
	if r, ok := inbox.envs[0].Reply.(*message.BooleanReply); !ok || !r.Value {
		t.Errorf("Reply = %#v, want BooleanReply{true}", inbox.envs[0].Reply)
	}
}

func TestLocalRef_TellAfterClose(t *testing.T) {
	ref := NewLocalRef("dev1", HandlerFunc(func(message.Envelope, func(message.Envelope)) {}))
	ref.Close()
	if err := ref.Tell(message.Envelope{Request: &message.Request{Kind: message.KindSubmit}}, nil); err != ErrClosed {
		t.Errorf("Tell() after Close error = %v, want ErrClosed", err)
	}
}
