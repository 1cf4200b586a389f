package rpc

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/message"
	"github.com/yndnr/devmesh-go/internal/transport"
)

// recorder is a coordinator stand-in that records requests and answers
// reply-expecting ones with a fixed reply.
type recorder struct {
	mu    sync.Mutex
	kinds []message.Kind
	reply message.Reply
}

func (r *recorder) Handle(env message.Envelope, reply func(message.Envelope)) {
	r.mu.Lock()
	r.kinds = append(r.kinds, env.Request.Kind)
	r.mu.Unlock()
	if env.CorrelationID != 0 {
		reply(env.ReplyTo(r.reply))
	}
}

func (r *recorder) seen() []message.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message.Kind(nil), r.kinds...)
}

type inbox chan message.Envelope

func (i inbox) Deliver(env message.Envelope) { i <- env }

func (i inbox) wait(t *testing.T) message.Envelope {
	t.Helper()
	select {
	case env := <-i:
		return env
	case <-time.After(3 * time.Second):
		t.Fatal("no reply delivered")
	}
	return message.Envelope{}
}

func startServer(t *testing.T, cfg HandlerConfig) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{reply: &message.BooleanReply{Value: true}}
	local := transport.NewLocalRef("dev1", rec)
	t.Cleanup(func() { local.Close() })

	routes := NewRoutes()
	routes.Add("dev1", local)
	cfg.Router = routes
	return serve(t, cfg), rec
}

// serve starts a member serving cfg.Router and returns a client for it.
func serve(t *testing.T, cfg HandlerConfig) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(NewHandler(cfg))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	t.Cleanup(func() { c.Close() })
	return c
}

// silent is a coordinator that never answers.
var silent = transport.HandlerFunc(func(message.Envelope, func(message.Envelope)) {})

func TestSilentDeviceDoesNotDelayOthers(t *testing.T) {
	rec := &recorder{reply: &message.BooleanReply{Value: true}}
	fast := transport.NewLocalRef("fast", rec)
	t.Cleanup(func() { fast.Close() })
	slow := transport.NewLocalRef("slow", silent)
	t.Cleanup(func() { slow.Close() })

	routes := NewRoutes()
	routes.Add("fast", fast)
	routes.Add("slow", slow)
	c := serve(t, HandlerConfig{Router: routes})
	replies := make(inbox, 2)

	stuck := request(1, "slow", message.KindExists)
	stuck.TxID, stuck.Timeout = "dmtx-slow", time.Second
	healthy := request(2, "fast", message.KindExists)
	healthy.TxID, healthy.Timeout = "dmtx-fast", time.Second

	start := time.Now()
	c.Tell(stuck, replies)
	c.Tell(healthy, replies)

	env := replies.wait(t)
	if env.CorrelationID != 2 {
		t.Fatalf("first reply CorrelationID = %d, want 2", env.CorrelationID)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("reply from the healthy device took %v", elapsed)
	}
}

func TestExchangeBoundedBySenderTimeout(t *testing.T) {
	rec := &recorder{reply: &message.BooleanReply{Value: true}}
	fast := transport.NewLocalRef("fast", rec)
	t.Cleanup(func() { fast.Close() })
	slow := transport.NewLocalRef("slow", silent)
	t.Cleanup(func() { slow.Close() })

	routes := NewRoutes()
	routes.Add("fast", fast)
	routes.Add("slow", slow)
	c := serve(t, HandlerConfig{Router: routes})
	replies := make(inbox, 2)

	// Same transaction, so the second exchange waits for the first.
	stuck := request(1, "slow", message.KindExists)
	stuck.Timeout = 200 * time.Millisecond
	next := request(2, "fast", message.KindExists)

	start := time.Now()
	c.Tell(stuck, replies)
	c.Tell(next, replies)

	env := replies.wait(t)
	if env.CorrelationID != 2 {
		t.Fatalf("reply CorrelationID = %d, want 2", env.CorrelationID)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("queued request waited %v behind a 200ms exchange", elapsed)
	}
}

func TestMalformedReply(t *testing.T) {
	rec := &recorder{reply: &message.DataReply{Path: domain.MustParsePath("/a")}}
	local := transport.NewLocalRef("dev1", rec)
	t.Cleanup(func() { local.Close() })
	routes := NewRoutes()
	routes.Add("dev1", local)
	c := serve(t, HandlerConfig{Router: routes})
	replies := make(inbox, 1)

	c.Tell(request(1, "dev1", message.KindRead), replies)
	env := replies.wait(t)
	f, ok := env.Reply.(*message.RemoteFailure)
	if !ok {
		t.Fatalf("Reply = %#v, want RemoteFailure", env.Reply)
	}
	if f.Errors[0].Tag != domain.TagMalformedMessage {
		t.Errorf("Tag = %v, want %v", f.Errors[0].Tag, domain.TagMalformedMessage)
	}
}

func request(id uint64, device string, kind message.Kind) message.Envelope {
	return message.Envelope{
		CorrelationID: id,
		TxID:          "dmtx-rpc",
		Device:        device,
		Request:       &message.Request{Kind: kind, Store: domain.StoreConfiguration, Path: domain.MustParsePath("/a")},
	}
}

func TestClientAsk(t *testing.T) {
	c, _ := startServer(t, HandlerConfig{})
	replies := make(inbox, 1)

	if err := c.Tell(request(7, "dev1", message.KindExists), replies); err != nil {
		t.Fatalf("Tell() error = %v", err)
	}
	env := replies.wait(t)
	if env.CorrelationID != 7 {
		t.Errorf("CorrelationID = %d, want 7", env.CorrelationID)
	}
	b, ok := env.Reply.(*message.BooleanReply)
	if !ok || !b.Value {
		t.Errorf("Reply = %#v, want BooleanReply(true)", env.Reply)
	}
}

func TestClientPreservesOrder(t *testing.T) {
	c, rec := startServer(t, HandlerConfig{})
	replies := make(inbox, 1)

	del := request(0, "dev1", message.KindDelete)
	c.Tell(del, nil)
	c.Tell(request(0, "dev1", message.KindDelete), nil)
	c.Tell(message.Envelope{CorrelationID: 1, TxID: "dmtx-rpc", Device: "dev1", Request: &message.Request{Kind: message.KindSubmit}}, replies)
	replies.wait(t)

	want := []message.Kind{message.KindDelete, message.KindDelete, message.KindSubmit}
	got := rec.seen()
	if len(got) != len(want) {
		t.Fatalf("handled = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("handled[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUnknownDevice(t *testing.T) {
	c, _ := startServer(t, HandlerConfig{})
	replies := make(inbox, 1)

	c.Tell(request(3, "nope", message.KindRead), replies)
	env := replies.wait(t)
	f, ok := env.Reply.(*message.RemoteFailure)
	if !ok {
		t.Fatalf("Reply = %#v, want RemoteFailure", env.Reply)
	}
	if f.Errors[0].Tag != domain.TagDataMissing {
		t.Errorf("Tag = %v, want %v", f.Errors[0].Tag, domain.TagDataMissing)
	}
}

func TestRateLimited(t *testing.T) {
	c, rec := startServer(t, HandlerConfig{RateLimit: 1, Burst: 1})
	replies := make(inbox, 2)

	c.Tell(request(1, "dev1", message.KindExists), replies)
	c.Tell(request(2, "dev1", message.KindExists), replies)

	first := replies.wait(t)
	if _, ok := first.Reply.(*message.BooleanReply); !ok {
		t.Errorf("first Reply = %#v, want BooleanReply", first.Reply)
	}
	second := replies.wait(t)
	f, ok := second.Reply.(*message.RemoteFailure)
	if !ok {
		t.Fatalf("second Reply = %#v, want RemoteFailure", second.Reply)
	}
	if f.Errors[0].Tag != domain.TagResourceDenied {
		t.Errorf("Tag = %v, want %v", f.Errors[0].Tag, domain.TagResourceDenied)
	}
	if n := len(rec.seen()); n != 1 {
		t.Errorf("handled = %d, want 1", n)
	}
}

func TestClientUnreachable(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", CallTimeout: time.Second})
	defer c.Close()
	replies := make(inbox, 1)

	if err := c.Tell(request(1, "dev1", message.KindRead), replies); err != nil {
		t.Fatalf("Tell() error = %v", err)
	}
	select {
	case env := <-replies:
		t.Errorf("unexpected delivery %s", env)
	case <-time.After(300 * time.Millisecond):
	}
	if got := c.String(); got != "rpc://127.0.0.1:1" {
		t.Errorf("String() = %q, want %q", got, "rpc://127.0.0.1:1")
	}
}
