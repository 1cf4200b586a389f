package rpc

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/message"
	"github.com/yndnr/devmesh-go/internal/transport"
)

// ExchangeProcedure is the Connect procedure carrying envelopes.
const ExchangeProcedure = "/devmesh.cluster.v1.CoordinatorService/Exchange"

// DefaultCallTimeout bounds one HTTP exchange.
const DefaultCallTimeout = 10 * time.Second

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL of the member hosting the coordinator, e.g. "http://10.0.0.2:7380".
	BaseURL string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient connect.HTTPClient

	// CallTimeout defaults to DefaultCallTimeout.
	CallTimeout time.Duration

	Logger *slog.Logger
}

// Client is a transport.Ref for a coordinator on another member. Each
// transaction has its own queue whose envelopes are exchanged one at a
// time, so per-transaction order is kept while transactions proceed
// independently. A failed exchange delivers nothing; the sender's deadline
// decides.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
	client  *connect.Client[structpb.Struct, structpb.Struct]

	mu     sync.Mutex
	lanes  map[domain.TxID]*lane
	closed bool
	wg     sync.WaitGroup
}

// outbound is one queued envelope.
type outbound struct {
	env      message.Envelope
	sender   transport.Inbox
	deadline time.Time
}

// lane is the queue of one transaction. It exists while it has work.
type lane struct {
	queue []outbound
}

// NewClient creates a client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		baseURL: base,
		timeout: cfg.CallTimeout,
		logger:  cfg.Logger.With("coordinator", base),
		client: connect.NewClient[structpb.Struct, structpb.Struct](
			cfg.HTTPClient,
			base+ExchangeProcedure,
			connect.WithInterceptors(NewLoggingInterceptor(cfg.Logger)),
		),
		lanes: make(map[domain.TxID]*lane),
	}
	return c
}

// Tell implements transport.Ref. The exchange is bounded by the call
// timeout and by the sender's own timeout, counted from now.
func (c *Client) Tell(env message.Envelope, sender transport.Inbox) error {
	timeout := c.timeout
	if env.Timeout > 0 && env.Timeout < timeout {
		timeout = env.Timeout
	}
	out := outbound{env: env, sender: sender, deadline: time.Now().Add(timeout)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	l, ok := c.lanes[env.TxID]
	if !ok {
		l = &lane{}
		c.lanes[env.TxID] = l
		c.wg.Add(1)
		go c.drain(env.TxID, l)
	}
	l.queue = append(l.queue, out)
	return nil
}

// String implements transport.Ref.
func (c *Client) String() string {
	return "rpc://" + strings.TrimPrefix(strings.TrimPrefix(c.baseURL, "http://"), "https://")
}

// Close stops accepting envelopes and waits for queued ones to be exchanged.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

// drain exchanges the envelopes of one lane in order and removes the lane
// once it is empty.
func (c *Client) drain(id domain.TxID, l *lane) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		if len(l.queue) == 0 {
			delete(c.lanes, id)
			c.mu.Unlock()
			return
		}
		out := l.queue[0]
		l.queue = l.queue[1:]
		c.mu.Unlock()

		c.exchange(out)
	}
}

func (c *Client) exchange(out outbound) {
	env := out.env
	msg, err := message.Encode(env)
	if err != nil {
		c.logger.Error("encode envelope", "msg", env.String(), "error", err)
		return
	}

	ctx, cancel := context.WithDeadline(context.Background(), out.deadline)
	defer cancel()

	resp, err := c.client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		c.logger.Warn("exchange failed", "msg", env.String(), "error", err)
		return
	}
	if env.CorrelationID == 0 || out.sender == nil {
		return
	}
	answer, err := message.Decode(resp.Msg)
	if err != nil {
		c.logger.Warn("decode reply", "msg", env.String(), "error", err)
		answer = env.ReplyTo(&message.RemoteFailure{Errors: []*domain.RPCError{domain.NewRPCError(
			domain.TypeProtocol, domain.TagMalformedMessage, domain.SeverityError, err.Error())}})
	}
	out.sender.Deliver(answer)
}
