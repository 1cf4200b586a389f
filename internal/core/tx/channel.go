package tx

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/message"
	"github.com/yndnr/devmesh-go/internal/telemetry/metric"
	"github.com/yndnr/devmesh-go/internal/telemetry/tracer"
	"github.com/yndnr/devmesh-go/internal/transport"
)

// pendingAsk is one reply-expecting request awaiting resolution.
type pendingAsk struct {
	kind    message.Kind
	started time.Time
	timer   transport.Timer
	span    trace.Span
	result  *Future[message.Reply]
}

// channel correlates requests of one transaction with their replies.
// It is the transport.Inbox the coordinator answers to.
type channel struct {
	txID    domain.TxID
	device  string
	ref     transport.Ref
	clock   transport.Clock
	timeout time.Duration
	logger  *slog.Logger
	metrics *metric.ProxyMetrics

	nextID atomic.Uint64

	// sendMu orders sends so that every envelope carries the number of
	// writes the ref accepted before it.
	sendMu sync.Mutex
	writes uint64

	mu      sync.Mutex
	pending map[uint64]*pendingAsk
}

func newChannel(txID domain.TxID, device string, ref transport.Ref, o *options, timeout time.Duration) *channel {
	return &channel{
		txID:    txID,
		device:  device,
		ref:     ref,
		clock:   o.clock,
		timeout: timeout,
		logger:  o.logger,
		metrics: o.metrics,
		pending: make(map[uint64]*pendingAsk),
	}
}

// tell sends a one-way request.
func (c *channel) tell(req *message.Request) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	env := message.Envelope{TxID: c.txID, Device: c.device, Writes: c.writes, Request: req}
	c.logger.Debug("dispatch", "msg", env.String(), "coordinator", c.ref.String())
	if err := c.ref.Tell(env, nil); err != nil {
		return domain.ErrDispatchFailed.WithDetails(req.Kind.String()).WithCause(err)
	}
	c.writes++
	c.metrics.Sent(req.Kind.String())
	return nil
}

// ask sends req and returns a future completed by the matching reply or by
// the deadline, whichever comes first.
func (c *channel) ask(req *message.Request) *Future[message.Reply] {
	id := c.nextID.Add(1)
	env := message.Envelope{CorrelationID: id, TxID: c.txID, Device: c.device, Timeout: c.timeout, Request: req}

	_, span := tracer.StartSpan(context.Background(), "devmesh.proxy."+req.Kind.String(),
		attribute.String("devmesh.tx_id", c.txID.String()),
		attribute.String("devmesh.device", c.device),
		attribute.Int64("devmesh.correlation_id", int64(id)),
	)

	p := &pendingAsk{
		kind:    req.Kind,
		started: c.clock.Now(),
		span:    span,
		result:  newFuture[message.Reply](),
	}

	c.mu.Lock()
	c.pending[id] = p
	p.timer = c.clock.AfterFunc(c.timeout, func() { c.expire(id) })
	c.mu.Unlock()

	c.logger.Debug("dispatch", "msg", env.String(), "coordinator", c.ref.String())
	c.metrics.Sent(req.Kind.String())
	c.sendMu.Lock()
	env.Writes = c.writes
	err := c.ref.Tell(env, c)
	c.sendMu.Unlock()
	if err != nil {
		if p := c.take(id); p != nil {
			c.logger.Warn("request not sent", "msg", env.String(), "error", err)
			c.resolve(p, nil, undeliverable(c.ref.String(), req.Kind, err), metric.OutcomeTimeout)
		}
	}
	return p.result
}

// take removes and returns the pending ask for id, or nil if it has
// already been resolved.
func (c *channel) take(id uint64) *pendingAsk {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	if p.timer != nil {
		p.timer.Stop()
	}
	return p
}

// Deliver implements transport.Inbox.
func (c *channel) Deliver(env message.Envelope) {
	if !env.IsReply() {
		c.logger.Debug("ignoring non-reply delivery", "msg", env.String())
		return
	}
	p := c.take(env.CorrelationID)
	if p == nil {
		c.logger.Debug("discarding late reply", "msg", env.String())
		c.metrics.LateReply()
		return
	}
	c.resolve(p, env.Reply, nil, outcomeLabel(env.Reply))
}

func (c *channel) expire(id uint64) {
	p := c.take(id)
	if p == nil {
		return
	}
	c.logger.Warn("coordinator did not respond",
		"kind", p.kind.String(),
		"correlation_id", id,
		"coordinator", c.ref.String(),
		"timeout", c.timeout,
	)
	c.resolve(p, nil, unresponsive(c.ref.String(), p.kind, c.timeout), metric.OutcomeTimeout)
}

func (c *channel) resolve(p *pendingAsk, r message.Reply, err error, outcome string) {
	c.metrics.Resolved(p.kind.String(), outcome, c.clock.Now().Sub(p.started))
	p.span.SetAttributes(attribute.String("devmesh.outcome", outcome))
	if err != nil {
		p.span.RecordError(err)
		p.span.SetStatus(codes.Error, err.Error())
	}
	p.span.End()
	p.result.complete(r, err)
}

// inflight returns the number of unresolved asks.
func (c *channel) inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
