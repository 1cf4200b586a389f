package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/message"
	"github.com/yndnr/devmesh-go/internal/storage/datastore"
	"github.com/yndnr/devmesh-go/internal/telemetry/metric"
	"github.com/yndnr/devmesh-go/internal/telemetry/tracer"
	"github.com/yndnr/devmesh-go/internal/transport"
	"github.com/yndnr/devmesh-go/pkg/cmap"
)

// Backend is the datastore a Coordinator reads and writes.
type Backend interface {
	Apply(device string, ops []datastore.Op) error
	View(device string, ops []datastore.Op, fn func(datastore.Reader) error) error
}

// Config configures a Coordinator.
type Config struct {
	Device  domain.DeviceID
	Backend Backend

	// Now defaults to time.Now.
	Now func() time.Time

	Logger  *slog.Logger
	Metrics *metric.CoordinatorMetrics
}

type txPhase int

const (
	phaseOpen txPhase = iota
	phaseSubmitted
	phaseCancelled
	// phaseLost marks a transaction that expired or lost staged writes.
	phaseLost
)

// txState is what the coordinator remembers about one transaction.
type txState struct {
	phase txPhase
	// writes counts the one-way requests received, staged or rejected.
	writes   uint64
	reason   string
	ops      []datastore.Op
	failures []*domain.RPCError
	lastSeen time.Time
}

// Coordinator serves the transactions of one device.
type Coordinator struct {
	device  domain.DeviceID
	backend Backend
	now     func() time.Time
	logger  *slog.Logger
	metrics *metric.CoordinatorMetrics

	mu  sync.Mutex
	txs *cmap.Map[domain.TxID, *txState]
}

var _ transport.Handler = (*Coordinator)(nil)

// New creates a coordinator.
func New(cfg Config) *Coordinator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		device:  cfg.Device,
		backend: cfg.Backend,
		now:     cfg.Now,
		logger:  cfg.Logger.With("device", cfg.Device.Name),
		metrics: cfg.Metrics,
		txs:     cmap.New[domain.TxID, *txState](),
	}
}

// Device returns the coordinated device.
func (c *Coordinator) Device() domain.DeviceID {
	return c.device
}

// OpenTransactions returns the number of transactions with staged state.
func (c *Coordinator) OpenTransactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	c.txs.Range(func(_ domain.TxID, st *txState) bool {
		if st.phase == phaseOpen {
			n++
		}
		return true
	})
	return n
}

// Handle implements transport.Handler.
func (c *Coordinator) Handle(env message.Envelope, reply func(message.Envelope)) {
	if env.Request == nil {
		c.logger.Debug("ignoring envelope without request", "msg", env.String())
		return
	}
	kind := env.Request.Kind
	c.metrics.Handled(c.device.Name, kind.String())

	_, span := tracer.StartSpan(context.Background(), "devmesh.coordinator."+kind.String(),
		attribute.String("devmesh.tx_id", env.TxID.String()),
		attribute.String("devmesh.device", c.device.Name),
	)
	defer span.End()

	c.mu.Lock()
	r := c.process(env)
	c.mu.Unlock()

	if f, ok := r.(*message.RemoteFailure); ok {
		for _, e := range f.Errors {
			c.metrics.Failed(c.device.Name, string(e.Tag))
		}
		span.SetAttributes(attribute.String("devmesh.outcome", "remote_failure"))
	}
	if r != nil && env.CorrelationID != 0 {
		reply(env.ReplyTo(r))
	}
}

// process returns the answer to env, nil for one-way requests.
func (c *Coordinator) process(env message.Envelope) message.Reply {
	req := env.Request
	if err := req.Validate(); err != nil {
		return c.reject(env, err)
	}

	switch req.Kind {
	case message.KindRead:
		return c.read(env)
	case message.KindExists:
		return c.exists(env)
	case message.KindPut, message.KindMerge, message.KindDelete:
		c.stage(env)
		return nil
	case message.KindSubmit:
		return c.submit(env)
	case message.KindCancel:
		return c.cancel(env)
	}
	return nil
}

// reject answers an invalid request. For one-way requests the failure is
// recorded and reported when the transaction is submitted.
func (c *Coordinator) reject(env message.Envelope, err error) message.Reply {
	rpcErr := toRPCError(err)
	c.logger.Warn("invalid request", "msg", env.String(), "error", err)
	if env.Request.Kind.OneWay() {
		if st, ok := c.openTx(env.TxID); ok {
			st.writes++
			st.failures = append(st.failures, rpcErr)
		}
		return nil
	}
	return &message.RemoteFailure{Errors: []*domain.RPCError{rpcErr}}
}

// openTx returns the state of an OPEN transaction, creating it on first use.
// ok is false if the transaction has already finished.
func (c *Coordinator) openTx(id domain.TxID) (*txState, bool) {
	st, loaded := c.txs.GetOrSet(id, &txState{phase: phaseOpen})
	if !loaded {
		c.metrics.TransactionOpened()
		c.logger.Debug("transaction opened", "tx_id", id.String())
	}
	st.lastSeen = c.now()
	return st, st.phase == phaseOpen
}

// checked returns the state of an OPEN transaction that holds every write
// the proxy sent before env. Otherwise it returns the failure to answer.
func (c *Coordinator) checked(env message.Envelope) (*txState, *message.RemoteFailure) {
	st, ok := c.openTx(env.TxID)
	if !ok {
		return nil, c.finished(env, st)
	}
	if st.writes != env.Writes {
		c.logger.Warn("transaction lost staged writes",
			"tx_id", env.TxID.String(), "staged", st.writes, "sent", env.Writes)
		c.close(st, phaseLost)
		st.reason = fmt.Sprintf("holds %d of %d writes sent", st.writes, env.Writes)
		st.ops = nil
		return nil, c.finished(env, st)
	}
	return st, nil
}

func (c *Coordinator) finished(env message.Envelope, st *txState) *message.RemoteFailure {
	msg := "transaction " + env.TxID.String() + " is already finished"
	if st.phase == phaseLost {
		msg = "transaction " + env.TxID.String() + " is lost: " + st.reason
	}
	return &message.RemoteFailure{Errors: []*domain.RPCError{domain.NewRPCError(
		domain.TypeApplication, domain.TagOperationFailed, domain.SeverityError, msg)}}
}

func (c *Coordinator) read(env message.Envelope) message.Reply {
	st, failure := c.checked(env)
	if failure != nil {
		return failure
	}
	req := env.Request

	var node *domain.Node
	err := c.backend.View(c.device.Name, st.ops, func(r datastore.Reader) error {
		var err error
		node, err = r.Read(req.Store, req.Path)
		return err
	})
	if err != nil {
		c.logger.Error("read failed", "msg", env.String(), "error", err)
		return message.NewRemoteFailure(toRPCError(err))
	}
	if node == nil {
		return &message.EmptyReadReply{}
	}
	return &message.DataReply{Path: req.Path, Node: node}
}

func (c *Coordinator) exists(env message.Envelope) message.Reply {
	st, failure := c.checked(env)
	if failure != nil {
		return failure
	}
	req := env.Request

	var found bool
	err := c.backend.View(c.device.Name, st.ops, func(r datastore.Reader) error {
		var err error
		found, err = r.Exists(req.Store, req.Path)
		return err
	})
	if err != nil {
		c.logger.Error("exists failed", "msg", env.String(), "error", err)
		return message.NewRemoteFailure(toRPCError(err))
	}
	return &message.BooleanReply{Value: found}
}

func (c *Coordinator) stage(env message.Envelope) {
	st, ok := c.openTx(env.TxID)
	if !ok {
		c.logger.Warn("write to finished transaction dropped", "msg", env.String())
		return
	}
	req := env.Request
	op := datastore.Op{Store: req.Store, Path: req.Path, Data: req.Data}
	switch req.Kind {
	case message.KindPut:
		op.Kind = datastore.OpPut
	case message.KindMerge:
		op.Kind = datastore.OpMerge
	case message.KindDelete:
		op.Kind = datastore.OpDelete
	}
	st.writes++
	st.ops = append(st.ops, op)
	c.logger.Debug("write staged", "msg", env.String(), "staged", len(st.ops))
}

func (c *Coordinator) submit(env message.Envelope) message.Reply {
	st, failure := c.checked(env)
	if failure != nil {
		return failure
	}
	c.close(st, phaseSubmitted)

	if len(st.failures) > 0 {
		c.logger.Warn("submit rejected", "tx_id", env.TxID.String(), "failures", len(st.failures))
		return &message.RemoteFailure{Errors: st.failures}
	}
	if err := c.backend.Apply(c.device.Name, st.ops); err != nil {
		c.logger.Warn("submit failed", "tx_id", env.TxID.String(), "error", err)
		return message.NewRemoteFailure(toRPCError(err))
	}
	c.logger.Info("transaction submitted", "tx_id", env.TxID.String(), "ops", len(st.ops))
	return &message.SubmitAck{}
}

func (c *Coordinator) cancel(env message.Envelope) message.Reply {
	st, ok := c.txs.Get(env.TxID)
	if !ok {
		return &message.BooleanReply{Value: false}
	}
	if st.phase != phaseOpen {
		return c.finished(env, st)
	}
	c.close(st, phaseCancelled)
	c.logger.Debug("transaction cancelled", "tx_id", env.TxID.String(), "discarded", len(st.ops))
	return &message.BooleanReply{Value: true}
}

func (c *Coordinator) close(st *txState, phase txPhase) {
	st.phase = phase
	st.lastSeen = c.now()
	c.metrics.TransactionClosed()
}

// Expire handles transactions idle for longer than ttl. Open ones are
// discarded and kept as lost for another ttl, so that a late submit fails
// instead of committing nothing. Finished ones are forgotten. It returns
// the number of transactions expired or forgotten.
func (c *Coordinator) Expire(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-ttl)
	var stale []domain.TxID
	c.txs.Range(func(id domain.TxID, st *txState) bool {
		if st.lastSeen.Before(cutoff) {
			stale = append(stale, id)
		}
		return true
	})
	for _, id := range stale {
		st, ok := c.txs.Get(id)
		if !ok {
			continue
		}
		if st.phase != phaseOpen {
			c.txs.Delete(id)
			continue
		}
		c.logger.Warn("abandoned transaction discarded", "tx_id", id.String(), "staged", len(st.ops))
		c.close(st, phaseLost)
		st.reason = "expired after " + ttl.String() + " idle"
		st.ops = nil
	}
	return len(stale)
}

// toRPCError classifies a local error for a RemoteFailure.
func toRPCError(err error) *domain.RPCError {
	var rpcErr *domain.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var out *domain.RPCError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMissingArgument):
		out = domain.NewRPCError(domain.TypeApplication, domain.TagInvalidValue, domain.SeverityError, err.Error())
	case errors.Is(err, message.ErrUnknownMessage):
		out = domain.NewRPCError(domain.TypeProtocol, domain.TagMalformedMessage, domain.SeverityError, err.Error())
	default:
		out = domain.NewRPCError(domain.TypeApplication, domain.TagOperationFailed, domain.SeverityError, err.Error())
	}
	// app_tag carries the DM-* code so clients can match it.
	out.AppTag = domain.GetErrorCode(err)
	return out
}
