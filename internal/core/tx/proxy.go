package tx

import (
	"log/slog"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/message"
	"github.com/yndnr/devmesh-go/internal/telemetry/metric"
	"github.com/yndnr/devmesh-go/internal/transport"
)

// ReadTransaction is the read-only view of a transaction.
type ReadTransaction interface {
	Identifier() domain.TxID
	Read(store domain.Store, path domain.Path) *Future[*domain.Node]
	Exists(store domain.Store, path domain.Path) *Future[bool]
	Cancel() *Future[bool]
}

// WriteTransaction is the write-only view of a transaction.
type WriteTransaction interface {
	Identifier() domain.TxID
	Put(store domain.Store, path domain.Path, data *domain.Node) error
	Merge(store domain.Store, path domain.Path, data *domain.Node) error
	Delete(store domain.Store, path domain.Path) error
	Cancel() *Future[bool]
	Submit() (*Future[struct{}], error)
	Commit() (*Future[domain.TransactionStatus], error)
}

// ReadWriteTransaction combines both views.
type ReadWriteTransaction interface {
	ReadTransaction
	WriteTransaction
}

type options struct {
	logger  *slog.Logger
	clock   transport.Clock
	metrics *metric.ProxyMetrics
	id      domain.TxID
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used for deadlines.
func WithClock(c transport.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics attaches proxy metrics.
func WithMetrics(m *metric.ProxyMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithID fixes the transaction identifier instead of generating one.
func WithID(id domain.TxID) Option {
	return func(o *options) { o.id = id }
}

// Transaction proxies one transaction to the coordinator of a device.
type Transaction struct {
	id      domain.TxID
	device  domain.DeviceID
	ref     transport.Ref
	timeout time.Duration

	state   stateMachine
	ch      *channel
	logger  *slog.Logger
	metrics *metric.ProxyMetrics
}

var _ ReadWriteTransaction = (*Transaction)(nil)

// Open creates an OPEN transaction bound to the coordinator at ref. No
// message is sent until the first operation. timeout bounds every
// reply-expecting call.
func Open(device domain.DeviceID, ref transport.Ref, timeout time.Duration, opts ...Option) *Transaction {
	o := &options{clock: transport.SystemClock{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.id == "" {
		o.id = domain.NewTxID()
	}
	o.logger = o.logger.With("tx_id", o.id.String(), "device", device.Name)

	return &Transaction{
		id:      o.id,
		device:  device,
		ref:     ref,
		timeout: timeout,
		ch:      newChannel(o.id, device.Name, ref, o, timeout),
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Identifier returns the transaction id.
func (t *Transaction) Identifier() domain.TxID {
	return t.id
}

// Device returns the device the transaction operates on.
func (t *Transaction) Device() domain.DeviceID {
	return t.device
}

// Status reports the local state as a TransactionStatus.
func (t *Transaction) Status() domain.TransactionStatus {
	switch t.state.current() {
	case stateSubmitted:
		return domain.StatusSubmitted
	case stateCancelled:
		return domain.StatusCancelled
	default:
		return domain.StatusNew
	}
}

// Read asks the coordinator for the subtree at path. The future yields a
// nil node when the coordinator reports that nothing is stored there.
// A submitted or cancelled transaction fails without sending anything.
func (t *Transaction) Read(store domain.Store, path domain.Path) *Future[*domain.Node] {
	req := &message.Request{Kind: message.KindRead, Store: store, Path: path}
	if err := t.state.guardMutation(); err != nil {
		t.metrics.Rejected(req.Kind.String())
		return Failed[*domain.Node](domain.ErrReadFailed.WithCause(err))
	}
	if err := req.Validate(); err != nil {
		return Failed[*domain.Node](domain.ErrReadFailed.WithCause(err))
	}
	return Then(t.ch.ask(req), translateRead)
}

// Exists asks the coordinator whether data is stored at path.
func (t *Transaction) Exists(store domain.Store, path domain.Path) *Future[bool] {
	req := &message.Request{Kind: message.KindExists, Store: store, Path: path}
	if err := t.state.guardMutation(); err != nil {
		t.metrics.Rejected(req.Kind.String())
		return Failed[bool](domain.ErrReadFailed.WithCause(err))
	}
	if err := req.Validate(); err != nil {
		return Failed[bool](domain.ErrReadFailed.WithCause(err))
	}
	return Then(t.ch.ask(req), translateBool(domain.ErrReadFailed))
}

// Put replaces the subtree at path with data.
func (t *Transaction) Put(store domain.Store, path domain.Path, data *domain.Node) error {
	return t.write(&message.Request{Kind: message.KindPut, Store: store, Path: path, Data: data})
}

// Merge overlays data onto the subtree at path.
func (t *Transaction) Merge(store domain.Store, path domain.Path, data *domain.Node) error {
	return t.write(&message.Request{Kind: message.KindMerge, Store: store, Path: path, Data: data})
}

// Delete removes the subtree at path.
func (t *Transaction) Delete(store domain.Store, path domain.Path) error {
	return t.write(&message.Request{Kind: message.KindDelete, Store: store, Path: path})
}

func (t *Transaction) write(req *message.Request) error {
	if err := t.state.guardMutation(); err != nil {
		t.metrics.Rejected(req.Kind.String())
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	return t.ch.tell(req)
}

// Cancel discards the transaction. It yields false without contacting the
// coordinator if the transaction was already submitted or cancelled.
func (t *Transaction) Cancel() *Future[bool] {
	if !t.state.tryCancel() {
		t.logger.Debug("cancel on closed transaction", "state", t.state.current().String())
		return Completed(false)
	}
	return Then(t.ch.ask(&message.Request{Kind: message.KindCancel}), translateBool(domain.ErrCancelFailed))
}

// Submit asks the coordinator to apply the transaction. It fails without
// contacting the coordinator if the transaction is not OPEN.
func (t *Transaction) Submit() (*Future[struct{}], error) {
	if err := t.state.trySubmit(); err != nil {
		t.metrics.Rejected(message.KindSubmit.String())
		return nil, err
	}
	return Then(t.ch.ask(&message.Request{Kind: message.KindSubmit}), translateSubmit), nil
}

// Commit is Submit yielding the resulting status.
func (t *Transaction) Commit() (*Future[domain.TransactionStatus], error) {
	f, err := t.Submit()
	if err != nil {
		return nil, err
	}
	return Then(f, func(_ struct{}, err error) (domain.TransactionStatus, error) {
		if err != nil {
			return domain.StatusFailed, err
		}
		return domain.StatusSubmitted, nil
	}), nil
}
