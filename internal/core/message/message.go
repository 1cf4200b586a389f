package message

import (
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/domain"
)

// Kind is the operation a Request asks the coordinator to perform.
type Kind int

const (
	KindRead Kind = iota + 1
	KindExists
	KindPut
	KindMerge
	KindDelete
	KindCancel
	KindSubmit
)

var kindNames = map[Kind]string{
	KindRead:   "ReadRequest",
	KindExists: "ExistsRequest",
	KindPut:    "PutRequest",
	KindMerge:  "MergeRequest",
	KindDelete: "DeleteRequest",
	KindCancel: "CancelRequest",
	KindSubmit: "SubmitRequest",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// OneWay reports whether requests of this kind are sent without awaiting a reply.
func (k Kind) OneWay() bool {
	return k == KindPut || k == KindMerge || k == KindDelete
}

func parseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Request is one operation issued by a proxy. Store and Path are meaningful
// for data operations only; Data is set for PUT and MERGE.
type Request struct {
	Kind  Kind
	Store domain.Store
	Path  domain.Path
	Data  *domain.Node
}

// Validate checks that the request is well formed for its kind.
func (r *Request) Validate() error {
	if _, ok := kindNames[r.Kind]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMessage, r.Kind)
	}
	switch r.Kind {
	case KindCancel, KindSubmit:
		return nil
	}
	if !r.Store.Valid() {
		return domain.ErrInvalidArgument.WithDetails("invalid store " + r.Store.String())
	}
	if err := r.Path.Validate(); err != nil {
		return err
	}
	if (r.Kind == KindPut || r.Kind == KindMerge) && r.Data == nil {
		return domain.ErrMissingArgument.WithDetails(r.Kind.String() + " requires data")
	}
	return nil
}

// Reply is a coordinator answer. The set of implementations is closed.
type Reply interface {
	replyName() string
}

// DataReply carries the node found at the requested path.
type DataReply struct {
	Path domain.Path
	Node *domain.Node
}

// EmptyReadReply states that the requested path holds no data. It is an
// answer, distinct from receiving no reply at all.
type EmptyReadReply struct{}

// BooleanReply answers EXISTS and CANCEL.
type BooleanReply struct {
	Value bool
}

// SubmitAck acknowledges a SUBMIT.
type SubmitAck struct{}

// RemoteFailure carries the classified errors the coordinator reported.
type RemoteFailure struct {
	Errors []*domain.RPCError
}

func (*DataReply) replyName() string      { return "DataReply" }
func (*EmptyReadReply) replyName() string { return "EmptyReadReply" }
func (*BooleanReply) replyName() string   { return "BooleanReply" }
func (*SubmitAck) replyName() string      { return "SubmitAck" }
func (*RemoteFailure) replyName() string  { return "RemoteFailure" }

// NewRemoteFailure builds a RemoteFailure from any error, keeping RPCErrors as they are.
func NewRemoteFailure(err error) *RemoteFailure {
	return &RemoteFailure{Errors: []*domain.RPCError{domain.AsRPCError(err)}}
}

// Cause returns the carried errors as a single error value.
func (f *RemoteFailure) Cause() error {
	switch len(f.Errors) {
	case 0:
		return domain.NewRPCError(domain.TypeApplication, domain.TagOperationFailed,
			domain.SeverityError, "remote failure without error detail")
	case 1:
		return f.Errors[0]
	}
	errs := make([]error, len(f.Errors))
	for i, e := range f.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Name returns the wire name of a reply, "" for nil.
func Name(r Reply) string {
	if r == nil {
		return ""
	}
	return r.replyName()
}

// Envelope wraps exactly one Request or one Reply.
type Envelope struct {
	// CorrelationID links a reply to its request. Zero marks a one-way request.
	CorrelationID uint64
	// TxID is the transaction the message belongs to.
	TxID domain.TxID
	// Device names the device whose coordinator is addressed.
	Device string
	// Writes counts the one-way requests the transaction dispatched before
	// this request. The coordinator compares it with what it has staged.
	Writes uint64
	// Timeout is how long the sender waits for the reply. It is not encoded;
	// transports use it to bound the exchange.
	Timeout time.Duration

	Request *Request
	Reply   Reply
}

// IsReply reports whether the envelope carries a reply.
func (e Envelope) IsReply() bool {
	return e.Reply != nil
}

// ReplyTo builds the reply envelope for a request envelope.
func (e Envelope) ReplyTo(r Reply) Envelope {
	return Envelope{
		CorrelationID: e.CorrelationID,
		TxID:          e.TxID,
		Device:        e.Device,
		Reply:         r,
	}
}

// String describes the envelope for logging.
func (e Envelope) String() string {
	if e.Request != nil {
		return fmt.Sprintf("%s#%d tx=%s %s %s", e.Request.Kind, e.CorrelationID, e.TxID, e.Request.Store, e.Request.Path)
	}
	return fmt.Sprintf("%s#%d tx=%s", Name(e.Reply), e.CorrelationID, e.TxID)
}
