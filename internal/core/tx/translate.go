package tx

import (
	"fmt"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/message"
	"github.com/yndnr/devmesh-go/internal/telemetry/metric"
)

// remoteFailed wraps the coordinator's reported errors unchanged.
func remoteFailed(f *message.RemoteFailure) error {
	return domain.ErrRemoteOperationFailed.WithCause(f.Cause())
}

// unresponsive is the failure for a request whose deadline expired.
func unresponsive(ref string, kind message.Kind, timeout time.Duration) error {
	msg := fmt.Sprintf("coordinator %s did not answer %s within %s", ref, kind, timeout)
	return domain.ErrCoordinatorUnresponsive.WithCause(
		domain.NewRPCError(domain.TypeApplication, domain.TagOperationFailed, domain.SeverityWarning, msg))
}

// undeliverable is the failure for a request the transport refused.
func undeliverable(ref string, kind message.Kind, err error) error {
	msg := fmt.Sprintf("%s could not be sent to %s: %v", kind, ref, err)
	return domain.ErrCoordinatorUnresponsive.WithCause(
		domain.NewRPCError(domain.TypeTransport, domain.TagOperationFailed, domain.SeverityWarning, msg))
}

func unexpected(r message.Reply) error {
	msg := "unexpected reply " + message.Name(r)
	if d, ok := r.(*message.DataReply); ok && d.Node == nil {
		msg = "DataReply without data"
	}
	return domain.ErrRemoteOperationFailed.WithCause(
		domain.NewRPCError(domain.TypeApplication, domain.TagOperationFailed, domain.SeverityError, msg))
}

// outcomeLabel classifies a resolved reply for metrics.
func outcomeLabel(r message.Reply) string {
	switch r.(type) {
	case *message.RemoteFailure:
		return metric.OutcomeRemoteFailure
	case *message.EmptyReadReply:
		return metric.OutcomeAbsent
	default:
		return metric.OutcomeSuccess
	}
}

// translateRead maps a READ resolution. A nil node with a nil error means
// the coordinator answered that the path holds no data.
func translateRead(r message.Reply, err error) (*domain.Node, error) {
	if err != nil {
		return nil, domain.ErrReadFailed.WithCause(err)
	}
	switch rep := r.(type) {
	case *message.DataReply:
		if rep.Node == nil {
			return nil, domain.ErrReadFailed.WithCause(unexpected(r))
		}
		return rep.Node, nil
	case *message.EmptyReadReply:
		return nil, nil
	case *message.RemoteFailure:
		return nil, domain.ErrReadFailed.WithCause(remoteFailed(rep))
	default:
		return nil, domain.ErrReadFailed.WithCause(unexpected(r))
	}
}

// translateBool maps EXISTS and CANCEL resolutions; failures are wrapped in wrap.
func translateBool(wrap *domain.DomainError) func(message.Reply, error) (bool, error) {
	return func(r message.Reply, err error) (bool, error) {
		if err != nil {
			return false, wrap.WithCause(err)
		}
		switch rep := r.(type) {
		case *message.BooleanReply:
			return rep.Value, nil
		case *message.RemoteFailure:
			return false, wrap.WithCause(remoteFailed(rep))
		default:
			return false, wrap.WithCause(unexpected(r))
		}
	}
}

// translateSubmit maps a SUBMIT resolution.
func translateSubmit(r message.Reply, err error) (struct{}, error) {
	if err != nil {
		return struct{}{}, domain.ErrCommitFailed.WithCause(err)
	}
	switch rep := r.(type) {
	case *message.SubmitAck:
		return struct{}{}, nil
	case *message.RemoteFailure:
		return struct{}{}, domain.ErrCommitFailed.WithCause(remoteFailed(rep))
	default:
		return struct{}{}, domain.ErrCommitFailed.WithCause(unexpected(r))
	}
}
