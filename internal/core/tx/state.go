package tx

import (
	"sync/atomic"

	"github.com/yndnr/devmesh-go/internal/core/domain"
)

type state int32

const (
	stateOpen state = iota
	stateSubmitted
	stateCancelled
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "OPEN"
	case stateSubmitted:
		return "SUBMITTED"
	case stateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// stateMachine holds the transaction state. Every transition is a single
// compare-and-swap out of OPEN, so terminal states are reached at most once.
type stateMachine struct {
	v atomic.Int32
}

func (m *stateMachine) current() state {
	return state(m.v.Load())
}

// guardMutation fails unless the transaction is still OPEN. Reads are
// guarded by it as well.
func (m *stateMachine) guardMutation() error {
	if s := m.current(); s != stateOpen {
		return domain.ErrTransactionClosed.WithDetails("state " + s.String())
	}
	return nil
}

// trySubmit moves OPEN to SUBMITTED.
func (m *stateMachine) trySubmit() error {
	if m.v.CompareAndSwap(int32(stateOpen), int32(stateSubmitted)) {
		return nil
	}
	return domain.ErrTransactionClosed.WithDetails("state " + m.current().String())
}

// tryCancel moves OPEN to CANCELLED and reports whether it did.
func (m *stateMachine) tryCancel() bool {
	return m.v.CompareAndSwap(int32(stateOpen), int32(stateCancelled))
}
