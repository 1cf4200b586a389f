package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TxIDPrefix prefixes every transaction identifier.
const TxIDPrefix = "dmtx-"

// TxID identifies a transaction for its whole lifetime.
type TxID string

// NewTxID generates a new transaction identifier.
// Format: dmtx-{ulid_lowercase}.
func NewTxID() TxID {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return TxID(TxIDPrefix + strings.ToLower(id.String()))
}

// Valid reports whether id has the expected format.
func (id TxID) Valid() bool {
	s := string(id)
	if !strings.HasPrefix(s, TxIDPrefix) {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(s[len(TxIDPrefix):]))
	return err == nil
}

// String implements fmt.Stringer.
func (id TxID) String() string {
	return string(id)
}

// TransactionStatus is the commit status reported by Commit.
type TransactionStatus int

const (
	StatusNew TransactionStatus = iota
	StatusSubmitted
	StatusCommitted
	StatusFailed
	StatusCancelled
)

// String returns the status name.
func (s TransactionStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusCommitted:
		return "COMMITTED"
	case StatusFailed:
		return "FAILED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}
