package tx

import (
	"time"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/transport"
)

// Broker opens transactions for one device against its coordinator.
type Broker struct {
	device  domain.DeviceID
	ref     transport.Ref
	timeout time.Duration
	opts    []Option
}

// NewBroker creates a broker. Every transaction it opens uses timeout and opts.
func NewBroker(device domain.DeviceID, ref transport.Ref, timeout time.Duration, opts ...Option) *Broker {
	return &Broker{device: device, ref: ref, timeout: timeout, opts: opts}
}

// Device returns the device served by the broker.
func (b *Broker) Device() domain.DeviceID {
	return b.device
}

// NewReadOnlyTransaction opens a transaction limited to reads.
func (b *Broker) NewReadOnlyTransaction() ReadTransaction {
	return b.open()
}

// NewWriteOnlyTransaction opens a transaction limited to writes.
func (b *Broker) NewWriteOnlyTransaction() WriteTransaction {
	return b.open()
}

// NewReadWriteTransaction opens a full transaction.
func (b *Broker) NewReadWriteTransaction() ReadWriteTransaction {
	return b.open()
}

func (b *Broker) open() *Transaction {
	return Open(b.device, b.ref, b.timeout, b.opts...)
}
