// Package transport defines how a transaction proxy reaches the
// coordinator that owns a device.
//
// A Ref addresses exactly one coordinator. Tell hands it an envelope
// together with the Inbox that should receive any reply. Delivery is
// asynchronous and ordered per Ref: envelopes told from one goroutine
// reach the coordinator in the order they were told.
//
// Implementations:
//
//   - LocalRef: in-process mailbox in front of a Handler
//   - rpc.Client: Connect RPC to a coordinator on another member
//   - probe.Probe: recording Ref for tests
package transport
