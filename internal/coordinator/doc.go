// Package coordinator is the owning member's side of a device's
// transactions. A Coordinator stages the writes of each transaction,
// answers reads against the datastore overlaid with those staged writes,
// and applies everything atomically on SUBMIT.
//
// A Coordinator is a transport.Handler, normally placed behind a
// transport.LocalRef so that the messages of one device are handled in
// arrival order.
package coordinator
