// Package tx implements the transaction proxy: the local handle through
// which a cluster member reads and writes a device's data trees while
// another member coordinates the device.
//
// A Transaction is a strict state machine (OPEN, then SUBMITTED or
// CANCELLED). PUT, MERGE and DELETE are sent one-way. READ, EXISTS,
// CANCEL and SUBMIT are correlated asks whose Future completes exactly
// once, with the coordinator's reply or with a deadline failure.
//
// "No data" and "no answer" are kept apart: an EmptyReadReply yields a nil
// node, a missed deadline yields ErrCoordinatorUnresponsive.
package tx
