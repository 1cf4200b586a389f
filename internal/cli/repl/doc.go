// Package repl implements the devmesh-cli interactive shell.
//
// The shell keeps one read-write transaction open against a device.
// Reads see the transaction's own uncommitted writes. "commit" submits
// it and "cancel" discards it; either way the next command starts a new
// transaction.
package repl
