// Package command defines the devmesh-cli commands.
//
// Every data command runs in its own transaction against the selected
// device: reads in a read-only transaction that is cancelled afterwards,
// writes in a write-only transaction that is committed before the
// command returns. "commit" applies a batch file in a single transaction
// and "shell" keeps one read-write transaction open across commands.
package command
