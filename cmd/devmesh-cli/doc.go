// Package main provides the entry point for devmesh-cli.
//
// devmesh-cli reads and edits device configuration through a DevMesh
// cluster, either one command at a time, from a batch file committed as
// a single transaction, or from an interactive shell.
package main
