// Package tests holds integration tests that run several DevMesh members
// in one process.
package tests
