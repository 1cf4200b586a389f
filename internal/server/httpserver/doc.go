// Package httpserver provides the HTTP front of a DevMesh member.
//
// One listener carries:
//
//   - the member RPC exchange procedure
//   - /healthz and /readyz probes
//   - /v1/status, a JSON view of ring membership and device ownership
//
// With cluster TLS configured the listener requires client certificates
// signed by the cluster CA.
package httpserver
