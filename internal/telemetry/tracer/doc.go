// Package tracer sets up OpenTelemetry tracing for DevMesh.
//
// Transaction proxies open one span per reply-expecting request and
// coordinators open one span per handled message. When tracing is
// disabled the global provider stays a no-op and spans cost nothing.
package tracer
