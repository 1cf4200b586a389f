// Package logger builds the process logger: a log/slog handler writing
// JSON or text, one level shared by every logger and adjustable at
// runtime, request and transaction attributes taken from the context, and
// redaction of device credentials.
package logger
