package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs every exchange at debug level and failures at warn.
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor.
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingInterceptor{logger: logger}
}

// WrapUnary implements connect.Interceptor.
func (i *LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		duration := time.Since(start)

		if err != nil {
			i.logger.WarnContext(ctx, "exchange failed",
				"procedure", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"duration_ms", duration.Milliseconds(),
				"error", err)
		} else {
			i.logger.DebugContext(ctx, "exchange",
				"procedure", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"duration_ms", duration.Milliseconds())
		}
		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// RecoveryInterceptor turns handler panics into internal errors.
type RecoveryInterceptor struct {
	logger *slog.Logger
}

// NewRecoveryInterceptor creates a new recovery interceptor.
func NewRecoveryInterceptor(logger *slog.Logger) *RecoveryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryInterceptor{logger: logger}
}

// WrapUnary implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
		defer func() {
			if r := recover(); r != nil {
				i.logger.ErrorContext(ctx, "exchange panic recovered",
					"procedure", req.Spec().Procedure,
					"panic", r)
				err = connect.NewError(connect.CodeInternal, fmt.Errorf("internal error: panic recovered"))
			}
		}()
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// DefaultInterceptors returns the interceptors installed on the handler.
func DefaultInterceptors(logger *slog.Logger) []connect.Interceptor {
	return []connect.Interceptor{
		NewRecoveryInterceptor(logger),
		NewLoggingInterceptor(logger),
	}
}
