package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/message"
	"github.com/yndnr/devmesh-go/internal/telemetry/logger"
	"github.com/yndnr/devmesh-go/internal/telemetry/metric"
	"github.com/yndnr/devmesh-go/internal/transport"
)

// Router finds the coordinator of a locally mounted device.
type Router interface {
	Route(device string) (transport.Ref, bool)
}

// Routes is a Router backed by a map.
type Routes struct {
	mu   sync.RWMutex
	refs map[string]transport.Ref
}

// NewRoutes creates an empty route table.
func NewRoutes() *Routes {
	return &Routes{refs: make(map[string]transport.Ref)}
}

// Add registers the coordinator for device.
func (r *Routes) Add(device string, ref transport.Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[device] = ref
}

// Remove drops device.
func (r *Routes) Remove(device string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refs, device)
}

// Route implements Router.
func (r *Routes) Route(device string) (transport.Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.refs[device]
	return ref, ok
}

// HandlerConfig configures NewHandler.
type HandlerConfig struct {
	Router Router

	// RateLimit is the sustained number of envelopes per second accepted
	// by this member; zero disables limiting.
	RateLimit float64
	Burst     int

	Logger  *slog.Logger
	Metrics *metric.CoordinatorMetrics
}

type handler struct {
	router  Router
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metric.CoordinatorMetrics
}

// NewHandler returns the mount path and http.Handler serving ExchangeProcedure.
func NewHandler(cfg HandlerConfig, opts ...connect.HandlerOption) (string, http.Handler) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &handler{
		router:  cfg.Router,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	opts = append([]connect.HandlerOption{connect.WithInterceptors(DefaultInterceptors(cfg.Logger)...)}, opts...)
	return ExchangeProcedure, connect.NewUnaryHandler(ExchangeProcedure, h.exchange, opts...)
}

func (h *handler) exchange(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	env, err := message.Decode(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if env.Request == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("envelope carries no request"))
	}
	ctx = logger.WithTx(ctx, env.TxID.String(), env.Device)

	if h.limiter != nil && !h.limiter.Allow() {
		h.metrics.Throttled()
		return h.refuse(ctx, env, connect.CodeResourceExhausted, domain.NewRPCError(
			domain.TypeTransport, domain.TagResourceDenied, domain.SeverityError, "member is over its request rate"))
	}

	ref, ok := h.router.Route(env.Device)
	if !ok {
		return h.refuse(ctx, env, connect.CodeNotFound, domain.NewRPCError(
			domain.TypeApplication, domain.TagDataMissing, domain.SeverityError, "device "+env.Device+" is not mounted here"))
	}

	if env.CorrelationID == 0 {
		if err := ref.Tell(env, nil); err != nil {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
		return connect.NewResponse(&structpb.Struct{}), nil
	}

	inbox := make(replyInbox, 1)
	if err := ref.Tell(env, inbox); err != nil {
		return h.refuse(ctx, env, connect.CodeUnavailable, domain.NewRPCError(
			domain.TypeTransport, domain.TagOperationFailed, domain.SeverityError, err.Error()))
	}

	select {
	case out := <-inbox:
		return h.respond(out)
	case <-ctx.Done():
		return nil, connect.NewError(connect.CodeDeadlineExceeded, ctx.Err())
	}
}

// refuse answers a reply-expecting request with a RemoteFailure and a
// one-way request with a Connect error.
func (h *handler) refuse(ctx context.Context, env message.Envelope, code connect.Code, cause *domain.RPCError) (*connect.Response[structpb.Struct], error) {
	h.logger.DebugContext(ctx, "refusing request", "msg", env.String(), "reason", cause.Message)
	if env.CorrelationID == 0 {
		return nil, connect.NewError(code, cause)
	}
	return h.respond(env.ReplyTo(&message.RemoteFailure{Errors: []*domain.RPCError{cause}}))
}

func (h *handler) respond(env message.Envelope) (*connect.Response[structpb.Struct], error) {
	msg, err := message.Encode(env)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// replyInbox captures the single reply to one request.
type replyInbox chan message.Envelope

func (r replyInbox) Deliver(env message.Envelope) {
	select {
	case r <- env:
	default:
	}
}
