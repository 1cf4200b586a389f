package localserver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/devmesh-go/internal/telemetry/logger"
)

// Reply is the JSON document written for every command.
type Reply struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Hooks connect the admin commands to the running member. Nil hooks make
// the matching command fail with "not supported".
type Hooks struct {
	Status   func() any
	Reload   func() error
	Shutdown func()
}

// Handler executes admin commands.
type Handler struct {
	hooks Hooks
}

// NewHandler creates a Handler.
func NewHandler(hooks Hooks) *Handler {
	return &Handler{hooks: hooks}
}

var errNotSupported = errors.New("not supported")

// Execute runs one command line.
func (h *Handler) Execute(line string) Reply {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fail(errors.New("empty command"))
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "status":
		if h.hooks.Status == nil {
			return fail(errNotSupported)
		}
		return Reply{OK: true, Result: h.hooks.Status()}
	case "loglevel":
		return h.logLevel(args)
	case "reload":
		if h.hooks.Reload == nil {
			return fail(errNotSupported)
		}
		if err := h.hooks.Reload(); err != nil {
			return fail(err)
		}
		return Reply{OK: true, Result: "reloaded"}
	case "shutdown":
		if h.hooks.Shutdown == nil {
			return fail(errNotSupported)
		}
		h.hooks.Shutdown()
		return Reply{OK: true, Result: "shutting down"}
	default:
		return fail(fmt.Errorf("unknown command %q", cmd))
	}
}

func (h *Handler) logLevel(args []string) Reply {
	switch len(args) {
	case 0:
		return Reply{OK: true, Result: logger.GetLevel()}
	case 1:
		if err := logger.SetLevel(args[0]); err != nil {
			return fail(err)
		}
		return Reply{OK: true, Result: logger.GetLevel()}
	default:
		return fail(errors.New("usage: loglevel [LEVEL]"))
	}
}

func fail(err error) Reply {
	return Reply{Error: err.Error()}
}
