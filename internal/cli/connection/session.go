package connection

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/tx"
	"github.com/yndnr/devmesh-go/internal/infra/tlsroots"
	"github.com/yndnr/devmesh-go/internal/transport/rpc"
)

// Options describes the member and device to talk to.
type Options struct {
	Server  string
	Device  string
	Timeout time.Duration
	TLS     tlsroots.Config
	Logger  *slog.Logger

	// HTTPClient overrides the client built from TLS.
	HTTPClient *http.Client
}

// Session is an open connection to one device through one member.
type Session struct {
	client *rpc.Client
	broker *tx.Broker
}

// NormalizeServer adds a scheme to bare host:port addresses.
func NormalizeServer(server string, secure bool) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if strings.HasPrefix(server, "http://") || strings.HasPrefix(server, "https://") {
		return server
	}
	if secure {
		return "https://" + server
	}
	return "http://" + server
}

// Dial opens a session.
func Dial(opts Options) (*Session, error) {
	if opts.Server == "" {
		return nil, fmt.Errorf("no server given")
	}
	device, err := domain.NewDeviceID(opts.Device, "")
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %v", opts.Timeout)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient, err = newHTTPClient(opts.TLS, opts.Logger)
		if err != nil {
			return nil, err
		}
	}

	client := rpc.NewClient(rpc.ClientConfig{
		BaseURL:     NormalizeServer(opts.Server, opts.TLS.Enabled()),
		HTTPClient:  httpClient,
		CallTimeout: opts.Timeout,
		Logger:      opts.Logger,
	})
	return &Session{
		client: client,
		broker: tx.NewBroker(device, client, opts.Timeout, tx.WithLogger(opts.Logger)),
	}, nil
}

func newHTTPClient(cfg tlsroots.Config, logger *slog.Logger) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return http.DefaultClient, nil
	}
	kp, err := tlsroots.LoadKeypair(cfg.CertFile, cfg.KeyFile, logger)
	if err != nil {
		return nil, err
	}
	roots, err := tlsroots.LoadRoots(cfg.CAFile)
	if err != nil {
		return nil, err
	}
	return tlsroots.NewHTTPClient(kp, roots), nil
}

// Broker returns the transaction broker for the session's device.
func (s *Session) Broker() *tx.Broker {
	return s.broker
}

// Server returns the member address in use.
func (s *Session) Server() string {
	return s.client.String()
}

// Close releases the connection.
func (s *Session) Close() error {
	return s.client.Close()
}
