package config

import (
	"time"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/infra/tlsroots"
	"github.com/yndnr/devmesh-go/internal/telemetry/tracer"
)

// ServerConfig is the root configuration for devmesh-server.
type ServerConfig struct {
	Node        NodeSection        `koanf:"node"`
	Transaction TransactionSection `koanf:"transaction"`
	RPC         RPCSection         `koanf:"rpc"`
	Storage     StorageSection     `koanf:"storage"`
	Devices     []domain.DeviceID  `koanf:"devices"`
	Telemetry   TelemetrySection   `koanf:"telemetry"`
	Log         LogSection         `koanf:"log"`
}

// NodeSection identifies this member and where it listens.
type NodeSection struct {
	// ID is the cluster member name. Generated at startup when empty.
	ID string `koanf:"id"`

	// ListenAddr is the HTTP address serving the coordinator RPC handler.
	ListenAddr string `koanf:"listen_addr"`

	// RPCAddr is the base URL other members dial, e.g. "http://10.0.0.1:7380".
	// Derived from ListenAddr when empty.
	RPCAddr string `koanf:"rpc_addr"`

	GossipAddr string `koanf:"gossip_addr"`
	GossipPort int    `koanf:"gossip_port"`

	// Seeds are gossip addresses ("host:port") of members to join.
	Seeds []string `koanf:"seeds"`

	VirtualNodes int `koanf:"virtual_nodes"`

	// AdminSocket is the Unix socket of the local admin endpoint.
	// Empty disables it.
	AdminSocket string `koanf:"admin_socket"`
}

// TransactionSection configures transaction proxies and coordinators.
type TransactionSection struct {
	// AskTimeout bounds every reply-expecting proxy call.
	AskTimeout time.Duration `koanf:"ask_timeout"`

	// TTL is how long a coordinator keeps an idle open transaction.
	TTL time.Duration `koanf:"ttl"`

	// JanitorInterval is how often idle transactions are swept.
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// RPCSection configures the cluster RPC transport.
type RPCSection struct {
	// RateLimit is the number of inbound requests per second. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`

	// CallTimeout bounds each outbound HTTP exchange.
	CallTimeout time.Duration `koanf:"call_timeout"`

	// TLS secures member to member traffic. Disabled without a keypair.
	TLS tlsroots.Config `koanf:"tls"`
}

// StorageSection configures the device datastore.
type StorageSection struct {
	DataDir     string        `koanf:"data_dir"`
	InMemory    bool          `koanf:"in_memory"`
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	SyncWrites  bool          `koanf:"sync_writes"`
}

// TelemetrySection configures metrics and tracing.
type TelemetrySection struct {
	// MetricsAddr serves /metrics. Empty disables the endpoint.
	MetricsAddr string        `koanf:"metrics_addr"`
	Tracing     tracer.Config `koanf:"tracing"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
