package config

import (
	"time"

	"github.com/yndnr/devmesh-go/internal/cluster"
	"github.com/yndnr/devmesh-go/internal/telemetry/tracer"
	"github.com/yndnr/devmesh-go/internal/transport/rpc"
)

// Default configuration values.
const (
	DefaultListenAddr = "127.0.0.1:7380"
	DefaultGossipAddr = "0.0.0.0"
	DefaultGossipPort = 7946

	DefaultAskTimeout      = 5 * time.Second
	DefaultTxTTL           = 10 * time.Minute
	DefaultJanitorInterval = time.Minute

	DefaultRateLimit = 1000
	DefaultBurst     = 200

	DefaultDataDir     = "/var/lib/devmesh-server/data"
	DefaultGCInterval  = 10 * time.Minute
	DefaultGCThreshold = 0.5

	DefaultMetricsAddr = "127.0.0.1:9180"
	DefaultServiceName = "devmesh-server"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Node: NodeSection{
			ListenAddr:   DefaultListenAddr,
			GossipAddr:   DefaultGossipAddr,
			GossipPort:   DefaultGossipPort,
			VirtualNodes: cluster.DefaultVirtualNodes,
		},
		Transaction: TransactionSection{
			AskTimeout:      DefaultAskTimeout,
			TTL:             DefaultTxTTL,
			JanitorInterval: DefaultJanitorInterval,
		},
		RPC: RPCSection{
			RateLimit:   DefaultRateLimit,
			Burst:       DefaultBurst,
			CallTimeout: rpc.DefaultCallTimeout,
		},
		Storage: StorageSection{
			DataDir:     DefaultDataDir,
			GCInterval:  DefaultGCInterval,
			GCThreshold: DefaultGCThreshold,
		},
		Telemetry: TelemetrySection{
			MetricsAddr: DefaultMetricsAddr,
			Tracing: tracer.Config{
				ServiceName: DefaultServiceName,
				SampleRatio: 1,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
