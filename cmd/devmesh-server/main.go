package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/devmesh-go/internal/cluster"
	"github.com/yndnr/devmesh-go/internal/coordinator"
	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/devmesh-go/internal/infra/confloader"
	"github.com/yndnr/devmesh-go/internal/infra/shutdown"
	"github.com/yndnr/devmesh-go/internal/infra/tlsroots"
	"github.com/yndnr/devmesh-go/internal/server/config"
	"github.com/yndnr/devmesh-go/internal/server/httpserver"
	"github.com/yndnr/devmesh-go/internal/server/localserver"
	"github.com/yndnr/devmesh-go/internal/storage/datastore"
	"github.com/yndnr/devmesh-go/internal/telemetry/logger"
	"github.com/yndnr/devmesh-go/internal/telemetry/metric"
	"github.com/yndnr/devmesh-go/internal/telemetry/tracer"
	"github.com/yndnr/devmesh-go/internal/transport/rpc"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("devmesh-server " + buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(slogger)

	nodeID, err := config.NodeID(cfg)
	if err != nil {
		return err
	}
	slogger.Info("starting devmesh-server",
		append(buildinfo.LogAttrs(), "node_id", nodeID, "config", *configFile)...)
	slogger.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := shutdown.NewHandler(shutdownTimeout, slogger)

	if *configFile != "" {
		if err := watchConfig(ctx, *configFile, slogger); err != nil {
			slogger.Warn("config watch disabled", "error", err)
		}
	}

	reg := metric.NewRegistry()
	if cfg.Telemetry.MetricsAddr != "" {
		metricsSrv := httpserver.New(cfg.Telemetry.MetricsAddr, metricsMux(reg), nil)
		if err := metricsSrv.Listen(); err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		go serve("metrics", metricsSrv, slogger, stop)
		stop.OnShutdown("metrics server", metricsSrv.Shutdown)
		slogger.Info("metrics listening", "addr", metricsSrv.Addr())
	}

	flushTraces, err := tracer.New(cfg.Telemetry.Tracing)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	stop.OnShutdown("tracer", flushTraces)

	store, err := datastore.Open(config.StoreConfig(cfg), slogger)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	store.RegisterMetrics(reg)
	stop.OnShutdown("datastore", func(context.Context) error { return store.Close() })

	serverTLS, httpClient, err := clusterTLS(ctx, cfg.RPC.TLS, slogger)
	if err != nil {
		return err
	}

	coordMetrics := metric.NewCoordinatorMetrics(reg)
	ring := cluster.NewRing(cfg.Node.VirtualNodes)
	resolver := cluster.NewResolver(cluster.ResolverConfig{
		LocalID: nodeID,
		Ring:    ring,
		Devices: cfg.Devices,
		NewCoordinator: func(d domain.DeviceID) *coordinator.Coordinator {
			return coordinator.New(coordinator.Config{
				Device:  d,
				Backend: store,
				Logger:  slogger,
				Metrics: coordMetrics,
			})
		},
		HTTPClient:  httpClient,
		CallTimeout: cfg.RPC.CallTimeout,
		Logger:      slogger,
	})
	stop.OnShutdown("resolver", func(context.Context) error { return resolver.Close() })

	rpcPath, rpcHandler := rpc.NewHandler(rpc.HandlerConfig{
		Router:    resolver,
		RateLimit: cfg.RPC.RateLimit,
		Burst:     cfg.RPC.Burst,
		Logger:    slogger,
		Metrics:   coordMetrics,
	})

	var joined atomic.Bool
	srv := httpserver.New(cfg.Node.ListenAddr, httpserver.NewRouter(httpserver.RouterConfig{
		RPCPath:    rpcPath,
		RPCHandler: rpcHandler,
		Status:     func() any { return resolver.Status() },
		Ready:      joined.Load,
		Logger:     slogger,
	}), serverTLS)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("rpc listener: %w", err)
	}
	go serve("rpc", srv, slogger, stop)
	stop.OnShutdown("rpc server", srv.Shutdown)
	slogger.Info("rpc listening", "addr", srv.Addr(), "tls", serverTLS != nil)

	discovery, err := cluster.NewDiscovery(config.DiscoveryConfig(cfg, nodeID, slogger), ring)
	if err != nil {
		stop.Trigger()
		return errors.Join(fmt.Errorf("start discovery: %w", err), stop.Wait(ctx))
	}
	stop.OnShutdown("discovery", func(context.Context) error { return discovery.Leave() })
	joined.Store(true)
	slogger.Info("joined cluster", "gossip", discovery.GossipAddr(), "members", discovery.NumMembers())

	if cfg.Node.AdminSocket != "" {
		admin := localserver.New(cfg.Node.AdminSocket, localserver.NewHandler(localserver.Hooks{
			Status:   func() any { return resolver.Status() },
			Reload:   func() error { return reloadConfig(*configFile, slogger) },
			Shutdown: stop.Trigger,
		}), slogger)
		if err := admin.Listen(); err != nil {
			return fmt.Errorf("admin socket: %w", err)
		}
		go func() {
			if err := admin.Serve(); err != nil {
				slogger.Error("admin socket error", "error", err)
			}
		}()
		stop.OnShutdown("admin socket", admin.Shutdown)
		slogger.Info("admin socket listening", "path", cfg.Node.AdminSocket)
	}

	if cfg.Transaction.TTL > 0 {
		go coordinator.RunJanitor(ctx, cfg.Transaction.JanitorInterval, cfg.Transaction.TTL, slogger, resolver.Coordinators)
	}
	stop.OnShutdown("background tasks", func(context.Context) error {
		cancel()
		return nil
	})

	slogger.Info("server started", "devices", len(cfg.Devices))
	if err := stop.Wait(context.Background()); err != nil {
		slogger.Error("shutdown error", "error", err)
		return err
	}
	slogger.Info("server stopped gracefully")
	return nil
}

// loadConfig overlays file, environment and defaults, then validates.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()
	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// watchConfig re-reads the config file on change.
func watchConfig(ctx context.Context, path string, log *slog.Logger) error {
	w, err := confloader.NewWatcher(path, log)
	if err != nil {
		return err
	}
	w.OnChange(func(string) {
		if err := reloadConfig(path, log); err != nil {
			log.Warn("config reload rejected", "error", err)
		}
	})
	go w.Run(ctx)
	return nil
}

// reloadConfig re-reads path and applies what can change at runtime.
// Only the log level is applied live; other sections need a restart.
func reloadConfig(path string, log *slog.Logger) error {
	if path == "" {
		return errors.New("no config file")
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if cfg.Log.Level == logger.GetLevel() {
		return nil
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	log.Info("log level changed", "level", cfg.Log.Level)
	return nil
}

// clusterTLS returns the listener TLS config and the client used towards
// other members. Both are nil without rpc.tls.
func clusterTLS(ctx context.Context, cfg tlsroots.Config, log *slog.Logger) (*tls.Config, connect.HTTPClient, error) {
	if !cfg.Enabled() {
		return nil, nil, nil
	}
	kp, err := tlsroots.LoadKeypair(cfg.CertFile, cfg.KeyFile, log)
	if err != nil {
		return nil, nil, fmt.Errorf("load cluster keypair: %w", err)
	}
	roots, err := tlsroots.LoadRoots(cfg.CAFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load cluster ca: %w", err)
	}
	go func() {
		if err := kp.Watch(ctx); err != nil {
			log.Warn("certificate watch stopped", "error", err)
		}
	}()
	return tlsroots.ServerTLS(kp, roots), tlsroots.NewHTTPClient(kp, roots), nil
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metric.Handler(reg))
	return mux
}

// serve runs s and starts shutdown if it fails.
func serve(name string, s *httpserver.Server, log *slog.Logger, stop *shutdown.Handler) {
	if err := s.Serve(); err != nil {
		log.Error("server error", "server", name, "error", err)
		stop.Trigger()
	}
}
