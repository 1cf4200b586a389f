package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := verifyNode(&cfg.Node); err != nil {
		return err
	}
	if err := verifyTransaction(&cfg.Transaction); err != nil {
		return err
	}
	if err := verifyRPC(&cfg.RPC); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyDevices(cfg); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyNode(cfg *NodeSection) error {
	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return fmt.Errorf("node.listen_addr: %w", err)
	}
	if cfg.RPCAddr != "" {
		u, err := url.Parse(cfg.RPCAddr)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("node.rpc_addr %q must be an http(s) URL", cfg.RPCAddr)
		}
	}
	if cfg.GossipPort < 0 || cfg.GossipPort > 65535 {
		return fmt.Errorf("node.gossip_port %d out of range", cfg.GossipPort)
	}
	for _, s := range cfg.Seeds {
		if _, _, err := net.SplitHostPort(s); err != nil {
			return fmt.Errorf("node.seeds: %q: %w", s, err)
		}
	}
	if cfg.VirtualNodes < 1 {
		return errors.New("node.virtual_nodes must be at least 1")
	}
	if len(cfg.AdminSocket) > maxSocketPath {
		return fmt.Errorf("node.admin_socket longer than %d bytes", maxSocketPath)
	}
	return nil
}

// maxSocketPath is the smallest sun_path limit among supported platforms.
const maxSocketPath = 103

func verifyTransaction(cfg *TransactionSection) error {
	if cfg.AskTimeout <= 0 {
		return errors.New("transaction.ask_timeout must be positive")
	}
	if cfg.TTL < 0 {
		return errors.New("transaction.ttl must not be negative")
	}
	if cfg.TTL > 0 && cfg.JanitorInterval <= 0 {
		return errors.New("transaction.janitor_interval must be positive when ttl is set")
	}
	return nil
}

func verifyRPC(cfg *RPCSection) error {
	if cfg.RateLimit < 0 {
		return errors.New("rpc.rate_limit must not be negative")
	}
	if cfg.RateLimit > 0 && cfg.Burst < 1 {
		return errors.New("rpc.burst must be at least 1 when rate_limit is set")
	}
	if cfg.CallTimeout <= 0 {
		return errors.New("rpc.call_timeout must be positive")
	}
	if err := cfg.TLS.Validate(); err != nil {
		return fmt.Errorf("rpc.tls: %w", err)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.InMemory {
		return nil
	}
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	if cfg.GCThreshold < 0 || cfg.GCThreshold >= 1 {
		return errors.New("storage.gc_threshold must be in [0, 1)")
	}
	return nil
}

func verifyDevices(cfg *ServerConfig) error {
	seen := make(map[string]bool, len(cfg.Devices))
	for i, d := range cfg.Devices {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		if seen[d.Name] {
			return fmt.Errorf("devices[%d]: duplicate device %q", i, d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}
