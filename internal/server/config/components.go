package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"

	"github.com/yndnr/devmesh-go/internal/cluster"
	"github.com/yndnr/devmesh-go/internal/storage/datastore"
)

// NodeID returns the configured member name, or a generated one.
func NodeID(cfg *ServerConfig) (string, error) {
	if cfg.Node.ID != "" {
		return cfg.Node.ID, nil
	}
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate node id: %w", err)
	}
	return "node-" + hex.EncodeToString(b), nil
}

// RPCBaseURL returns the URL other members use to reach this one.
// Without node.rpc_addr it is derived from node.listen_addr; an
// unspecified listen host is replaced by the gossip address.
func RPCBaseURL(cfg *ServerConfig) string {
	if cfg.Node.RPCAddr != "" {
		return cfg.Node.RPCAddr
	}
	scheme := "http://"
	if cfg.RPC.TLS.Enabled() {
		scheme = "https://"
	}
	host, port, err := net.SplitHostPort(cfg.Node.ListenAddr)
	if err != nil {
		return scheme + cfg.Node.ListenAddr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = cfg.Node.GossipAddr
	}
	return scheme + net.JoinHostPort(host, port)
}

// DiscoveryConfig maps the node section to gossip settings.
func DiscoveryConfig(cfg *ServerConfig, nodeID string, logger *slog.Logger) cluster.DiscoveryConfig {
	return cluster.DiscoveryConfig{
		NodeID:   nodeID,
		BindAddr: cfg.Node.GossipAddr,
		BindPort: cfg.Node.GossipPort,
		RPCAddr:  RPCBaseURL(cfg),
		Seeds:    cfg.Node.Seeds,
		Logger:   logger,
	}
}

// StoreConfig maps the storage section to datastore settings.
func StoreConfig(cfg *ServerConfig) datastore.Config {
	return datastore.Config{
		Dir:         cfg.Storage.DataDir,
		InMemory:    cfg.Storage.InMemory,
		GCInterval:  cfg.Storage.GCInterval,
		GCThreshold: cfg.Storage.GCThreshold,
		SyncWrites:  cfg.Storage.SyncWrites,
	}
}
