package cluster

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/memberlist"
)

// DiscoveryConfig configures gossip membership.
type DiscoveryConfig struct {
	// NodeID is the unique member name.
	NodeID string

	// BindAddr and BindPort are the gossip listen address. Port 0 picks a free port.
	BindAddr string
	BindPort int

	// RPCAddr is the base URL other members use to reach this member's
	// coordinators. It travels in the node metadata.
	RPCAddr string

	// Seeds are gossip addresses of members to join.
	Seeds []string

	Logger *slog.Logger
}

// Discovery keeps a Ring in sync with gossip membership.
type Discovery struct {
	list   *memberlist.Memberlist
	ring   *Ring
	logger *slog.Logger
	closed bool
}

// NewDiscovery starts gossip, adds every live member (this one included)
// to ring and joins the seeds.
func NewDiscovery(cfg DiscoveryConfig, ring *Ring) (*Discovery, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	d := &Discovery{ring: ring, logger: cfg.Logger}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeID
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	mlConfig.AdvertisePort = cfg.BindPort
	mlConfig.Delegate = &metadataDelegate{meta: []byte(cfg.RPCAddr)}
	mlConfig.Events = &eventDelegate{discovery: d}
	mlConfig.LogOutput = &slogWriter{logger: cfg.Logger}

	list, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}
	d.list = list
	ring.Add(Member{ID: cfg.NodeID, RPCAddr: cfg.RPCAddr})

	if len(cfg.Seeds) > 0 {
		n, err := list.Join(cfg.Seeds)
		if err != nil {
			list.Shutdown()
			return nil, fmt.Errorf("join seeds: %w", err)
		}
		cfg.Logger.Info("joined cluster", "node_id", cfg.NodeID, "seeds", cfg.Seeds, "contacted", n)
	} else {
		cfg.Logger.Info("started discovery (bootstrap mode)", "node_id", cfg.NodeID)
	}
	return d, nil
}

// GossipAddr returns the address other members can join through.
func (d *Discovery) GossipAddr() string {
	n := d.list.LocalNode()
	return n.Address()
}

// NumMembers returns the number of live members.
func (d *Discovery) NumMembers() int {
	return d.list.NumMembers()
}

// Leave announces departure and stops gossip.
func (d *Discovery) Leave() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.list.Leave(0); err != nil {
		d.logger.Warn("leave cluster", "error", err)
	}
	if err := d.list.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	d.logger.Info("left cluster")
	return nil
}

type eventDelegate struct {
	discovery *Discovery
}

func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	addr := string(node.Meta)
	if addr == "" {
		e.discovery.logger.Warn("member joined without rpc address", "node_id", node.Name, "gossip_addr", node.Address())
		return
	}
	e.discovery.logger.Info("member joined", "node_id", node.Name, "rpc_addr", addr)
	e.discovery.ring.Add(Member{ID: node.Name, RPCAddr: addr})
}

func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	e.discovery.logger.Info("member left", "node_id", node.Name)
	e.discovery.ring.Remove(node.Name)
}

func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	if addr := string(node.Meta); addr != "" {
		e.discovery.ring.Add(Member{ID: node.Name, RPCAddr: addr})
	}
}

// slogWriter adapts slog.Logger to io.Writer for memberlist.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	w.logger.Debug(strings.TrimSpace(string(p)))
	return len(p), nil
}

// metadataDelegate publishes the rpc address.
type metadataDelegate struct {
	meta []byte
}

func (m *metadataDelegate) NodeMeta(limit int) []byte {
	if len(m.meta) > limit {
		return m.meta[:limit]
	}
	return m.meta
}

func (m *metadataDelegate) NotifyMsg([]byte)                           {}
func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (m *metadataDelegate) LocalState(join bool) []byte                { return nil }
func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool)     {}
