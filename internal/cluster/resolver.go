package cluster

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"connectrpc.com/connect"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/coordinator"
	"github.com/yndnr/devmesh-go/internal/transport"
	"github.com/yndnr/devmesh-go/internal/transport/rpc"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// LocalID is this member's node id.
	LocalID string

	Ring *Ring

	// Devices is the cluster-wide device inventory.
	Devices []domain.DeviceID

	// NewCoordinator builds the coordinator of a device this member owns.
	NewCoordinator func(domain.DeviceID) *coordinator.Coordinator

	// HTTPClient and CallTimeout configure clients to other members.
	HTTPClient  connect.HTTPClient
	CallTimeout time.Duration

	Logger *slog.Logger
}

type mount struct {
	coord *coordinator.Coordinator
	ref   *transport.LocalRef
}

// Resolver maps devices to coordinator references.
type Resolver struct {
	cfg       ResolverConfig
	inventory map[string]domain.DeviceID
	logger    *slog.Logger

	mu      sync.Mutex
	mounts  map[string]*mount
	clients map[string]*rpc.Client
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &Resolver{
		cfg:       cfg,
		inventory: make(map[string]domain.DeviceID, len(cfg.Devices)),
		logger:    cfg.Logger,
		mounts:    make(map[string]*mount),
		clients:   make(map[string]*rpc.Client),
	}
	for _, d := range cfg.Devices {
		r.inventory[d.Name] = d
	}
	cfg.Ring.OnChange(r.rebalance)
	return r
}

// Device returns the inventory entry for name.
func (r *Resolver) Device(name string) (domain.DeviceID, error) {
	d, ok := r.inventory[name]
	if !ok {
		return domain.DeviceID{}, domain.ErrDeviceNotFound.WithDetails(name)
	}
	return d, nil
}

// Resolve returns the reference of the coordinator owning device.
func (r *Resolver) Resolve(device string) (transport.Ref, error) {
	d, err := r.Device(device)
	if err != nil {
		return nil, err
	}
	owner, ok := r.cfg.Ring.Owner(device)
	if !ok {
		return nil, domain.ErrServiceUnavailable.WithDetails("no cluster members")
	}
	if owner.ID == r.cfg.LocalID {
		return r.mount(d), nil
	}
	return r.client(owner.RPCAddr), nil
}

// Route implements rpc.Router. Requests for devices owned elsewhere are
// forwarded to the owner.
func (r *Resolver) Route(device string) (transport.Ref, bool) {
	ref, err := r.Resolve(device)
	if err != nil {
		return nil, false
	}
	return ref, true
}

// Coordinators returns the coordinators mounted on this member.
func (r *Resolver) Coordinators() []*coordinator.Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*coordinator.Coordinator, 0, len(r.mounts))
	for _, m := range r.mounts {
		out = append(out, m.coord)
	}
	return out
}

// Close stops every mounted coordinator and client.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, m := range r.mounts {
		m.ref.Close()
		delete(r.mounts, name)
	}
	for addr, c := range r.clients {
		c.Close()
		delete(r.clients, addr)
	}
	return nil
}

func (r *Resolver) mount(d domain.DeviceID) transport.Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mounts[d.Name]; ok {
		return m.ref
	}
	coord := r.cfg.NewCoordinator(d)
	m := &mount{coord: coord, ref: transport.NewLocalRef(d.Name, coord)}
	r.mounts[d.Name] = m
	r.logger.Info("device mounted", "device", d.String())
	return m.ref
}

func (r *Resolver) client(addr string) transport.Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[addr]; ok {
		return c
	}
	c := rpc.NewClient(rpc.ClientConfig{
		BaseURL:     addr,
		HTTPClient:  r.cfg.HTTPClient,
		CallTimeout: r.cfg.CallTimeout,
		Logger:      r.logger,
	})
	r.clients[addr] = c
	return c
}

// rebalance unmounts coordinators of devices now owned by another
// member. Their open transactions are dropped; proxies see them fail.
func (r *Resolver) rebalance() {
	owned := 0
	for name := range r.inventory {
		m, ok := r.cfg.Ring.Owner(name)
		if ok && m.ID == r.cfg.LocalID {
			owned++
			continue
		}
		r.unmount(name)
	}
	r.logger.Info("device ownership changed",
		"members", len(r.cfg.Ring.Members()),
		"owned_devices", owned,
		"ring_version", r.cfg.Ring.Version())
}

func (r *Resolver) unmount(name string) {
	r.mu.Lock()
	m, ok := r.mounts[name]
	delete(r.mounts, name)
	r.mu.Unlock()
	if !ok {
		return
	}
	m.ref.Close()
	r.logger.Info("device unmounted", "device", name, "open_transactions", m.coord.OpenTransactions())
}

// DeviceStatus reports where a device is served.
type DeviceStatus struct {
	Name             string `json:"name"`
	Owner            string `json:"owner"`
	Mounted          bool   `json:"mounted"`
	OpenTransactions int    `json:"open_transactions"`
}

// Status is a snapshot of this member's view of the cluster.
type Status struct {
	NodeID      string         `json:"node_id"`
	RingVersion uint64         `json:"ring_version"`
	Members     []Member       `json:"members"`
	Devices     []DeviceStatus `json:"devices"`
}

// Status returns the current snapshot with devices sorted by name.
func (r *Resolver) Status() Status {
	st := Status{
		NodeID:      r.cfg.LocalID,
		RingVersion: r.cfg.Ring.Version(),
		Members:     r.cfg.Ring.Members(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.inventory {
		ds := DeviceStatus{Name: name}
		if m, ok := r.cfg.Ring.Owner(name); ok {
			ds.Owner = m.ID
		}
		if m, ok := r.mounts[name]; ok {
			ds.Mounted = true
			ds.OpenTransactions = m.coord.OpenTransactions()
		}
		st.Devices = append(st.Devices, ds)
	}
	sort.Slice(st.Devices, func(i, j int) bool { return st.Devices[i].Name < st.Devices[j].Name })
	return st
}
