package tests

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yndnr/devmesh-go/internal/cluster"
	"github.com/yndnr/devmesh-go/internal/coordinator"
	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/tx"
	"github.com/yndnr/devmesh-go/internal/server/httpserver"
	"github.com/yndnr/devmesh-go/internal/storage/datastore"
	"github.com/yndnr/devmesh-go/internal/transport/rpc"
)

// node is one in-process member: gossip, resolver, datastore and the
// HTTP front carrying the exchange procedure.
type node struct {
	id        string
	url       string
	ring      *cluster.Ring
	resolver  *cluster.Resolver
	discovery *cluster.Discovery
	store     *datastore.Store
}

func startNode(t *testing.T, id string, devices []domain.DeviceID, seeds []string, logger *slog.Logger) *node {
	t.Helper()
	store, err := datastore.Open(datastore.Config{InMemory: true}, logger)
	if err != nil {
		t.Fatalf("datastore.Open(%s) error = %v", id, err)
	}
	t.Cleanup(func() { store.Close() })

	n := &node{id: id, ring: cluster.NewRing(0), store: store}
	n.resolver = cluster.NewResolver(cluster.ResolverConfig{
		LocalID: id,
		Ring:    n.ring,
		Devices: devices,
		NewCoordinator: func(d domain.DeviceID) *coordinator.Coordinator {
			return coordinator.New(coordinator.Config{Device: d, Backend: store, Logger: logger})
		},
		CallTimeout: 2 * time.Second,
		Logger:      logger,
	})
	t.Cleanup(func() { n.resolver.Close() })

	path, h := rpc.NewHandler(rpc.HandlerConfig{Router: n.resolver, Logger: logger})
	srv := httptest.NewServer(httpserver.NewRouter(httpserver.RouterConfig{
		RPCPath:    path,
		RPCHandler: h,
		Status:     func() any { return n.resolver.Status() },
		Logger:     logger,
	}))
	t.Cleanup(srv.Close)
	n.url = srv.URL

	n.discovery, err = cluster.NewDiscovery(cluster.DiscoveryConfig{
		NodeID:   id,
		BindAddr: "127.0.0.1",
		RPCAddr:  srv.URL,
		Seeds:    seeds,
		Logger:   logger,
	}, n.ring)
	if err != nil {
		t.Fatalf("NewDiscovery(%s) error = %v", id, err)
	}
	t.Cleanup(func() { n.discovery.Leave() })
	return n
}

func waitMembers(t *testing.T, want int, nodes ...*node) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		ready := true
		for _, n := range nodes {
			if len(n.ring.Members()) < want {
				ready = false
			}
		}
		if ready {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("cluster did not converge to %d members", want)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// TestClusterForwarding commits through one member a transaction on a
// device owned by the other and reads it back from the owner.
func TestClusterForwarding(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var devices []domain.DeviceID
	for i := 0; i < 16; i++ {
		devices = append(devices, domain.DeviceID{Name: fmt.Sprintf("edge-%d", i)})
	}
	a := startNode(t, "node-a", devices, nil, logger)
	b := startNode(t, "node-b", devices, []string{a.discovery.GossipAddr()}, logger)
	waitMembers(t, 2, a, b)

	var target domain.DeviceID
	for _, d := range devices {
		if owner, _ := a.ring.Owner(d.Name); owner.ID == b.id {
			target = d
			break
		}
	}
	if target.Name == "" {
		t.Fatal("no device owned by node-b")
	}

	entry := rpc.NewClient(rpc.ClientConfig{BaseURL: a.url, CallTimeout: 2 * time.Second, Logger: logger})
	defer entry.Close()
	broker := tx.NewBroker(target, entry, 3*time.Second, tx.WithLogger(logger))

	path := domain.MustParsePath("/system/hostname")
	wtx := broker.NewWriteOnlyTransaction()
	if err := wtx.Put(domain.StoreConfiguration, path, domain.NewLeaf("hostname", "edge.lab")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	commit, err := wtx.Commit()
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := commit.Wait(ctx)
	if err != nil {
		t.Fatalf("Commit().Wait() error = %v", err)
	}
	if status != domain.StatusSubmitted {
		t.Errorf("Commit() = %v, want %v", status, domain.StatusSubmitted)
	}

	got, err := b.store.Read(target.Name, domain.StoreConfiguration, path)
	if err != nil {
		t.Fatalf("owner Read() error = %v", err)
	}
	if got == nil || got.Value != "edge.lab" {
		t.Errorf("owner Read() = %v, want hostname edge.lab", got)
	}
	if n, _ := a.store.Read(target.Name, domain.StoreConfiguration, path); n != nil {
		t.Errorf("forwarding member stored %v, want nothing", n)
	}

	rtx := broker.NewReadOnlyTransaction()
	node, err := rtx.Read(domain.StoreConfiguration, path).Wait(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if node == nil || node.Value != "edge.lab" {
		t.Errorf("Read() = %v, want hostname edge.lab", node)
	}

	resp, err := http.Get(b.url + "/v1/status")
	if err != nil {
		t.Fatalf("GET /v1/status error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /v1/status status = %d, want 200", resp.StatusCode)
	}
	for _, d := range b.resolver.Status().Devices {
		if d.Name == target.Name && !d.Mounted {
			t.Errorf("device %s not mounted on its owner", d.Name)
		}
	}
}
