package cluster

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/coordinator"
	"github.com/yndnr/devmesh-go/internal/storage/datastore"
)

func newTestResolver(t *testing.T, ring *Ring, devices ...domain.DeviceID) *Resolver {
	t.Helper()
	store, err := datastore.Open(datastore.Config{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("datastore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	r := NewResolver(ResolverConfig{
		LocalID: "local",
		Ring:    ring,
		Devices: devices,
		NewCoordinator: func(d domain.DeviceID) *coordinator.Coordinator {
			return coordinator.New(coordinator.Config{Device: d, Backend: store})
		},
		CallTimeout: time.Second,
	})
	t.Cleanup(func() { r.Close() })
	return r
}

func TestResolveLocal(t *testing.T) {
	ring := NewRing(0)
	ring.Add(Member{ID: "local", RPCAddr: "http://127.0.0.1:7380"})
	dev := domain.DeviceID{Name: "dev1", Address: "10.0.0.1:830"}
	r := newTestResolver(t, ring, dev)

	ref, err := r.Resolve("dev1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := ref.String(); got != "local://dev1" {
		t.Errorf("Resolve() = %s, want local://dev1", got)
	}
	again, _ := r.Resolve("dev1")
	if again != ref {
		t.Error("Resolve() mounted the device twice")
	}
	if n := len(r.Coordinators()); n != 1 {
		t.Errorf("len(Coordinators()) = %d, want 1", n)
	}
}

func TestResolveRemote(t *testing.T) {
	ring := NewRing(0)
	ring.Add(Member{ID: "remote", RPCAddr: "http://10.1.1.1:7380"})

	var devices []domain.DeviceID
	for i := 0; i < 5; i++ {
		devices = append(devices, domain.DeviceID{Name: fmt.Sprintf("dev%d", i)})
	}
	r := newTestResolver(t, ring, devices...)

	ref, err := r.Resolve("dev0")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !strings.HasPrefix(ref.String(), "rpc://10.1.1.1:7380") {
		t.Errorf("Resolve() = %s, want rpc client to the owner", ref)
	}
	other, _ := r.Resolve("dev3")
	if other != ref {
		t.Error("Resolve() created a second client for the same member")
	}
}

func TestResolveErrors(t *testing.T) {
	ring := NewRing(0)
	r := newTestResolver(t, ring, domain.DeviceID{Name: "dev1"})

	if _, err := r.Resolve("unknown"); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Errorf("Resolve(unknown) error = %v, want %v", err, domain.ErrDeviceNotFound)
	}
	if _, err := r.Resolve("dev1"); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("Resolve() on empty ring error = %v, want %v", err, domain.ErrServiceUnavailable)
	}
	if _, ok := r.Route("unknown"); ok {
		t.Error("Route(unknown) = true, want false")
	}
}

func TestRebalanceUnmounts(t *testing.T) {
	ring := NewRing(0)
	ring.Add(Member{ID: "local", RPCAddr: "http://127.0.0.1:7380"})
	r := newTestResolver(t, ring, domain.DeviceID{Name: "dev1"}, domain.DeviceID{Name: "dev2"})

	if _, err := r.Resolve("dev1"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	st := r.Status()
	if len(st.Devices) != 2 {
		t.Fatalf("len(Status().Devices) = %d, want 2", len(st.Devices))
	}
	if d := st.Devices[0]; d.Name != "dev1" || !d.Mounted || d.Owner != "local" {
		t.Errorf("Status().Devices[0] = %+v, want dev1 mounted on local", d)
	}
	if d := st.Devices[1]; d.Mounted {
		t.Errorf("Status().Devices[1].Mounted = true, want false")
	}

	ring.Add(Member{ID: "remote", RPCAddr: "http://10.1.1.1:7380"})
	ring.Remove("local")

	if n := len(r.Coordinators()); n != 0 {
		t.Errorf("len(Coordinators()) after handoff = %d, want 0", n)
	}
	st = r.Status()
	if st.NodeID != "local" {
		t.Errorf("Status().NodeID = %q, want local", st.NodeID)
	}
	if len(st.Members) != 1 || st.Members[0].ID != "remote" {
		t.Errorf("Status().Members = %+v, want [remote]", st.Members)
	}
	for _, d := range st.Devices {
		if d.Owner != "remote" || d.Mounted {
			t.Errorf("device %s = %+v, want owned by remote and unmounted", d.Name, d)
		}
	}
}
