package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/devmesh-go/internal/coordinator"
	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/storage/datastore"
	"github.com/yndnr/devmesh-go/internal/transport"
	"github.com/yndnr/devmesh-go/internal/transport/rpc"
)

const testDevice = "edge-1"

// member is an in-process cluster member serving testDevice.
type member struct {
	url   string
	store *datastore.Store
}

func startMember(t *testing.T) *member {
	t.Helper()
	store, err := datastore.Open(datastore.Config{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("datastore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dev := domain.DeviceID{Name: testDevice}
	ref := transport.NewLocalRef(testDevice, coordinator.New(coordinator.Config{Device: dev, Backend: store}))
	t.Cleanup(func() { ref.Close() })

	routes := rpc.NewRoutes()
	routes.Add(testDevice, ref)
	mux := http.NewServeMux()
	mux.Handle(rpc.NewHandler(rpc.HandlerConfig{Router: routes}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &member{url: srv.URL, store: store}
}

// runCLI runs the app with a private config file and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader("")

	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")
	full := append([]string{"devmesh-cli", "--config", cfgPath}, args...)
	err := app.RunContext(context.Background(), full)
	return out.String(), err
}

func TestPutReadDelete(t *testing.T) {
	m := startMember(t)
	base := []string{"-s", m.url, "-d", testDevice, "-o", "json"}

	out, err := runCLI(t, append(base, "put", "/system/hostname", "edge-1.lab")...)
	if err != nil {
		t.Fatalf("put error = %v", err)
	}
	var res commitResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("put output %q: %v", out, err)
	}
	if res.Status != "SUBMITTED" || res.Operations != 1 || !domain.TxID(res.TxID).Valid() {
		t.Errorf("put result = %+v", res)
	}

	out, err = runCLI(t, append(base, "read", "/system/hostname")...)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	var node domain.Node
	if err := json.Unmarshal([]byte(out), &node); err != nil {
		t.Fatalf("read output %q: %v", out, err)
	}
	if node.Name != "hostname" || node.Value != "edge-1.lab" {
		t.Errorf("read = %+v, want hostname=edge-1.lab", node)
	}

	if _, err := runCLI(t, append(base, "delete", "/system")...); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	out, err = runCLI(t, append(base, "exists", "/system/hostname")...)
	if err != nil {
		t.Fatalf("exists error = %v", err)
	}
	if strings.TrimSpace(out) != "false" {
		t.Errorf("exists after delete = %q, want false", out)
	}
}

func TestReadMissingTable(t *testing.T) {
	m := startMember(t)
	out, err := runCLI(t, "-s", m.url, "-d", testDevice, "read", "/nothing")
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if !strings.Contains(out, "no data at /nothing") {
		t.Errorf("read = %q, want no-data message", out)
	}
}

func TestCommitBatch(t *testing.T) {
	m := startMember(t)
	file := filepath.Join(t.TempDir(), "batch.yaml")
	batch := `
device: edge-1
operations:
  - op: put
    path: /interfaces/eth0
    data:
      name: eth0
      children:
        - {name: mtu, value: "1500"}
  - op: merge
    path: /interfaces/eth0/description
    value: uplink
  - op: put
    store: operational
    path: /state/uptime
    value: "42"
`
	if err := os.WriteFile(file, []byte(batch), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := runCLI(t, "-s", m.url, "commit", file); err != nil {
		t.Fatalf("commit error = %v", err)
	}

	node, err := m.store.Read(testDevice, domain.StoreConfiguration, domain.MustParsePath("/interfaces/eth0"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if node.Find(domain.MustParsePath("/mtu")) == nil || node.Find(domain.MustParsePath("/description")) == nil {
		t.Errorf("eth0 = %v, want mtu and description", node)
	}
	if ok, _ := m.store.Exists(testDevice, domain.StoreOperational, domain.MustParsePath("/state/uptime")); !ok {
		t.Error("operational write missing")
	}
}

func TestCommitDryRun(t *testing.T) {
	file := filepath.Join(t.TempDir(), "batch.json")
	os.WriteFile(file, []byte(`{"operations":[{"op":"delete","path":"/a/b"}]}`), 0o644)

	out, err := runCLI(t, "commit", "--dry-run", file)
	if err != nil {
		t.Fatalf("commit --dry-run error = %v", err)
	}
	if !strings.Contains(out, "delete") || !strings.Contains(out, "/a/b") {
		t.Errorf("dry run = %q, want the planned delete", out)
	}
}

func TestBatchPlanErrors(t *testing.T) {
	tests := []struct {
		name  string
		batch Batch
		want  string
	}{
		{"empty", Batch{}, "no operations"},
		{"unknown op", Batch{Operations: []BatchOp{{Op: "move", Path: "/a"}}}, "unknown op"},
		{"put without data", Batch{Operations: []BatchOp{{Op: "put", Path: "/a"}}}, "needs data or value"},
		{"bad store", Batch{Operations: []BatchOp{{Op: "delete", Store: "running", Path: "/a"}}}, "operations[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.batch.plan(domain.StoreConfiguration)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("plan() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestMissingDevice(t *testing.T) {
	_, err := runCLI(t, "-s", "http://127.0.0.1:1", "read", "/a")
	if err == nil || !strings.Contains(err.Error(), "no device selected") {
		t.Errorf("read error = %v, want no device selected", err)
	}
}

func TestProfileSaveAndUse(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")
	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		app := App()
		app.Writer = &out
		app.ErrWriter = &out
		if err := app.Run(append([]string{"devmesh-cli", "--config", cfgPath}, args...)); err != nil {
			t.Fatalf("%v error = %v", args, err)
		}
		return out.String()
	}

	run("-s", "http://lab-1:7380", "-d", "edge-9", "profile", "save", "lab")
	run("profile", "use", "lab")
	out := run("profile", "list")

	if !strings.Contains(out, "lab") || !strings.Contains(out, "http://lab-1:7380") || !strings.Contains(out, "edge-9") {
		t.Errorf("profile list = %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "lab") && !strings.HasPrefix(strings.TrimSpace(line), "*") {
			t.Errorf("lab is not marked current: %q", line)
		}
	}
}

func TestShell(t *testing.T) {
	m := startMember(t)
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader("put /ntp/server 10.0.0.123\ncommit\n")

	err := app.Run([]string{"devmesh-cli", "--config", filepath.Join(t.TempDir(), "cli.yaml"),
		"-s", m.url, "-d", testDevice, "shell", "--history-file", ""})
	if err != nil {
		t.Fatalf("shell error = %v", err)
	}
	if ok, _ := m.store.Exists(testDevice, domain.StoreConfiguration, domain.MustParsePath("/ntp/server")); !ok {
		t.Errorf("shell commit missing, output %q", out.String())
	}
}
