package metric

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProxyMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewProxyMetrics(reg)

	m.Sent("ReadRequest")
	m.Sent("ReadRequest")
	m.Resolved("ReadRequest", OutcomeTimeout, 5*time.Second)
	m.Rejected("put")
	m.LateReply()

	if got := testutil.ToFloat64(m.requests.WithLabelValues("ReadRequest")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("ReadRequest", OutcomeTimeout)); got != 1 {
		t.Errorf("timeouts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rejected.WithLabelValues("put")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lateReplies); got != 1 {
		t.Errorf("late replies = %v, want 1", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var p *ProxyMetrics
	p.Sent("x")
	p.Resolved("x", OutcomeSuccess, time.Millisecond)
	p.Rejected("x")
	p.LateReply()

	var c *CoordinatorMetrics
	c.Handled("dev", "x")
	c.Failed("dev", "in-use")
	c.TransactionOpened()
	c.TransactionClosed()
	c.Throttled()
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewCoordinatorMetrics(reg)
	m.Handled("dev1", "SubmitRequest")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `devmesh_coordinator_requests_total{device="dev1",kind="SubmitRequest"} 1`) {
		t.Errorf("metrics output missing coordinator counter:\n%s", body)
	}
}
