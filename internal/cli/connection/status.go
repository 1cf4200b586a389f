package connection

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/devmesh-go/internal/cluster"
	"github.com/yndnr/devmesh-go/internal/server/localserver"
)

// FetchStatus reads the cluster view of the member at opts.Server.
// Device is not needed.
func FetchStatus(ctx context.Context, opts Options) (*cluster.Status, error) {
	if opts.Server == "" {
		return nil, fmt.Errorf("no server given")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		var err error
		if httpClient, err = newHTTPClient(opts.TLS, opts.Logger); err != nil {
			return nil, err
		}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	url := NormalizeServer(opts.Server, opts.TLS.Enabled()) + "/v1/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var st cluster.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// Admin sends one command line to a member's admin socket.
func Admin(ctx context.Context, socket, command string, timeout time.Duration) (*localserver.Reply, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("connect admin socket: %w", err)
	}
	defer conn.Close()
	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}

	if _, err := io.WriteString(conn, strings.TrimSpace(command)+"\n"); err != nil {
		return nil, err
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read admin reply: %w", err)
	}
	var reply localserver.Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("decode admin reply: %w", err)
	}
	return &reply, nil
}
