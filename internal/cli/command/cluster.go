package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/devmesh-go/internal/cli/connection"
	"github.com/yndnr/devmesh-go/internal/cli/output"
	"github.com/yndnr/devmesh-go/internal/cluster"
)

// StatusCommand shows the member's view of the cluster.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show cluster members and device ownership",
		Action: func(c *cli.Context) error {
			s := settingsFrom(c)
			st, err := connection.FetchStatus(c.Context, connection.Options{
				Server:  s.Server,
				Timeout: s.Timeout,
				TLS:     s.TLS,
				Logger:  s.Logger,
			})
			if err != nil {
				return err
			}
			if s.Output == output.FormatTable {
				return renderTo(c.App.Writer, s.Output, statusTable(st))
			}
			return render(c, st)
		},
	}
}

func statusTable(st *cluster.Status) *output.Table {
	t := &output.Table{Headers: []string{"DEVICE", "OWNER", "MOUNTED", "OPEN TX"}}
	for _, d := range st.Devices {
		owner := d.Owner
		if owner == "" {
			owner = "-"
		}
		if owner == st.NodeID {
			owner += " (this)"
		}
		t.AddRow(d.Name, owner, strconv.FormatBool(d.Mounted), strconv.Itoa(d.OpenTransactions))
	}
	return t
}

// AdminCommand talks to the admin socket of a local member.
func AdminCommand() *cli.Command {
	return &cli.Command{
		Name:      "admin",
		Usage:     "Send a command to a member's admin socket",
		ArgsUsage: "status | loglevel [LEVEL] | reload | shutdown",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "socket",
				Usage:    "Admin socket path (node.admin_socket of the member)",
				EnvVars:  []string{"DEVMESH_ADMIN_SOCKET"},
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("admin: missing command")
			}
			s := settingsFrom(c)
			reply, err := connection.Admin(c.Context, c.String("socket"), strings.Join(c.Args().Slice(), " "), s.Timeout)
			if err != nil {
				return err
			}
			if !reply.OK {
				return fmt.Errorf("admin: %s", reply.Error)
			}
			if _, ok := reply.Result.(string); !ok && s.Output == output.FormatTable {
				return renderTo(c.App.Writer, output.FormatJSON, reply.Result)
			}
			return render(c, reply.Result)
		},
	}
}
