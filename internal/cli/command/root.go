package command

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/devmesh-go/internal/cli/config"
	"github.com/yndnr/devmesh-go/internal/cli/connection"
	"github.com/yndnr/devmesh-go/internal/cli/output"
	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/devmesh-go/internal/infra/tlsroots"
	"github.com/yndnr/devmesh-go/internal/telemetry/logger"
)

const settingsKey = "settings"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "devmesh-cli",
		Usage:   "Read and change device data through a DevMesh cluster",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ReadCommand(),
			ExistsCommand(),
			PutCommand(),
			MergeCommand(),
			DeleteCommand(),
			CommitCommand(),
			ShellCommand(),
			StatusCommand(),
			AdminCommand(),
			ProfileCommand(),
		},
		Before: loadSettings,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"DEVMESH_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Profile to use instead of the current one",
			EnvVars: []string{"DEVMESH_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Cluster member RPC address (e.g. http://127.0.0.1:7380)",
			EnvVars: []string{"DEVMESH_SERVER"},
		},
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Usage:   "Device name",
			EnvVars: []string{"DEVMESH_DEVICE"},
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "Datastore: configuration or operational",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Per-request timeout",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{Name: "ca-file", Usage: "CA bundle for member certificates"},
		&cli.StringFlag{Name: "cert-file", Usage: "Client certificate"},
		&cli.StringFlag{Name: "key-file", Usage: "Client key"},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log transport activity to stderr",
		},
	}
}

// settings are the effective options: flags over the profile over defaults.
type settings struct {
	ConfigPath string
	Profile    string
	Server     string
	Device     string
	Store      domain.Store
	Timeout    time.Duration
	Output     output.Format
	TLS        tlsroots.Config
	Logger     *slog.Logger
}

func loadSettings(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if name := c.String("profile"); name != "" {
		if _, ok := cfg.Profiles[name]; !ok {
			return fmt.Errorf("unknown profile %q", name)
		}
		cfg.CurrentProfile = name
	}
	p := cfg.Current()

	s := &settings{
		ConfigPath: c.String("config"),
		Profile:    cfg.CurrentProfile,
		Server:     pick(c.String("server"), p.Server),
		Device:     pick(c.String("device"), p.Device),
		Timeout:    p.Timeout,
		TLS: tlsroots.Config{
			CAFile:   pick(c.String("ca-file"), p.TLS.CAFile),
			CertFile: pick(c.String("cert-file"), p.TLS.CertFile),
			KeyFile:  pick(c.String("key-file"), p.TLS.KeyFile),
		},
	}
	if c.IsSet("timeout") {
		s.Timeout = c.Duration("timeout")
	}
	if s.Timeout <= 0 {
		s.Timeout = 5 * time.Second
	}
	if s.Store, err = domain.ParseStore(pick(c.String("store"), p.Store, "configuration")); err != nil {
		return err
	}
	if s.Output, err = output.ParseFormat(pick(c.String("output"), p.Output, "table")); err != nil {
		return err
	}

	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	if s.Logger, err = logger.New(logger.Config{Level: level, Format: "text", Output: c.App.ErrWriter}); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[settingsKey] = s
	return nil
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func settingsFrom(c *cli.Context) *settings {
	s, _ := c.App.Metadata[settingsKey].(*settings)
	return s
}

// dial opens a session for the effective settings.
func dial(c *cli.Context) (*connection.Session, error) {
	s := settingsFrom(c)
	if s.Device == "" {
		return nil, fmt.Errorf("no device selected; use --device or set one in the profile")
	}
	return connection.Dial(connection.Options{
		Server:  s.Server,
		Device:  s.Device,
		Timeout: s.Timeout,
		TLS:     s.TLS,
		Logger:  s.Logger,
	})
}

func render(c *cli.Context, data any) error {
	return renderTo(c.App.Writer, settingsFrom(c).Output, data)
}

func renderTo(w io.Writer, format output.Format, data any) error {
	return output.NewFormatter(format).Format(w, data)
}
