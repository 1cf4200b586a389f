package command

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/devmesh-go/internal/cli/config"
	"github.com/yndnr/devmesh-go/internal/cli/output"
)

// ProfileCommand manages saved connection profiles.
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage connection profiles",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List profiles",
				Action: profileList,
			},
			{
				Name:      "use",
				Usage:     "Select the current profile",
				ArgsUsage: "NAME",
				Action:    profileUse,
			},
			{
				Name:      "save",
				Usage:     "Save the effective connection flags as a profile",
				ArgsUsage: "NAME",
				Action:    profileSave,
			},
		},
	}
}

func profileList(c *cli.Context) error {
	cfg, err := config.Load(settingsFrom(c).ConfigPath)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &output.Table{Headers: []string{"CURRENT", "NAME", "SERVER", "DEVICE"}}
	for _, name := range names {
		mark := ""
		if name == cfg.CurrentProfile {
			mark = "*"
		}
		p := cfg.Profiles[name]
		t.AddRow(mark, name, p.Server, pick(p.Device, "-"))
	}
	return t.Render(c.App.Writer)
}

func profileUse(c *cli.Context) error {
	name := c.Args().First()
	path := settingsFrom(c).ConfigPath
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if _, ok := cfg.Profiles[name]; !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	cfg.CurrentProfile = name
	return config.Save(cfg, path)
}

func profileSave(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile save: NAME is required")
	}
	s := settingsFrom(c)
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		return err
	}
	cfg.Profiles[name] = config.Profile{
		Server:  s.Server,
		Device:  s.Device,
		Store:   s.Store.String(),
		Timeout: s.Timeout,
		Output:  string(s.Output),
		TLS:     s.TLS,
	}
	if err := config.Save(cfg, s.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "saved profile %q\n", name)
	return nil
}
