package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/devmesh-go/internal/cli/repl"
)

// ShellCommand starts the interactive shell.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Open an interactive transaction against the device",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history-file",
				Usage: "File keeping shell history (empty disables it)",
				Value: repl.DefaultHistoryFile(),
			},
		},
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	sess, err := dial(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	s := settingsFrom(c)
	history := repl.NewHistory(c.String("history-file"))
	if err := history.Load(); err != nil {
		s.Logger.Warn("cannot load shell history", "error", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			s.Logger.Warn("cannot save shell history", "error", err)
		}
	}()

	return repl.New(repl.Config{
		Open:    sess.Broker().NewReadWriteTransaction,
		Device:  s.Device,
		Store:   s.Store,
		Format:  s.Output,
		History: history,
		In:      c.App.Reader,
		Out:     c.App.Writer,
	}).Run(c.Context)
}
