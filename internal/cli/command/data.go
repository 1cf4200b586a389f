package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/devmesh-go/internal/cli/output"
	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/tx"
)

// ReadCommand reads a subtree.
func ReadCommand() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Aliases:   []string{"get"},
		Usage:     "Read the data stored at a path",
		ArgsUsage: "PATH",
		Action:    readAction,
	}
}

// ExistsCommand checks for data at a path.
func ExistsCommand() *cli.Command {
	return &cli.Command{
		Name:      "exists",
		Usage:     "Report whether data is stored at a path",
		ArgsUsage: "PATH",
		Action:    existsAction,
	}
}

func writeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "YAML or JSON file holding the node to write",
		},
	}
}

// PutCommand replaces a subtree.
func PutCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "Replace the data at a path and commit",
		ArgsUsage: "PATH [VALUE]",
		Flags:     writeFlags(),
		Action:    writeAction(domainPut),
	}
}

// MergeCommand overlays a subtree.
func MergeCommand() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge data into a path and commit",
		ArgsUsage: "PATH [VALUE]",
		Flags:     writeFlags(),
		Action:    writeAction(domainMerge),
	}
}

// DeleteCommand removes a subtree.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete the data at a path and commit",
		ArgsUsage: "PATH",
		Action:    deleteAction,
	}
}

func pathArg(c *cli.Context) (domain.Path, error) {
	if c.NArg() < 1 {
		return nil, fmt.Errorf("%s: PATH is required", c.Command.Name)
	}
	return domain.ParsePath(c.Args().First())
}

func readAction(c *cli.Context) error {
	path, err := pathArg(c)
	if err != nil {
		return err
	}
	sess, err := dial(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	rtx := sess.Broker().NewReadOnlyTransaction()
	defer rtx.Cancel()

	node, err := rtx.Read(settingsFrom(c).Store, path).Wait(c.Context)
	if err != nil {
		return err
	}
	if node == nil && settingsFrom(c).Output == output.FormatTable {
		fmt.Fprintf(c.App.Writer, "no data at %s\n", path)
		return nil
	}
	return render(c, node)
}

func existsAction(c *cli.Context) error {
	path, err := pathArg(c)
	if err != nil {
		return err
	}
	sess, err := dial(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	rtx := sess.Broker().NewReadOnlyTransaction()
	defer rtx.Cancel()

	ok, err := rtx.Exists(settingsFrom(c).Store, path).Wait(c.Context)
	if err != nil {
		return err
	}
	return render(c, ok)
}

type writeOp func(w tx.WriteTransaction, store domain.Store, path domain.Path, data *domain.Node) error

func domainPut(w tx.WriteTransaction, store domain.Store, path domain.Path, data *domain.Node) error {
	return w.Put(store, path, data)
}

func domainMerge(w tx.WriteTransaction, store domain.Store, path domain.Path, data *domain.Node) error {
	return w.Merge(store, path, data)
}

func writeAction(op writeOp) cli.ActionFunc {
	return func(c *cli.Context) error {
		path, err := pathArg(c)
		if err != nil {
			return err
		}
		data, err := nodeArg(c, path)
		if err != nil {
			return err
		}
		return commitOne(c, func(w tx.WriteTransaction, store domain.Store) error {
			return op(w, store, path, data)
		})
	}
}

func deleteAction(c *cli.Context) error {
	path, err := pathArg(c)
	if err != nil {
		return err
	}
	return commitOne(c, func(w tx.WriteTransaction, store domain.Store) error {
		return w.Delete(store, path)
	})
}

// nodeArg builds the node to write from --file or from a VALUE argument.
func nodeArg(c *cli.Context, path domain.Path) (*domain.Node, error) {
	if file := c.String("file"); file != "" {
		return loadNode(file)
	}
	if c.NArg() < 2 {
		return nil, fmt.Errorf("%s: VALUE or --file is required", c.Command.Name)
	}
	if path.IsRoot() {
		return nil, fmt.Errorf("%s: a VALUE cannot be written at the root", c.Command.Name)
	}
	return domain.NewLeaf(path.Last(), c.Args().Get(1)), nil
}

func loadNode(file string) (*domain.Node, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var n domain.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return &n, nil
}

// commitResult is printed after a write.
type commitResult struct {
	TxID       string `json:"tx_id" yaml:"tx_id"`
	Device     string `json:"device" yaml:"device"`
	Operations int    `json:"operations" yaml:"operations"`
	Status     string `json:"status" yaml:"status"`
}

func commitOne(c *cli.Context, write func(tx.WriteTransaction, domain.Store) error) error {
	sess, err := dial(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	w := sess.Broker().NewWriteOnlyTransaction()
	if err := write(w, settingsFrom(c).Store); err != nil {
		w.Cancel()
		return err
	}
	return commitAndRender(c, w, 1)
}

func commitAndRender(c *cli.Context, w tx.WriteTransaction, ops int) error {
	f, err := w.Commit()
	if err != nil {
		return err
	}
	status, err := f.Wait(c.Context)
	if err != nil {
		return err
	}
	return render(c, commitResult{
		TxID:       w.Identifier().String(),
		Device:     settingsFrom(c).Device,
		Operations: ops,
		Status:     status.String(),
	})
}
