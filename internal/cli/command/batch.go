package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/devmesh-go/internal/cli/output"
	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/tx"
)

// Batch is a list of writes applied in one transaction. JSON files parse
// as YAML.
type Batch struct {
	Device     string    `yaml:"device"`
	Operations []BatchOp `yaml:"operations"`
}

// BatchOp is one write. Value is shorthand for a leaf named after the
// last path segment.
type BatchOp struct {
	Op    string       `yaml:"op"`
	Store string       `yaml:"store"`
	Path  string       `yaml:"path"`
	Value string       `yaml:"value"`
	Data  *domain.Node `yaml:"data"`
}

// plannedOp is a BatchOp after parsing.
type plannedOp struct {
	kind  string
	store domain.Store
	path  domain.Path
	data  *domain.Node
}

// LoadBatch reads a batch file.
func LoadBatch(file string) (*Batch, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var b Batch
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return &b, nil
}

// plan validates every operation before anything is sent.
func (b *Batch) plan(defaultStore domain.Store) ([]plannedOp, error) {
	if len(b.Operations) == 0 {
		return nil, fmt.Errorf("batch has no operations")
	}
	ops := make([]plannedOp, 0, len(b.Operations))
	for i, op := range b.Operations {
		p := plannedOp{kind: strings.ToLower(op.Op), store: defaultStore}
		var err error
		if op.Store != "" {
			if p.store, err = domain.ParseStore(op.Store); err != nil {
				return nil, fmt.Errorf("operations[%d]: %w", i, err)
			}
		}
		if p.path, err = domain.ParsePath(op.Path); err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}
		switch p.kind {
		case "put", "merge":
			switch {
			case op.Data != nil:
				p.data = op.Data
			case op.Value != "" && !p.path.IsRoot():
				p.data = domain.NewLeaf(p.path.Last(), op.Value)
			default:
				return nil, fmt.Errorf("operations[%d]: %s needs data or value", i, p.kind)
			}
		case "delete":
		default:
			return nil, fmt.Errorf("operations[%d]: unknown op %q", i, op.Op)
		}
		ops = append(ops, p)
	}
	return ops, nil
}

func (p plannedOp) apply(w tx.WriteTransaction) error {
	switch p.kind {
	case "put":
		return w.Put(p.store, p.path, p.data)
	case "merge":
		return w.Merge(p.store, p.path, p.data)
	default:
		return w.Delete(p.store, p.path)
	}
}

func planTable(ops []plannedOp) *output.Table {
	t := &output.Table{Headers: []string{"OP", "STORE", "PATH"}}
	for _, p := range ops {
		t.AddRow(p.kind, p.store.String(), p.path.String())
	}
	return t
}

// CommitCommand applies a batch file in one transaction.
func CommitCommand() *cli.Command {
	return &cli.Command{
		Name:      "commit",
		Usage:     "Apply a YAML or JSON batch of writes in one transaction",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Validate and list the operations without sending them"},
		},
		Action: commitAction,
	}
}

func commitAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("commit: FILE is required")
	}
	b, err := LoadBatch(c.Args().First())
	if err != nil {
		return err
	}
	s := settingsFrom(c)
	ops, err := b.plan(s.Store)
	if err != nil {
		return err
	}
	if c.Bool("dry-run") {
		return planTable(ops).Render(c.App.Writer)
	}
	if s.Device == "" {
		s.Device = b.Device
	}

	sess, err := dial(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	w := sess.Broker().NewWriteOnlyTransaction()
	for i, p := range ops {
		if err := p.apply(w); err != nil {
			w.Cancel()
			return fmt.Errorf("operations[%d]: %w", i, err)
		}
	}
	return commitAndRender(c, w, len(ops))
}
