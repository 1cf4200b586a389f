package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yndnr/devmesh-go/internal/cli/output"
	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/core/tx"
)

// Config configures a REPL.
type Config struct {
	// Open starts a new transaction.
	Open func() tx.ReadWriteTransaction

	Device  string
	Store   domain.Store
	Format  output.Format
	History *History

	In  io.Reader
	Out io.Writer
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	cfg     Config
	store   domain.Store
	history *History
	current tx.ReadWriteTransaction
	pending int
}

// New creates a shell.
func New(cfg Config) *REPL {
	if cfg.History == nil {
		cfg.History = NewHistory("")
	}
	return &REPL{cfg: cfg, store: cfg.Store, history: cfg.History}
}

// Run reads commands until EOF, "exit" or the end of ctx. An open
// transaction is cancelled on the way out.
func (r *REPL) Run(ctx context.Context) error {
	defer r.discard(ctx)

	sc := bufio.NewScanner(r.cfg.In)
	for {
		fmt.Fprint(r.cfg.Out, r.prompt())
		if !sc.Scan() {
			fmt.Fprintln(r.cfg.Out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.history.Add(line)

		done, err := r.execute(ctx, line)
		if err != nil {
			fmt.Fprintf(r.cfg.Out, "error: %v\n", err)
			if domain.IsDomainError(err, domain.ErrCoordinatorUnresponsive.Code) {
				fmt.Fprintln(r.cfg.Out, "no answer from the coordinator; the transaction is still open")
			}
		}
		if done || ctx.Err() != nil {
			return nil
		}
	}
}

func (r *REPL) prompt() string {
	marker := ""
	if r.pending > 0 {
		marker = fmt.Sprintf("*%d", r.pending)
	}
	return fmt.Sprintf("%s[%s]%s> ", r.cfg.Device, r.store, marker)
}

func (r *REPL) tx() tx.ReadWriteTransaction {
	if r.current == nil {
		r.current = r.cfg.Open()
		r.pending = 0
	}
	return r.current
}

func (r *REPL) execute(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	name, err := Resolve(args[0])
	if err != nil {
		return false, err
	}
	args = args[1:]

	switch name {
	case "exit":
		return true, nil
	case "help":
		fmt.Fprint(r.cfg.Out, helpText())
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.cfg.Out, "%4d  %s\n", i+1, e)
		}
	case "store":
		if len(args) == 0 {
			fmt.Fprintln(r.cfg.Out, r.store)
			return false, nil
		}
		s, err := domain.ParseStore(args[0])
		if err != nil {
			return false, err
		}
		r.store = s
	case "status":
		if r.current == nil {
			fmt.Fprintln(r.cfg.Out, "no open transaction")
			return false, nil
		}
		fmt.Fprintf(r.cfg.Out, "%s: %d pending write(s)\n", r.current.Identifier(), r.pending)
	case "read":
		return false, r.read(ctx, args)
	case "exists":
		return false, r.exists(ctx, args)
	case "put", "merge":
		return false, r.write(name, args)
	case "delete":
		return false, r.delete(args)
	case "commit":
		return false, r.commit(ctx)
	case "cancel":
		return false, r.cancel(ctx)
	}
	return false, nil
}

func parsePath(args []string, want int, usage string) (domain.Path, error) {
	if len(args) != want {
		return nil, fmt.Errorf("usage: %s", usage)
	}
	return domain.ParsePath(args[0])
}

func (r *REPL) read(ctx context.Context, args []string) error {
	path, err := parsePath(args, 1, commandHelp["read"])
	if err != nil {
		return err
	}
	node, err := r.tx().Read(r.store, path).Wait(ctx)
	if err != nil {
		return err
	}
	if node == nil {
		fmt.Fprintf(r.cfg.Out, "no data at %s\n", path)
		return nil
	}
	return output.NewFormatter(r.cfg.Format).Format(r.cfg.Out, node)
}

func (r *REPL) exists(ctx context.Context, args []string) error {
	path, err := parsePath(args, 1, commandHelp["exists"])
	if err != nil {
		return err
	}
	ok, err := r.tx().Exists(r.store, path).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.cfg.Out, ok)
	return nil
}

func (r *REPL) write(kind string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", commandHelp[kind])
	}
	path, err := domain.ParsePath(args[0])
	if err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("%s: a value cannot be written at the root", kind)
	}
	leaf := domain.NewLeaf(path.Last(), strings.Join(args[1:], " "))
	t := r.tx()
	if kind == "put" {
		err = t.Put(r.store, path, leaf)
	} else {
		err = t.Merge(r.store, path, leaf)
	}
	if err != nil {
		return err
	}
	r.pending++
	return nil
}

func (r *REPL) delete(args []string) error {
	path, err := parsePath(args, 1, commandHelp["delete"])
	if err != nil {
		return err
	}
	if err := r.tx().Delete(r.store, path); err != nil {
		return err
	}
	r.pending++
	return nil
}

func (r *REPL) commit(ctx context.Context) error {
	if r.current == nil {
		return fmt.Errorf("no open transaction")
	}
	t := r.current
	r.current = nil

	f, err := t.Commit()
	if err != nil {
		return err
	}
	status, err := f.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.cfg.Out, "%s %s (%d write(s))\n", t.Identifier(), status, r.pending)
	r.pending = 0
	return nil
}

func (r *REPL) cancel(ctx context.Context) error {
	if r.current == nil {
		return fmt.Errorf("no open transaction")
	}
	t := r.current
	r.current = nil
	r.pending = 0

	ok, err := t.Cancel().Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.cfg.Out, "%s cancelled: %v\n", t.Identifier(), ok)
	return nil
}

func (r *REPL) discard(ctx context.Context) {
	if r.current == nil {
		return
	}
	r.current.Cancel().Wait(ctx)
	r.current = nil
}
