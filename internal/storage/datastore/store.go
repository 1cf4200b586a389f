package datastore

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/yndnr/devmesh-go/internal/core/domain"
	"github.com/yndnr/devmesh-go/internal/telemetry/metric"
)

// Config configures the Badger database.
type Config struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory.
	InMemory bool

	// GCInterval is the interval between value log GC runs. Zero disables GC.
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// OpKind is the kind of a staged write.
type OpKind int

const (
	OpPut OpKind = iota + 1
	OpMerge
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpMerge:
		return "merge"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one write applied by Apply.
type Op struct {
	Kind  OpKind
	Store domain.Store
	Path  domain.Path
	Data  *domain.Node
}

// Store holds the data trees of every device mounted on this member.
type Store struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens the database.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, fmt.Errorf("datastore: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("datastore: open db: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if cfg.InMemory || cfg.GCInterval <= 0 {
		close(s.doneCh)
	} else {
		go s.gcLoop()
	}

	logger.Info("datastore opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return s, nil
}

// Read returns the subtree at path, or nil if nothing is stored there.
func (s *Store) Read(device string, store domain.Store, path domain.Path) (*domain.Node, error) {
	var out *domain.Node
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = readTxn(txn, device, store, path)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

// Exists reports whether a node is stored at path.
func (s *Store) Exists(device string, store domain.Store, path domain.Path) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = existsTxn(txn, device, store, path)
		return err
	})
	if err != nil {
		return false, storageError(err)
	}
	return found, nil
}

// Apply performs ops in order in one transaction: either all take effect or none.
func (s *Store) Apply(device string, ops []Op) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			if err := applyTxn(txn, device, op); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageError(err)
	}
	return nil
}

// View runs fn against the committed data with ops applied on top.
// The ops are never committed.
func (s *Store) View(device string, ops []Op, fn func(Reader) error) error {
	txn := s.db.NewTransaction(len(ops) > 0)
	defer txn.Discard()

	for _, op := range ops {
		if err := applyTxn(txn, device, op); err != nil {
			return storageError(err)
		}
	}
	return fn(Reader{txn: txn, device: device})
}

// Reader reads within a View.
type Reader struct {
	txn    *badger.Txn
	device string
}

// Read is Store.Read inside the view.
func (r Reader) Read(store domain.Store, path domain.Path) (*domain.Node, error) {
	n, err := readTxn(r.txn, r.device, store, path)
	if err != nil {
		return nil, storageError(err)
	}
	return n, nil
}

// Exists is Store.Exists inside the view.
func (r Reader) Exists(store domain.Store, path domain.Path) (bool, error) {
	ok, err := existsTxn(r.txn, r.device, store, path)
	if err != nil {
		return false, storageError(err)
	}
	return ok, nil
}

// RegisterMetrics exposes database size gauges on reg.
func (s *Store) RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "datastore",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes.",
		}, func() float64 {
			lsm, _ := s.db.Size()
			return float64(lsm)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "datastore",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes.",
		}, func() float64 {
			_, vlog := s.db.Size()
			return float64(vlog)
		}),
	)
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.doneCh
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("datastore: close db: %w", err)
	}
	s.logger.Info("datastore closed")
	return nil
}

func (s *Store) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runs := 0
			for {
				if err := s.db.RunValueLogGC(s.cfg.GCThreshold); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						s.logger.Error("value log gc failed", "error", err)
					}
					break
				}
				runs++
			}
			s.logger.Debug("value log gc completed", "rewrites", runs)
		case <-s.stopCh:
			return
		}
	}
}

func storageError(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}

func encodeValue(v string) ([]byte, error) {
	return proto.Marshal(wrapperspb.String(v))
}

func decodeValue(b []byte) (string, error) {
	var sv wrapperspb.StringValue
	if err := proto.Unmarshal(b, &sv); err != nil {
		return "", err
	}
	return sv.GetValue(), nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
