package datastore

import (
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/devmesh-go/internal/core/domain"
)

func existsTxn(txn *badger.Txn, device string, store domain.Store, path domain.Path) (bool, error) {
	if path.IsRoot() {
		return hasDescendants(txn, device, store, path), nil
	}
	_, err := txn.Get(nodeKey(device, store, path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func hasDescendants(txn *badger.Txn, device string, store domain.Store, path domain.Path) bool {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = descendantPrefix(device, store, path)
	it := txn.NewIterator(opts)
	defer it.Close()
	it.Rewind()
	return it.Valid()
}

// readTxn rebuilds the subtree at path. The root of a store has no record
// of its own and exists while anything is stored below it.
func readTxn(txn *badger.Txn, device string, store domain.Store, path domain.Path) (*domain.Node, error) {
	root := &domain.Node{Name: path.Last()}
	if !path.IsRoot() {
		item, err := txn.Get(nodeKey(device, store, path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		if root.Value, err = decodeValue(raw); err != nil {
			return nil, err
		}
	}

	prefix := descendantPrefix(device, store, path)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	index := map[string]*domain.Node{"": root}
	found := false
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		rel := relativePath(prefix, item.Key())
		parent, ok := index[strings.Join(rel.Parent(), "\x00")]
		if !ok {
			continue
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		value, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		n := &domain.Node{Name: rel.Last(), Value: value}
		parent.Children = append(parent.Children, n)
		index[strings.Join(rel, "\x00")] = n
		found = true
	}

	if path.IsRoot() && !found {
		return nil, nil
	}
	return root, nil
}

func applyTxn(txn *badger.Txn, device string, op Op) error {
	if err := op.Path.Validate(); err != nil {
		return err
	}
	switch op.Kind {
	case OpPut:
		if err := checkData(op); err != nil {
			return err
		}
		if err := deleteSubtree(txn, device, op.Store, op.Path); err != nil {
			return err
		}
		return writeSubtree(txn, device, op, false)
	case OpMerge:
		if err := checkData(op); err != nil {
			return err
		}
		return writeSubtree(txn, device, op, true)
	case OpDelete:
		return deleteSubtree(txn, device, op.Store, op.Path)
	default:
		return domain.ErrInvalidArgument.WithDetails("unknown operation " + op.Kind.String())
	}
}

func checkData(op Op) error {
	if op.Data == nil {
		return domain.ErrMissingArgument.WithDetails(op.Kind.String() + " requires data")
	}
	if !op.Path.IsRoot() && op.Data.Name != op.Path.Last() {
		return domain.ErrInvalidArgument.WithDetails(
			"node name " + op.Data.Name + " does not match path " + op.Path.String())
	}
	return nil
}

// writeSubtree stores op.Data and creates missing ancestors as containers.
// With merge set, existing values of containers in the data are kept.
func writeSubtree(txn *badger.Txn, device string, op Op, merge bool) error {
	for p := op.Path.Parent(); !p.IsRoot(); p = p.Parent() {
		if err := ensureContainer(txn, device, op.Store, p); err != nil {
			return err
		}
	}

	var werr error
	op.Data.Walk(func(rel domain.Path, n *domain.Node) {
		if werr != nil {
			return
		}
		abs := append(append(domain.Path{}, op.Path...), rel...)
		if abs.IsRoot() {
			return
		}
		if err := abs.Validate(); err != nil {
			werr = err
			return
		}
		if merge && !n.IsLeaf() {
			werr = ensureContainer(txn, device, op.Store, abs)
			return
		}
		werr = setValue(txn, nodeKey(device, op.Store, abs), n.Value)
	})
	return werr
}

func ensureContainer(txn *badger.Txn, device string, store domain.Store, path domain.Path) error {
	key := nodeKey(device, store, path)
	_, err := txn.Get(key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return setValue(txn, key, "")
}

func setValue(txn *badger.Txn, key []byte, value string) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

func deleteSubtree(txn *badger.Txn, device string, store domain.Store, path domain.Path) error {
	var keys [][]byte
	if !path.IsRoot() {
		keys = append(keys, nodeKey(device, store, path))
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = descendantPrefix(device, store, path)
	it := txn.NewIterator(opts)
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
