package datastore

import (
	"bytes"

	"github.com/yndnr/devmesh-go/internal/core/domain"
)

const sep = 0x00

// nodeKey returns the key of the node at path.
func nodeKey(device string, store domain.Store, path domain.Path) []byte {
	var b bytes.Buffer
	b.WriteString(device)
	b.WriteByte(sep)
	b.WriteString(store.String())
	b.WriteByte(sep)
	for i, seg := range path {
		if i > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(seg)
	}
	return b.Bytes()
}

// descendantPrefix returns the prefix shared by every key strictly below path.
func descendantPrefix(device string, store domain.Store, path domain.Path) []byte {
	k := nodeKey(device, store, path)
	if path.IsRoot() {
		return k
	}
	return append(k, sep)
}

// relativePath splits the part of key below prefix into path segments.
func relativePath(prefix, key []byte) domain.Path {
	rest := key[len(prefix):]
	parts := bytes.Split(rest, []byte{sep})
	out := make(domain.Path, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}
