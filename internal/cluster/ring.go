package cluster

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultVirtualNodes is the number of ring positions per member.
const DefaultVirtualNodes = 128

// Member is a cluster member as seen by the ring.
type Member struct {
	ID      string `json:"id"`
	RPCAddr string `json:"rpc_addr"`
}

// Ring maps device names to members by consistent hashing.
type Ring struct {
	mu       sync.RWMutex
	vnodes   int
	members  map[string]Member
	owners   map[uint64]string
	sorted   []uint64
	version  uint64
	onChange []func()
}

// NewRing creates an empty ring. vnodes <= 0 selects DefaultVirtualNodes.
func NewRing(vnodes int) *Ring {
	if vnodes <= 0 {
		vnodes = DefaultVirtualNodes
	}
	return &Ring{
		vnodes:  vnodes,
		members: make(map[string]Member),
		owners:  make(map[uint64]string),
	}
}

// Add inserts or updates a member.
func (r *Ring) Add(m Member) {
	r.mu.Lock()
	_, existed := r.members[m.ID]
	r.members[m.ID] = m
	if !existed {
		for i := 0; i < r.vnodes; i++ {
			r.owners[hashVirtualNode(m.ID, i)] = m.ID
		}
		r.rebuild()
	}
	r.version++
	cbs := r.onChange
	r.mu.Unlock()

	for _, fn := range cbs {
		fn()
	}
}

// Remove drops a member.
func (r *Ring) Remove(id string) {
	r.mu.Lock()
	if _, ok := r.members[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.members, id)
	for i := 0; i < r.vnodes; i++ {
		delete(r.owners, hashVirtualNode(id, i))
	}
	r.rebuild()
	r.version++
	cbs := r.onChange
	r.mu.Unlock()

	for _, fn := range cbs {
		fn()
	}
}

// OnChange registers fn to run after every membership change.
func (r *Ring) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Owner returns the member owning device.
func (r *Ring) Owner(device string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sorted) == 0 {
		return Member{}, false
	}
	h := murmur3.Sum64([]byte(device))
	idx := sort.Search(len(r.sorted), func(i int) bool {
		return r.sorted[i] >= h
	})
	if idx == len(r.sorted) {
		idx = 0
	}
	return r.members[r.owners[r.sorted[idx]]], true
}

// Member returns the member with the given id.
func (r *Ring) Member(id string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	return m, ok
}

// Members returns the members sorted by id.
func (r *Ring) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Version increases with every change.
func (r *Ring) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *Ring) rebuild() {
	r.sorted = r.sorted[:0]
	for h := range r.owners {
		r.sorted = append(r.sorted, h)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i] < r.sorted[j] })
}

func hashVirtualNode(id string, i int) uint64 {
	h := murmur3.New64()
	h.Write([]byte(id))
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(i))
	h.Write(idx[:])
	return h.Sum64()
}
