package cluster

import (
	"fmt"
	"testing"
)

func TestRingEmpty(t *testing.T) {
	r := NewRing(0)
	if _, ok := r.Owner("dev1"); ok {
		t.Error("Owner() on empty ring should report false")
	}
}

func TestRingDeterministic(t *testing.T) {
	a, b := NewRing(64), NewRing(64)
	for _, id := range []string{"n1", "n2", "n3"} {
		a.Add(Member{ID: id, RPCAddr: "http://" + id})
	}
	for _, id := range []string{"n3", "n1", "n2"} {
		b.Add(Member{ID: id, RPCAddr: "http://" + id})
	}

	for i := 0; i < 100; i++ {
		dev := fmt.Sprintf("device-%d", i)
		ma, _ := a.Owner(dev)
		mb, _ := b.Owner(dev)
		if ma.ID != mb.ID {
			t.Fatalf("Owner(%s) = %s and %s, want equal across insertion orders", dev, ma.ID, mb.ID)
		}
	}
}

func TestRingBalance(t *testing.T) {
	r := NewRing(0)
	for _, id := range []string{"n1", "n2", "n3"} {
		r.Add(Member{ID: id})
	}
	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		m, _ := r.Owner(fmt.Sprintf("device-%d", i))
		counts[m.ID]++
	}
	for id, n := range counts {
		if n < 600 || n > 1400 {
			t.Errorf("member %s owns %d of 3000 devices, want roughly a third", id, n)
		}
	}
}

func TestRingRemoveMovesOnlyRemovedDevices(t *testing.T) {
	r := NewRing(0)
	for _, id := range []string{"n1", "n2", "n3"} {
		r.Add(Member{ID: id})
	}
	before := map[string]string{}
	for i := 0; i < 500; i++ {
		dev := fmt.Sprintf("device-%d", i)
		m, _ := r.Owner(dev)
		before[dev] = m.ID
	}

	v := r.Version()
	r.Remove("n2")
	if r.Version() == v {
		t.Error("Version() unchanged after Remove")
	}

	for dev, owner := range before {
		m, _ := r.Owner(dev)
		if m.ID == "n2" {
			t.Fatalf("Owner(%s) = removed member", dev)
		}
		if owner != "n2" && m.ID != owner {
			t.Errorf("Owner(%s) moved from %s to %s", dev, owner, m.ID)
		}
	}
}

func TestRingOnChange(t *testing.T) {
	r := NewRing(8)
	calls := 0
	r.OnChange(func() { calls++ })

	r.Add(Member{ID: "n1", RPCAddr: "http://a"})
	r.Add(Member{ID: "n1", RPCAddr: "http://b"})
	r.Remove("n1")
	r.Remove("n1")

	if calls != 3 {
		t.Errorf("OnChange calls = %d, want 3", calls)
	}
}

func TestRingMemberUpdate(t *testing.T) {
	r := NewRing(8)
	r.Add(Member{ID: "n1", RPCAddr: "http://old"})
	r.Add(Member{ID: "n1", RPCAddr: "http://new"})

	m, ok := r.Member("n1")
	if !ok || m.RPCAddr != "http://new" {
		t.Errorf("Member(n1) = %+v, want RPCAddr http://new", m)
	}
	if n := len(r.Members()); n != 1 {
		t.Errorf("len(Members()) = %d, want 1", n)
	}
}
