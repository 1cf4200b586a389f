package domain

import "testing"

func sampleTree() *Node {
	return NewContainer("interfaces",
		NewContainer("eth0",
			NewLeaf("mtu", "1500"),
			NewLeaf("enabled", "true"),
		),
		NewContainer("lo"),
	)
}

func TestNode_Equal(t *testing.T) {
	a := sampleTree()
	b := NewContainer("interfaces",
		NewContainer("lo"),
		NewContainer("eth0",
			NewLeaf("enabled", "true"),
			NewLeaf("mtu", "1500"),
		),
	)
	if !a.Equal(b) {
		t.Error("Equal should ignore child order")
	}

	b.Find(MustParsePath("eth0/mtu")).Value = "9000"
	if a.Equal(b) {
		t.Error("Equal should detect value change")
	}

	var nilNode *Node
	if !nilNode.Equal(nil) {
		t.Error("nil should equal nil")
	}
	if a.Equal(nil) {
		t.Error("non-nil should not equal nil")
	}
}

func TestNode_CloneIsDeep(t *testing.T) {
	a := sampleTree()
	c := a.Clone()
	c.Find(MustParsePath("eth0/mtu")).Value = "1"
	if a.Find(MustParsePath("eth0/mtu")).Value != "1500" {
		t.Error("Clone should not share children")
	}
}

func TestNode_Walk(t *testing.T) {
	var visited []string
	sampleTree().Walk(func(rel Path, n *Node) {
		visited = append(visited, rel.String())
	})

	want := []string{"/", "/eth0", "/eth0/mtu", "/eth0/enabled", "/lo"}
	if len(visited) != len(want) {
		t.Fatalf("Walk visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestNode_String(t *testing.T) {
	n := sampleTree()
	n.Sort()
	want := "interfaces{eth0{enabled=true,mtu=1500},lo{}}"
	if got := n.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDeviceID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      DeviceID
		wantErr bool
	}{
		{"valid", DeviceID{Name: "dev1", Address: "localhost:17830"}, false},
		{"empty name", DeviceID{}, true},
		{"slash", DeviceID{Name: "a/b"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if got := (DeviceID{Name: "dev1", Address: "localhost:17830"}).String(); got != "dev1@localhost:17830" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewTxID(t *testing.T) {
	a, b := NewTxID(), NewTxID()
	if a == b {
		t.Error("NewTxID should generate unique ids")
	}
	if !a.Valid() {
		t.Errorf("NewTxID() = %q is not valid", a)
	}
	if TxID("dmtx-nope").Valid() {
		t.Error("malformed id should not be valid")
	}
}

func TestParseStore(t *testing.T) {
	for in, want := range map[string]Store{
		"config":        StoreConfiguration,
		"CONFIGURATION": StoreConfiguration,
		"oper":          StoreOperational,
		"operational":   StoreOperational,
	} {
		got, err := ParseStore(in)
		if err != nil || got != want {
			t.Errorf("ParseStore(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseStore("running"); err == nil {
		t.Error("ParseStore should reject unknown stores")
	}
}
