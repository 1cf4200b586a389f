package domain

import "testing"

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		segs    int
		wantErr bool
	}{
		{"", "/", 0, false},
		{"/", "/", 0, false},
		{"/interfaces/interface", "/interfaces/interface", 2, false},
		{"interfaces/eth0/", "/interfaces/eth0", 2, false},
		{"/a//b", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePath(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.String() != tt.want {
				t.Errorf("String() = %q, want %q", p.String(), tt.want)
			}
			if len(p) != tt.segs {
				t.Errorf("len = %d, want %d", len(p), tt.segs)
			}
		})
	}
}

func TestPath_Relations(t *testing.T) {
	p := MustParsePath("/a/b/c")

	if !p.HasPrefix(MustParsePath("/a/b")) {
		t.Error("/a/b/c should have prefix /a/b")
	}
	if !p.HasPrefix(RootPath) {
		t.Error("every path has the root as prefix")
	}
	if p.HasPrefix(MustParsePath("/a/bb")) {
		t.Error("/a/b/c should not have prefix /a/bb")
	}
	if got := p.Parent().String(); got != "/a/b" {
		t.Errorf("Parent() = %q, want /a/b", got)
	}
	if got := p.Last(); got != "c" {
		t.Errorf("Last() = %q, want c", got)
	}
	if !RootPath.Parent().IsRoot() {
		t.Error("parent of root should be root")
	}

	// Child must not alias the parent's backing array.
	parent := p.Parent()
	x := parent.Child("x")
	y := parent.Child("y")
	if x.Last() != "x" || y.Last() != "y" {
		t.Errorf("Child() aliasing: x=%v y=%v", x, y)
	}
	if !p.Equal(MustParsePath("a/b/c")) {
		t.Error("Equal should ignore surrounding slashes")
	}
}
