package instance

import "testing"

func TestIDStable(t *testing.T) {
	a, b := ID(), ID()
	if a == "" || a != b {
		t.Fatalf("ids %q, %q", a, b)
	}
	if len(a) > 18 {
		t.Fatalf("id=%q too long", a)
	}
}
