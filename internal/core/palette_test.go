package core

import "testing"

func TestColorForCycles(t *testing.T) {
	n := len(Palette)
	for i := -2 * n; i < 3*n; i++ {
		if ColorFor(i) != ColorFor(i+n) {
			t.Fatalf("ColorFor(%d) != ColorFor(%d)", i, i+n)
		}
	}
	if ColorFor(0) != "red" || ColorFor(13) != "pink" || ColorFor(14) != "red" {
		t.Fatal("unexpected palette order")
	}
	if got := Colors(3); got[0] != "red" || got[1] != "blue" || got[2] != "yellow" {
		t.Fatalf("got %v", got)
	}
}
