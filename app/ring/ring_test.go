package ring

import (
	"testing"
)

func TestAppendAndSnapshot(t *testing.T) {
	b := New[int](8)
	for i := 0; i < 5; i++ {
		b.Append(i)
	}

	snap := b.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("Expected 5 values, got %d", len(snap))
	}
	for i, v := range snap {
		if v != i {
			t.Errorf("snap[%d]=%d, want %d", i, v, i)
		}
	}
}

func TestSnapshotEmpty(t *testing.T) {
	b := New[string](3)

	snap := b.Snapshot()
	if len(snap) != 0 {
		t.Errorf("Expected empty snapshot, got %v", snap)
	}
	if b.Contains("") {
		t.Error("Empty buffer should not contain the zero value")
	}
}

func TestWrapAround(t *testing.T) {
	b := New[int](4)
	for i := 0; i < 10; i++ {
		b.Append(i)
	}

	snap := b.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("Expected 4 values, got %d", len(snap))
	}
	// 6, 7, 8, 9 survive
	for i, v := range snap {
		if v != i+6 {
			t.Errorf("snap[%d]=%d, want %d", i, v, i+6)
		}
	}
}

func TestSnapshotKeepsLastNForAllCapacities(t *testing.T) {
	for capacity := 1; capacity <= 9; capacity++ {
		for appends := capacity + 1; appends <= 3*capacity+2; appends++ {
			b := New[int](capacity)
			for i := 0; i < appends; i++ {
				b.Append(i)
			}

			snap := b.Snapshot()
			if len(snap) != capacity {
				t.Fatalf("cap=%d appends=%d: expected %d values, got %d", capacity, appends, capacity, len(snap))
			}
			for i, v := range snap {
				want := appends - capacity + i
				if v != want {
					t.Errorf("cap=%d appends=%d: snap[%d]=%d, want %d", capacity, appends, i, v, want)
				}
			}
		}
	}
}

func TestCapacityOne(t *testing.T) {
	b := New[string](1)
	b.Append("a")
	b.Append("b")

	snap := b.Snapshot()
	if len(snap) != 1 || snap[0] != "b" {
		t.Errorf("Expected [b], got %v", snap)
	}
	if b.Contains("a") {
		t.Error("Overwritten value should no longer be contained")
	}
	if !b.Contains("b") {
		t.Error("Expected buffer to contain b")
	}
}

func TestContainsAfterWrap(t *testing.T) {
	b := New[string](3)
	for _, v := range []string{"a", "b", "c", "d"} {
		b.Append(v)
	}

	if b.Contains("a") {
		t.Error("Expected a to be evicted")
	}
	for _, v := range []string{"b", "c", "d"} {
		if !b.Contains(v) {
			t.Errorf("Expected buffer to contain %s", v)
		}
	}
	if b.Len() != 3 || b.Cap() != 3 {
		t.Errorf("Expected len 3 cap 3, got len %d cap %d", b.Len(), b.Cap())
	}
}

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for zero capacity")
		}
	}()
	New[int](0)
}
