package util

import "testing"

// TestDeadlineOrder tests that entries pop in deadline order
func TestDeadlineOrder(t *testing.T) {
	h := NewDeadlineHeap()

	h.Add("c", 300)
	h.Add("a", 100)
	h.Add("b", 200)

	if h.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", h.Len())
	}

	// nothing due before the earliest deadline
	if id, ok := h.PopDue(99); ok {
		t.Errorf("Expected nothing due at 99, got %q", id)
	}

	for i, want := range []string{"a", "b", "c"} {
		id, ok := h.PopDue(300)
		if !ok {
			t.Fatalf("Expected entry %d to be due", i)
		}
		if id != want {
			t.Errorf("Expected %q, got %q", want, id)
		}
	}

	if h.Len() != 0 {
		t.Errorf("Expected empty heap, got %d entries", h.Len())
	}
}

// TestAddUpdatesDeadline tests that re-adding a known id moves its deadline
func TestAddUpdatesDeadline(t *testing.T) {
	h := NewDeadlineHeap()

	h.Add("a", 100)
	h.Add("b", 200)
	h.Add("a", 300) // push back

	id, ok := h.PopDue(1000)
	if !ok || id != "b" {
		t.Errorf("Expected %q first after update, got %q (ok=%v)", "b", id, ok)
	}
	id, ok = h.PopDue(1000)
	if !ok || id != "a" {
		t.Errorf("Expected %q second, got %q (ok=%v)", "a", id, ok)
	}
}

func TestRemove(t *testing.T) {
	h := NewDeadlineHeap()

	h.Add("a", 100)
	h.Add("b", 200)

	if !h.Contains("a") {
		t.Error("Heap should contain a")
	}
	if !h.Remove("a") {
		t.Error("Remove of known id should succeed")
	}
	if h.Remove("a") {
		t.Error("Remove of unknown id should fail")
	}
	if h.Contains("a") {
		t.Error("Heap should no longer contain a")
	}

	// the other entry is untouched
	if id, ok := h.PopDue(1000); !ok || id != "b" {
		t.Errorf("Expected %q, got %q (ok=%v)", "b", id, ok)
	}
}
