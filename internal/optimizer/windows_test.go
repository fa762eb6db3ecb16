package optimizer

import "testing"

func windowStop(id, start, end string) Location {
	return Location{ID: id, TimeWindow: &TimeWindow{Start: start, End: end}}
}

func TestResequenceOrdersWindows(t *testing.T) {
	route := []Location{
		windowStop("late", "14:00", "16:00"),
		{ID: "free1"},
		windowStop("early", "08:30", "09:30"),
		{ID: "free2"},
		windowStop("mid", "11:00", "12:00"),
	}
	out := resequenceByWindows(route)
	if len(out) != len(route) {
		t.Fatalf("length changed: %d vs %d", len(out), len(route))
	}
	// Windowed stops must appear in ascending window-start order.
	var windowed []string
	seen := map[string]int{}
	for _, s := range out {
		seen[s.ID]++
		if s.TimeWindow != nil {
			windowed = append(windowed, s.ID)
		}
	}
	wantWindowed := []string{"early", "mid", "late"}
	for i := range wantWindowed {
		if windowed[i] != wantWindowed[i] {
			t.Fatalf("windowed order %v, want %v", windowed, wantWindowed)
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("stop %s appears %d times", id, n)
		}
	}
}

func TestResequenceInterleavesAlternately(t *testing.T) {
	route := []Location{
		{ID: "f1"},
		windowStop("w2", "12:00", "13:00"),
		{ID: "f2"},
		windowStop("w1", "09:00", "10:00"),
	}
	out := resequenceByWindows(route)
	assertOrder(t, out, "w1", "f1", "w2", "f2")
}

func TestResequenceDeterministic(t *testing.T) {
	route := []Location{
		{ID: "f1"}, {ID: "f2"},
		windowStop("w1", "10:00", "11:00"),
		windowStop("w2", "08:00", "09:00"),
	}
	first := resequenceByWindows(route)
	for i := 0; i < 10; i++ {
		again := resequenceByWindows(route)
		for j := range first {
			if again[j].ID != first[j].ID {
				t.Fatalf("run %d diverged: %v vs %v", i, ids(again), ids(first))
			}
		}
	}
}

func TestResequenceNoWindowsPassthrough(t *testing.T) {
	route := []Location{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out := resequenceByWindows(route)
	assertOrder(t, out, "a", "b", "c")
}

func TestResequenceMoreWindowedThanFree(t *testing.T) {
	route := []Location{
		windowStop("w3", "15:00", "16:00"),
		windowStop("w1", "08:00", "09:00"),
		{ID: "f1"},
		windowStop("w2", "11:00", "12:00"),
	}
	out := resequenceByWindows(route)
	assertOrder(t, out, "w1", "f1", "w2", "w3")
}
