package loader

import "testing"

func TestBuildPlanCoversTotalSize(t *testing.T) {
	req := Request{TotalSize: 250, ChunkSize: 100, Priority: PriorityMedium}
	windows := buildPlan(req, true)
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	sum := 0
	for _, w := range windows {
		sum += w.Limit
	}
	if sum != 250 {
		t.Fatalf("expected windows to cover 250 items, got %d", sum)
	}
}

func TestBuildPlanEarlyWindowsScoreHigher(t *testing.T) {
	req := Request{TotalSize: 1000, ChunkSize: 100, Priority: PriorityLow}
	windows := buildPlan(req, true)
	if windows[0].Offset >= 3*req.ChunkSize {
		t.Fatalf("expected an early window to sort first, got offset %d", windows[0].Offset)
	}
}

func TestBuildPlanStableForEqualScores(t *testing.T) {
	req := Request{TotalSize: 1000, ChunkSize: 100, Priority: PriorityCritical}
	windows := buildPlan(req, true)
	for i := 1; i < len(windows); i++ {
		if windows[i].score > windows[i-1].score {
			t.Fatalf("windows not sorted by descending score at %d", i)
		}
		if windows[i].score == windows[i-1].score && windows[i].Offset < windows[i-1].Offset {
			t.Fatalf("equal-score windows lost offset order at %d", i)
		}
	}
}

func TestBuildPlanSkipsSortWhenPrioritizationDisabled(t *testing.T) {
	req := Request{TotalSize: 1000, ChunkSize: 100, Priority: PriorityLow}
	windows := buildPlan(req, false)
	for i, w := range windows {
		if w.Offset != i*req.ChunkSize {
			t.Fatalf("expected plain offset order at index %d, got offset %d", i, w.Offset)
		}
	}
}

func TestTotalChunksRoundsUp(t *testing.T) {
	if got := totalChunks(Request{TotalSize: 250, ChunkSize: 100}); got != 3 {
		t.Fatalf("expected 3 chunks, got %d", got)
	}
	if got := totalChunks(Request{TotalSize: 200, ChunkSize: 100}); got != 2 {
		t.Fatalf("expected 2 chunks, got %d", got)
	}
}
