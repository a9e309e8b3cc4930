package loader

import "sort"

// chunkWindow is one [offset, offset+limit) slice of a Request plus its
// priority score, used to order execution (spec §4.4 "plan construction").
type chunkWindow struct {
	Offset int
	Limit  int
	score  int
}

// buildPlan divides [0, req.TotalSize) into req.ChunkSize windows and
// assigns each a priority score: a base weight by req.Priority
// (critical=4, high=3, medium=2, low=1), +1 if the window is one of the
// first three chunks (offset < 3*chunk_size), favoring early pages of a
// result set regardless of the request's own priority. When
// prioritize is true the windows are then stable-sorted by score
// descending so equal-priority windows keep their natural offset
// order; when false (spec §6 `enable_prioritization` off) the plan
// keeps plain offset order.
func buildPlan(req Request, prioritize bool) []chunkWindow {
	if req.ChunkSize <= 0 || req.TotalSize <= 0 {
		return nil
	}
	base := req.Priority.rank()
	if base == 0 {
		base = PriorityMedium.rank()
	}
	earlyCutoff := 3 * req.ChunkSize

	var windows []chunkWindow
	for offset := 0; offset < req.TotalSize; offset += req.ChunkSize {
		limit := req.ChunkSize
		if offset+limit > req.TotalSize {
			limit = req.TotalSize - offset
		}
		score := base
		if offset < earlyCutoff {
			score++
		}
		windows = append(windows, chunkWindow{Offset: offset, Limit: limit, score: score})
	}

	if prioritize {
		sort.SliceStable(windows, func(i, j int) bool { return windows[i].score > windows[j].score })
	}
	return windows
}

func totalChunks(req Request) int {
	if req.ChunkSize <= 0 {
		return 0
	}
	n := req.TotalSize / req.ChunkSize
	if req.TotalSize%req.ChunkSize != 0 {
		n++
	}
	return n
}
