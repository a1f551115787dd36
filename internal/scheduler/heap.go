package scheduler

import "container/heap"

// taskHeap is a binary min-heap of *ScheduledTask ordered by
// (NextCallAt, seq), so entries due at the same instant surface in
// insertion order without requiring an in-place decrease-key.
type taskHeap []*ScheduledTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].NextCallAt.Equal(h[j].NextCallAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].NextCallAt.Before(h[j].NextCallAt)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*ScheduledTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

var (
	_ heap.Interface = (*taskHeap)(nil)
)
