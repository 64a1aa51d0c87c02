package outbox

import "sort"

// retryHeap is a container/heap min-heap ordered by NextRetry, then FailedAt.
type retryHeap []*Entry

func (h retryHeap) Len() int { return len(h) }

func (h retryHeap) Less(i, j int) bool {
	if h[i].NextRetry.Equal(h[j].NextRetry) {
		return h[i].FailedAt.Before(h[j].FailedAt)
	}
	return h[i].NextRetry.Before(h[j].NextRetry)
}

func (h retryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *retryHeap) Push(x any) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *retryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

func sortByNextRetry(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].NextRetry.Before(entries[j].NextRetry)
	})
}
