package scheduler

import (
	"container/heap"
	"time"
)

// ticketItem is one channel's position in the scheduling heap.
type ticketItem struct {
	channelID string
	dueAt     time.Time
	index     int
}

// ticketHeap is a min-heap ordered by dueAt, implementing
// container/heap.Interface. It backs the scheduler's single owned
// data structure (§5: "Heap: owned exclusively by scheduler worker").
type ticketHeap []*ticketItem

func (h ticketHeap) Len() int { return len(h) }

func (h ticketHeap) Less(i, j int) bool { return h[i].dueAt.Before(h[j].dueAt) }

func (h ticketHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *ticketHeap) Push(x any) {
	item := x.(*ticketItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *ticketHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*ticketHeap)(nil)
