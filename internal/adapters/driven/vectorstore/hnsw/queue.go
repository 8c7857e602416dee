package hnsw

import "container/heap"

var _ heap.Interface = (*queue)(nil)

// item is a graph node and its distance to the current query.
type item struct {
	node uint32
	dist float32
}

// queue is a binary heap of items. With max set the farthest item is on
// top, otherwise the nearest.
type queue struct {
	max   bool
	items []item
}

func newQueue(maxHeap bool, capacity int) *queue {
	return &queue{max: maxHeap, items: make([]item, 0, capacity)}
}

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool {
	if q.max {
		return q.items[i].dist > q.items[j].dist
	}
	return q.items[i].dist < q.items[j].dist
}

func (q *queue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *queue) Push(x any) { q.items = append(q.items, x.(item)) }

func (q *queue) Pop() any {
	n := len(q.items)
	it := q.items[n-1]
	q.items = q.items[:n-1]
	return it
}

func (q *queue) push(it item) { heap.Push(q, it) }

func (q *queue) pop() item { return heap.Pop(q).(item) }

func (q *queue) top() item { return q.items[0] }

// sorted drains the queue and returns its items nearest first.
func (q *queue) sorted() []item {
	out := make([]item, q.Len())
	if q.max {
		for i := len(out) - 1; i >= 0; i-- {
			out[i] = q.pop()
		}
		return out
	}
	for i := range out {
		out[i] = q.pop()
	}
	return out
}
