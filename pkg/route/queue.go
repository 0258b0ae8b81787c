package route

import "container/heap"

// item is an open-set entry. seq orders items pushed with equal f and h.
type item struct {
	cell int
	f, h float64
	seq  int
}

type openSet []item

func (q openSet) Len() int { return len(q) }

func (q openSet) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].h != q[j].h {
		return q[i].h < q[j].h
	}
	return q[i].seq < q[j].seq
}

func (q openSet) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *openSet) Push(x any) { *q = append(*q, x.(item)) }

func (q *openSet) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// queue wraps openSet with a monotone insertion counter.
type queue struct {
	set openSet
	seq int
}

func (q *queue) push(cell int, f, h float64) {
	heap.Push(&q.set, item{cell: cell, f: f, h: h, seq: q.seq})
	q.seq++
}

func (q *queue) pop() item { return heap.Pop(&q.set).(item) }

func (q *queue) empty() bool { return len(q.set) == 0 }
