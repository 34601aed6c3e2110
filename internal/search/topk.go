package search

import (
	"container/heap"
	"slices"

	"github.com/samcharles93/nmtdecode/internal/beam"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

type candidate struct {
	row, col int
	cost     float32
}

// worse orders candidates by cost, breaking ties towards the later position
// so that earlier rows and columns win.
func worse(a, b candidate) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.row != b.row {
		return a.row > b.row
	}
	return a.col > b.col
}

// minHeap keeps the k best candidates seen so far with the worst on top.
type minHeap []candidate

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topK returns the k best extensions of live, best first. The cost of an
// extension is the parent's cost plus the log-probability of the word.
func topK(logProbs *tensor.Mat, live beam.Beam, k int) []candidate {
	h := make(minHeap, 0, k)
	for row, hyp := range live {
		for col, lp := range logProbs.Row(row) {
			c := candidate{row: row, col: col, cost: hyp.Cost + lp}
			if len(h) < k {
				heap.Push(&h, c)
				continue
			}
			if worse(h[0], c) {
				h[0] = c
				heap.Fix(&h, 0)
			}
		}
	}
	out := []candidate(h)
	slices.SortFunc(out, func(a, b candidate) int {
		switch {
		case worse(b, a):
			return -1
		case worse(a, b):
			return 1
		}
		return 0
	})
	return out
}
