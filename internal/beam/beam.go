// Package beam holds the hypothesis bookkeeping of beam search: live beams
// with back-references into the previous step's state rows, and the history
// of finished translations.
package beam

import (
	"slices"
)

// Hypothesis is one candidate continuation. PrevStateIndex is the row of the
// previous step's state batch this hypothesis extends; after state assembly,
// row i of the new batch belongs to the i-th hypothesis of the beam.
type Hypothesis struct {
	Word           int
	PrevStateIndex int
	Cost           float32
	Prev           *Hypothesis

	// Attention is the alignment row over source positions that produced
	// Word. It is nil unless alignments were requested.
	Attention []float32
}

// Root returns the sentinel hypothesis every sentence starts from.
func Root() *Hypothesis {
	return &Hypothesis{Word: -1}
}

// Len is the number of words emitted up to and including h.
func (h *Hypothesis) Len() int {
	n := 0
	for p := h; p != nil && p.Prev != nil; p = p.Prev {
		n++
	}
	return n
}

// Words returns the emitted words from the sentence start to h.
func (h *Hypothesis) Words() []int {
	var out []int
	for p := h; p != nil && p.Prev != nil; p = p.Prev {
		out = append(out, p.Word)
	}
	slices.Reverse(out)
	return out
}

// Alignment returns the attention rows from the sentence start to h. Rows are
// nil where no alignment was recorded.
func (h *Hypothesis) Alignment() [][]float32 {
	var out [][]float32
	for p := h; p != nil && p.Prev != nil; p = p.Prev {
		out = append(out, p.Attention)
	}
	slices.Reverse(out)
	return out
}

// Beam is the ordered set of live hypotheses of one step.
type Beam []*Hypothesis

// Words returns the word of every hypothesis, in beam order.
func (b Beam) Words() []int {
	out := make([]int, len(b))
	for i, h := range b {
		out[i] = h.Word
	}
	return out
}

// PrevStateIndices returns the back-reference of every hypothesis, in beam
// order.
func (b Beam) PrevStateIndices() []int {
	out := make([]int, len(b))
	for i, h := range b {
		out[i] = h.PrevStateIndex
	}
	return out
}
