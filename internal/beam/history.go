package beam

import (
	"cmp"
	"slices"
)

// Result is one finished translation.
type Result struct {
	// Words excludes the end-of-sentence token.
	Words []int
	// Score is the cumulative log-probability, divided by the output length
	// when normalization is on.
	Score float32
	// Cost is the raw cumulative log-probability.
	Cost float32
	// Alignment holds one attention row per entry of Words, or is nil.
	Alignment [][]float32
}

// History collects the hypotheses that left the beam.
type History struct {
	eos      int
	finished []*Hypothesis
}

func NewHistory(eos int) *History {
	return &History{eos: eos}
}

// Add records a finished hypothesis.
func (h *History) Add(hyp *Hypothesis) {
	h.finished = append(h.finished, hyp)
}

func (h *History) Len() int {
	return len(h.finished)
}

// NBest returns up to n results ordered from best to worst. With normalize
// set, scores are divided by the number of emitted words (end of sentence
// included). Ties keep insertion order.
func (h *History) NBest(n int, normalize bool) []Result {
	out := make([]Result, 0, len(h.finished))
	for _, hyp := range h.finished {
		words := hyp.Words()
		align := hyp.Alignment()
		score := hyp.Cost
		if normalize && len(words) > 0 {
			score /= float32(len(words))
		}
		if k := len(words); k > 0 && words[k-1] == h.eos {
			words = words[:k-1]
			align = align[:k-1]
		}
		if !hasAlignment(align) {
			align = nil
		}
		out = append(out, Result{Words: words, Score: score, Cost: hyp.Cost, Alignment: align})
	}
	slices.SortStableFunc(out, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func hasAlignment(rows [][]float32) bool {
	for _, r := range rows {
		if r != nil {
			return true
		}
	}
	return false
}
