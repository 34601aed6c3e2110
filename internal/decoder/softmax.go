package decoder

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

var (
	// ErrFilterID is returned by Filter for an empty, duplicated or
	// out-of-vocabulary id list.
	ErrFilterID = errors.New("invalid vocabulary filter")
	// ErrOutsideFilter is returned when a prediction index falls outside the
	// active vocabulary restriction.
	ErrOutsideFilter = errors.New("index outside active vocabulary filter")
)

// Softmax is the output layer: a tanh readout over the new state, the
// previous embedding and the pooled context, projected onto the
// vocabulary (or the filtered subset of it).
type Softmax struct {
	w *model.SoftmaxWeights

	filterIDs []int
	filteredW tensor.Mat
	filteredB tensor.Mat

	t1, t2, t3 tensor.Mat
}

func NewSoftmax(w *model.SoftmaxWeights) *Softmax {
	return &Softmax{w: w}
}

// GetProbs writes log-probabilities into probs, one row per hypothesis.
func (s *Softmax) GetProbs(probs, state, embedding, alignedSourceContext *tensor.Mat) {
	if state.R != embedding.R || state.R != alignedSourceContext.R {
		panic("softmax: batch size mismatch")
	}
	tensor.Affine(&s.t1, state, &s.w.W1, &s.w.B1)
	tensor.Affine(&s.t2, embedding, &s.w.W2, &s.w.B2)
	tensor.Affine(&s.t3, alignedSourceContext, &s.w.W3, &s.w.B3)
	tensor.AddMat(&s.t1, &s.t2)
	tensor.AddMat(&s.t1, &s.t3)
	tensor.Map(&s.t1, tensor.Tanh)

	if s.Filtered() {
		tensor.Affine(probs, &s.t1, &s.filteredW, &s.filteredB)
	} else {
		tensor.Affine(probs, &s.t1, &s.w.W4, &s.w.B4)
	}
	tensor.SoftmaxRows(probs)
	tensor.LogRows(probs)
}

// Filter restricts the output layer to ids, in the given order. A later call
// replaces the restriction; there is no way back to the full vocabulary.
func (s *Softmax) Filter(ids []int) error {
	if len(ids) == 0 {
		return errors.Wrap(ErrFilterID, "empty id list")
	}
	vocab := s.w.W4.C
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id < 0 || id >= vocab {
			return errors.Wrapf(ErrFilterID, "id %d outside vocabulary of %d", id, vocab)
		}
		if _, dup := seen[id]; dup {
			return errors.Wrapf(ErrFilterID, "duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
	tensor.SelectCols(&s.filteredW, &s.w.W4, ids)
	tensor.SelectCols(&s.filteredB, &s.w.B4, ids)
	s.filterIDs = slices.Clone(ids)
	return nil
}

// Filtered reports whether Filter has been applied.
func (s *Softmax) Filtered() bool {
	return s.filterIDs != nil
}

// FilterIDs returns the active restriction, or nil.
func (s *Softmax) FilterIDs() []int {
	return slices.Clone(s.filterIDs)
}

// VocabSize is the number of columns GetProbs produces.
func (s *Softmax) VocabSize() int {
	if s.Filtered() {
		return len(s.filterIDs)
	}
	return s.w.W4.C
}

// ToVocabID maps an output column to a full-vocabulary id.
func (s *Softmax) ToVocabID(col int) (int, error) {
	if col < 0 || col >= s.VocabSize() {
		return 0, errors.Wrapf(ErrOutsideFilter, "column %d of %d", col, s.VocabSize())
	}
	if s.Filtered() {
		return s.filterIDs[col], nil
	}
	return col, nil
}
