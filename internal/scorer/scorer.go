// Package scorer adapts the decoder to beam search. It owns the source
// context of the current sentence and the per-hypothesis states, and exposes
// the two primitives a search loop needs: scoring a batch of hypotheses and
// reassembling the batch after pruning.
package scorer

import (
	"github.com/samcharles93/nmtdecode/internal/beam"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// Scorer is implemented by anything beam search can drive. S is the scorer's
// own state type; the search loop holds S values but never looks inside them.
type Scorer[S any] interface {
	NewState() S
	// SetSource encodes tokens and invalidates every existing state.
	SetSource(tokens []int) error
	BeginSentenceState(out S) error
	// Score writes the successor of every row of in into out and returns the
	// batch×VocabSize log-probabilities. The matrix is reused by the next call.
	Score(in, out S) (tensor.Mat, error)
	// AssembleBeamState makes row i of out the successor of hypothesis b[i].
	AssembleBeamState(in S, b beam.Beam, out S) error
	VocabSize() int
	ToVocabID(col int) (int, error)
	GetAttention(dst *tensor.Mat) bool
}

// Encoder produces the source context of a sentence.
type Encoder interface {
	GetContext(tokens []int) (tensor.Mat, error)
}

// State is the batch of hidden states and previous-word embeddings of the
// live hypotheses, one row each.
type State struct {
	states     tensor.Mat
	embeddings tensor.Mat
	gen        uint64
}

// Batch is the number of hypotheses in s.
func (s *State) Batch() int {
	return s.states.R
}

// States exposes the hidden states. The matrix must not be modified.
func (s *State) States() *tensor.Mat {
	return &s.states
}

// Embeddings exposes the previous-word embeddings. The matrix must not be
// modified.
func (s *State) Embeddings() *tensor.Mat {
	return &s.embeddings
}
