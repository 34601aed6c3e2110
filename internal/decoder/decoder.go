// Package decoder implements one step of a dl4mt conditional-GRU decoder
// with additive attention.
//
// A step runs, in order: the first GRU over the previous target embedding,
// attention over the source context conditioned on that hidden state, the
// second GRU over the pooled context, and the readout/softmax. Every matrix
// in a step has one row per live hypothesis except the source context, which
// has one row per source position and is shared by all hypotheses.
//
// A Decoder holds scratch buffers and is not safe for concurrent use.
// Decoders built from the same Weights may run in parallel.
package decoder

import (
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

type Decoder struct {
	embeddings *Embeddings
	rnn1       *RNNHidden
	rnn2       *RNNFinal
	attention  *Attention
	softmax    *Softmax

	hiddenState          tensor.Mat
	alignedSourceContext tensor.Mat
}

// New builds a Decoder over w. w must not be modified afterwards.
func New(w *model.Weights) *Decoder {
	return &Decoder{
		embeddings: NewEmbeddings(&w.Embeddings),
		rnn1:       NewRNNHidden(&w.DecInit, &w.GRU),
		rnn2:       NewRNNFinal(&w.DecGRU2),
		attention:  NewAttention(&w.DecAttention),
		softmax:    NewSoftmax(&w.DecSoftmax),
	}
}

// MakeStep computes the successor state and the next-token log-probabilities
// for every hypothesis row. state and embeddings must have the same number of
// rows; nextState and probs must not alias any input.
func (d *Decoder) MakeStep(nextState, probs *tensor.Mat, state, embeddings, sourceContext *tensor.Mat) {
	if state.R != embeddings.R {
		panic("decoder: state and embedding batch sizes differ")
	}
	d.rnn1.GetNextState(&d.hiddenState, state, embeddings)
	d.attention.GetAlignedSourceContext(&d.alignedSourceContext, &d.hiddenState, sourceContext)
	d.rnn2.GetNextState(nextState, &d.hiddenState, &d.alignedSourceContext)
	d.softmax.GetProbs(probs, nextState, embeddings, &d.alignedSourceContext)
}

// EmptyState writes the sentence-initial state for batchSize hypotheses.
func (d *Decoder) EmptyState(state, sourceContext *tensor.Mat, batchSize int) {
	d.rnn1.InitializeState(state, sourceContext, batchSize)
}

// EmptyEmbedding writes batchSize all-zero embedding rows: the first step has
// no previous target word.
func (d *Decoder) EmptyEmbedding(embedding *tensor.Mat, batchSize int) {
	embedding.Resize(batchSize, d.embeddings.Cols())
	embedding.Zero()
}

// Lookup writes the target embeddings of ids into embedding.
func (d *Decoder) Lookup(embedding *tensor.Mat, ids []int) {
	d.embeddings.Lookup(embedding, ids)
}

// Filter restricts the output vocabulary; see Softmax.Filter.
func (d *Decoder) Filter(ids []int) error {
	return d.softmax.Filter(ids)
}

// FilterIDs returns the active vocabulary restriction, or nil.
func (d *Decoder) FilterIDs() []int {
	return d.softmax.FilterIDs()
}

// ToVocabID maps a column of the MakeStep output to a target vocabulary id.
func (d *Decoder) ToVocabID(col int) (int, error) {
	return d.softmax.ToVocabID(col)
}

// GetAttention copies the alignments of the last step into dst.
func (d *Decoder) GetAttention(dst *tensor.Mat) bool {
	return d.attention.GetAttention(dst)
}

// ResetAttention discards the alignments of the last step, for use when the
// source sentence changes.
func (d *Decoder) ResetAttention() {
	d.attention.Reset()
}

// VocabSize is the width of the MakeStep output.
func (d *Decoder) VocabSize() int {
	return d.softmax.VocabSize()
}

// TargetVocabSize is the size of the full target vocabulary, independent of
// any filter.
func (d *Decoder) TargetVocabSize() int {
	return d.embeddings.Rows()
}
