package decoder

import (
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/rnn"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// RNNHidden is the first decoder layer. It owns the sentence-initial state
// and consumes the previous target embedding.
type RNNHidden struct {
	w   *model.InitWeights
	gru *rnn.GRU

	mean tensor.Mat
	init tensor.Mat
}

func NewRNNHidden(initW *model.InitWeights, gruW *model.GRUWeights) *RNNHidden {
	return &RNNHidden{w: initW, gru: rnn.NewGRU(gruW)}
}

// InitializeState writes tanh(mean(sourceContext)·Wi + Bi) replicated to
// batchSize rows into state. sourceContext must have at least one row.
func (r *RNNHidden) InitializeState(state, sourceContext *tensor.Mat, batchSize int) {
	if sourceContext.R == 0 {
		panic("decoder: initial state from empty source context")
	}
	tensor.MeanRows(&r.mean, sourceContext)
	tensor.Affine(&r.init, &r.mean, &r.w.Wi, &r.w.Bi)
	tensor.Map(&r.init, tensor.Tanh)
	tensor.RepeatRow(state, &r.init, batchSize)
}

// GetNextState advances state with the GRU, using context as the input.
func (r *RNNHidden) GetNextState(next, state, context *tensor.Mat) {
	r.gru.GetNextState(next, state, context)
}

// RNNFinal is the second decoder layer, fed by the attention-pooled context.
type RNNFinal struct {
	gru *rnn.GRU
}

func NewRNNFinal(w *model.GRUWeights) *RNNFinal {
	return &RNNFinal{gru: rnn.NewGRU(w)}
}

func (r *RNNFinal) GetNextState(next, state, context *tensor.Mat) {
	r.gru.GetNextState(next, state, context)
}
