// Package rnn implements the gated recurrent unit shared by the encoder and
// both decoder layers.
package rnn

import (
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// GRU advances a batch of hidden states by one step.
//
//	[r | u] = sigmoid(x·W + B + h·U)
//	h~      = tanh(x·Wx + Bx1 + r ⊙ (h·Ux + Bx2))
//	h'      = (1-u) ⊙ h~ + u ⊙ h
//
// The scratch matrices make a GRU unsafe for concurrent use; the weights are
// shared read-only.
type GRU struct {
	w *model.GRUWeights

	ru   tensor.Mat
	hx   tensor.Mat
	temp tensor.Mat
}

// NewGRU binds a GRU to its parameters.
func NewGRU(w *model.GRUWeights) *GRU {
	return &GRU{w: w}
}

// Dim is the hidden state width.
func (g *GRU) Dim() int {
	return g.w.Ux.R
}

// InputDim is the width of the input x.
func (g *GRU) InputDim() int {
	return g.w.W.R
}

// GetNextState writes the successor of state given input into next. next
// must not alias state or input.
func (g *GRU) GetNextState(next, state, input *tensor.Mat) {
	if state.R != input.R {
		panic("gru: batch size mismatch between state and input")
	}
	if state.C != g.Dim() || input.C != g.InputDim() {
		panic("gru: feature dimension mismatch")
	}
	dim := g.Dim()
	w := g.w

	tensor.Affine(&g.ru, input, &w.W, &w.B)
	tensor.MatMulAdd(&g.ru, state, &w.U)

	tensor.Affine(&g.hx, input, &w.Wx, &w.Bx1)
	tensor.Affine(&g.temp, state, &w.Ux, &w.Bx2)

	next.Resize(state.R, dim)
	for i := 0; i < state.R; i++ {
		ru := g.ru.Row(i)
		hx := g.hx.Row(i)
		hu := g.temp.Row(i)
		h := state.Row(i)
		out := next.Row(i)
		for j := 0; j < dim; j++ {
			r := tensor.Sigmoid(ru[j])
			u := tensor.Sigmoid(ru[dim+j])
			cand := tensor.Tanh(hx[j] + r*hu[j])
			out[j] = (1-u)*cand + u*h[j]
		}
	}
}
