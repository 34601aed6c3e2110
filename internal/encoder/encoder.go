// Package encoder runs the bidirectional GRU that turns a source sentence into
// the context matrix the decoder attends over.
package encoder

import (
	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/rnn"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// ErrEmptySource is returned for a sentence with no tokens.
var ErrEmptySource = errors.New("empty source sentence")

// Encoder is not safe for concurrent use.
type Encoder struct {
	emb      *model.EmbeddingWeights
	forward  *rnn.GRU
	backward *rnn.GRU

	embedded tensor.Mat
	h, next  tensor.Mat
}

func New(w *model.Weights) *Encoder {
	return &Encoder{
		emb:      &w.EncEmbeddings,
		forward:  rnn.NewGRU(&w.EncForward),
		backward: rnn.NewGRU(&w.EncBackward),
	}
}

// Dim is the width of a context row: both directions concatenated.
func (e *Encoder) Dim() int {
	return e.forward.Dim() + e.backward.Dim()
}

// GetContext encodes tokens into a len(tokens)×Dim matrix. Row t holds the
// forward state after reading tokens[0..t] followed by the backward state
// after reading tokens[t..n-1]. Both directions start from zero. The result
// is owned by the caller.
func (e *Encoder) GetContext(tokens []int) (tensor.Mat, error) {
	if len(tokens) == 0 {
		return tensor.Mat{}, ErrEmptySource
	}
	tensor.SelectRows(&e.embedded, &e.emb.E, tokens)

	n := len(tokens)
	fwd := e.forward.Dim()
	ctx := tensor.NewMat(n, e.Dim())

	e.run(e.forward, n, func(t int) int { return t }, func(t int, h []float32) {
		copy(ctx.Row(t)[:fwd], h)
	})
	e.run(e.backward, n, func(t int) int { return n - 1 - t }, func(t int, h []float32) {
		copy(ctx.Row(t)[fwd:], h)
	})
	return ctx, nil
}

// run feeds the embedded tokens through g in the order given by pos and hands
// every state to emit together with the position it belongs to.
func (e *Encoder) run(g *rnn.GRU, n int, pos func(int) int, emit func(int, []float32)) {
	e.h.Resize(1, g.Dim())
	e.h.Zero()
	for step := 0; step < n; step++ {
		t := pos(step)
		x := tensor.NewRowVector(e.embedded.Row(t))
		g.GetNextState(&e.next, &e.h, &x)
		emit(t, e.next.Row(0))
		e.h, e.next = e.next, e.h
	}
}
