package decoder

import (
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// Attention computes soft alignments between decoder states and source
// positions and pools the source context with them.
//
// The alignment matrix of the last call is kept until the next call on the
// same instance.
type Attention struct {
	w *model.AttentionWeights
	v []float32

	srcProj tensor.Mat // sourceContext·U
	hidProj tensor.Mat // hiddenState·W + B
	scratch []float32
	a       tensor.Mat
	valid   bool
}

func NewAttention(w *model.AttentionWeights) *Attention {
	v := make([]float32, w.V.R)
	for i := range v {
		v[i] = w.V.At(i, 0)
	}
	return &Attention{w: w, v: v, scratch: make([]float32, len(v))}
}

// GetAlignedSourceContext writes into aligned, for every row b of
// hiddenState, the sum over source positions w of
//
//	softmax_w(V·tanh(sourceContext[w]·U + hiddenState[b]·W + B) + C) · sourceContext[w]
//
// aligned has one row per hypothesis and the source context width.
func (a *Attention) GetAlignedSourceContext(aligned, hiddenState, sourceContext *tensor.Mat) {
	if sourceContext.R == 0 {
		panic("attention: empty source context")
	}
	tensor.MatMul(&a.srcProj, sourceContext, &a.w.U)
	tensor.Affine(&a.hidProj, hiddenState, &a.w.W, &a.w.B)

	batch, words := hiddenState.R, sourceContext.R
	bias := a.w.C.At(0, 0)
	a.a.Resize(batch, words)
	for b := 0; b < batch; b++ {
		h := a.hidProj.Row(b)
		scores := a.a.Row(b)
		for w := 0; w < words; w++ {
			s := a.srcProj.Row(w)
			for j := range a.scratch {
				a.scratch[j] = tensor.Tanh(s[j] + h[j])
			}
			scores[w] = tensor.Dot(a.scratch, a.v) + bias
		}
	}
	tensor.SoftmaxRows(&a.a)
	a.valid = true

	tensor.MatMul(aligned, &a.a, sourceContext)
}

// GetAttention copies the batch×sourceLength alignment matrix of the last
// GetAlignedSourceContext call into dst. If nothing has been computed since
// construction or the last Reset, dst becomes 0×0 and it returns false.
func (a *Attention) GetAttention(dst *tensor.Mat) bool {
	if !a.valid {
		dst.Resize(0, 0)
		return false
	}
	tensor.Copy(dst, &a.a)
	return true
}

// Reset forgets the last alignments.
func (a *Attention) Reset() {
	a.valid = false
}
