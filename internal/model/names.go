package model

import (
	"math"

	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// param binds a checkpoint tensor name to its destination and expected shape.
// Optional parameters are absent from some checkpoints and default to zeros.
type param struct {
	name       string
	m          *tensor.Mat
	rows, cols int
	optional   bool
}

// Tensor names follow the dl4mt/Nematus checkpoint layout.
func (w *Weights) params() []param {
	c := w.Config
	emb, rnn, ctx, out := c.DimEmb, c.DimRnn, c.DimCtx(), c.DimOut

	ps := []param{
		{name: "Wemb", m: &w.EncEmbeddings.E, rows: c.SrcVocab, cols: emb},
	}
	ps = append(ps, gruParams(&w.EncForward, emb, rnn, gruNames{
		w: "encoder_W", b: "encoder_b", u: "encoder_U",
		wx: "encoder_Wx", bx1: "encoder_bx", ux: "encoder_Ux", bx2: "encoder_bx2",
	}, false)...)
	ps = append(ps, gruParams(&w.EncBackward, emb, rnn, gruNames{
		w: "encoder_r_W", b: "encoder_r_b", u: "encoder_r_U",
		wx: "encoder_r_Wx", bx1: "encoder_r_bx", ux: "encoder_r_Ux", bx2: "encoder_r_bx2",
	}, false)...)

	ps = append(ps,
		param{name: "Wemb_dec", m: &w.Embeddings.E, rows: c.TrgVocab, cols: emb},
		param{name: "ff_state_W", m: &w.DecInit.Wi, rows: ctx, cols: rnn},
		param{name: "ff_state_b", m: &w.DecInit.Bi, rows: 1, cols: rnn},
	)
	ps = append(ps, gruParams(&w.GRU, emb, rnn, gruNames{
		w: "decoder_W", b: "decoder_b", u: "decoder_U",
		wx: "decoder_Wx", bx1: "decoder_bx", ux: "decoder_Ux", bx2: "decoder_bx2",
	}, false)...)
	ps = append(ps, gruParams(&w.DecGRU2, ctx, rnn, gruNames{
		w: "decoder_Wc", b: "decoder_b_nl", u: "decoder_U_nl",
		wx: "decoder_Wcx", bx1: "decoder_bx1_nl", ux: "decoder_Ux_nl", bx2: "decoder_bx_nl",
	}, true)...)

	ps = append(ps,
		param{name: "decoder_Wc_att", m: &w.DecAttention.U, rows: ctx, cols: rnn},
		param{name: "decoder_W_comb_att", m: &w.DecAttention.W, rows: rnn, cols: rnn},
		param{name: "decoder_b_att", m: &w.DecAttention.B, rows: 1, cols: rnn},
		param{name: "decoder_U_att", m: &w.DecAttention.V, rows: rnn, cols: 1},
		param{name: "decoder_c_tt", m: &w.DecAttention.C, rows: 1, cols: 1, optional: true},

		param{name: "ff_logit_lstm_W", m: &w.DecSoftmax.W1, rows: rnn, cols: out},
		param{name: "ff_logit_lstm_b", m: &w.DecSoftmax.B1, rows: 1, cols: out},
		param{name: "ff_logit_prev_W", m: &w.DecSoftmax.W2, rows: emb, cols: out},
		param{name: "ff_logit_prev_b", m: &w.DecSoftmax.B2, rows: 1, cols: out},
		param{name: "ff_logit_ctx_W", m: &w.DecSoftmax.W3, rows: ctx, cols: out},
		param{name: "ff_logit_ctx_b", m: &w.DecSoftmax.B3, rows: 1, cols: out},
		param{name: "ff_logit_W", m: &w.DecSoftmax.W4, rows: out, cols: c.TrgVocab},
		param{name: "ff_logit_b", m: &w.DecSoftmax.B4, rows: 1, cols: c.TrgVocab},
	)
	return ps
}

type gruNames struct {
	w, b, u, wx, bx1, ux, bx2 string
}

// gruParams expands the seven GRU tensors. dl4mt checkpoints carry only one
// candidate bias per layer: Bx1 on the input path of embedding-fed layers,
// Bx2 on the recurrent path of the context-fed layer.
func gruParams(g *GRUWeights, in, dim int, n gruNames, contextLayer bool) []param {
	return []param{
		{name: n.w, m: &g.W, rows: in, cols: 2 * dim},
		{name: n.b, m: &g.B, rows: 1, cols: 2 * dim},
		{name: n.u, m: &g.U, rows: dim, cols: 2 * dim},
		{name: n.wx, m: &g.Wx, rows: in, cols: dim},
		{name: n.bx1, m: &g.Bx1, rows: 1, cols: dim, optional: contextLayer},
		{name: n.ux, m: &g.Ux, rows: dim, cols: dim},
		{name: n.bx2, m: &g.Bx2, rows: 1, cols: dim, optional: !contextLayer},
	}
}

func sqrtf(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
