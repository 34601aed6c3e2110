package decoder

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

var testConfig = model.Config{DimEmb: 6, DimRnn: 5, DimOut: 4, SrcVocab: 11, TrgVocab: 13}

func newTestWeights(t *testing.T, seed int64) *model.Weights {
	t.Helper()
	w, err := model.Random(testConfig, seed)
	require.NoError(t, err)
	return w
}

func sourceContext(words int, seed int64) tensor.Mat {
	m := tensor.NewMat(words, testConfig.DimCtx())
	tensor.FillRandScaled(&m, seed, 2)
	return m
}

func requireRowsSumToOne(t *testing.T, m *tensor.Mat, expLog bool) {
	t.Helper()
	for i := 0; i < m.R; i++ {
		var sum float64
		for _, v := range m.Row(i) {
			if expLog {
				sum += math.Exp(float64(v))
			} else {
				sum += float64(v)
			}
		}
		require.InDelta(t, 1.0, sum, 1e-5, "row %d", i)
	}
}

// initialStep returns the state and embeddings after one step from the
// sentence start, for a batch of three distinct hypotheses.
func initialStep(t *testing.T, d *Decoder, src *tensor.Mat) (tensor.Mat, tensor.Mat) {
	t.Helper()
	var state, emb, next, probs tensor.Mat
	d.EmptyState(&state, src, 1)
	d.EmptyEmbedding(&emb, 1)
	d.MakeStep(&next, &probs, &state, &emb, src)

	var states tensor.Mat
	tensor.SelectRows(&states, &next, []int{0, 0, 0})
	var embs tensor.Mat
	d.Lookup(&embs, []int{2, 5, 12})
	return states, embs
}

func TestEmptyEmbeddingIsZero(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 1))
	var emb tensor.Mat
	emb.Resize(1, 1)
	emb.Data[0] = 3
	d.EmptyEmbedding(&emb, 3)
	require.Equal(t, 3, emb.R)
	require.Equal(t, testConfig.DimEmb, emb.C)
	require.Equal(t, make([]float32, 3*testConfig.DimEmb), emb.Data)
}

func TestEmptyStateReplicatesInitialState(t *testing.T) {
	t.Parallel()

	w := newTestWeights(t, 2)
	d := New(w)
	src := sourceContext(4, 3)

	var state tensor.Mat
	d.EmptyState(&state, &src, 3)
	require.Equal(t, 3, state.R)
	require.Equal(t, testConfig.DimRnn, state.C)

	// tanh(mean(src)·Wi + Bi)
	for j := 0; j < testConfig.DimRnn; j++ {
		var acc float64
		for k := 0; k < src.C; k++ {
			var mean float64
			for r := 0; r < src.R; r++ {
				mean += float64(src.At(r, k))
			}
			acc += mean / float64(src.R) * float64(w.DecInit.Wi.At(k, j))
		}
		want := math.Tanh(acc + float64(w.DecInit.Bi.At(0, j)))
		for i := 0; i < state.R; i++ {
			require.InDelta(t, want, float64(state.At(i, j)), 1e-5)
		}
	}

	empty := tensor.NewMat(0, testConfig.DimCtx())
	require.Panics(t, func() { d.EmptyState(&state, &empty, 1) })
}

func TestBeginThenStepShapes(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 4))
	src := sourceContext(5, 5)

	var state, emb, next, probs tensor.Mat
	d.EmptyState(&state, &src, 1)
	d.EmptyEmbedding(&emb, 1)
	d.MakeStep(&next, &probs, &state, &emb, &src)

	require.Equal(t, 1, probs.R)
	require.Equal(t, testConfig.TrgVocab, probs.C)
	require.Equal(t, testConfig.TrgVocab, d.VocabSize())
	require.Equal(t, 1, next.R)
	require.Equal(t, testConfig.DimRnn, next.C)
	requireRowsSumToOne(t, &probs, true)
}

func TestAttentionRowsSumToOne(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 6))
	src := sourceContext(7, 7)
	states, embs := initialStep(t, d, &src)

	var next, probs, att tensor.Mat
	d.MakeStep(&next, &probs, &states, &embs, &src)
	require.True(t, d.GetAttention(&att))
	require.Equal(t, 3, att.R)
	require.Equal(t, 7, att.C)
	requireRowsSumToOne(t, &att, false)
	requireRowsSumToOne(t, &probs, true)
}

func TestGetAttentionBeforeAnyStep(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 8))
	att := tensor.NewMat(2, 2)
	require.False(t, d.GetAttention(&att))
	require.Equal(t, 0, att.R)
	require.Equal(t, 0, att.C)

	src := sourceContext(3, 1)
	var state, emb, next, probs tensor.Mat
	d.EmptyState(&state, &src, 1)
	d.EmptyEmbedding(&emb, 1)
	d.MakeStep(&next, &probs, &state, &emb, &src)
	require.True(t, d.GetAttention(&att))

	d.ResetAttention()
	require.False(t, d.GetAttention(&att))
	require.Equal(t, 0, att.R)
}

func TestGetAttentionReturnsCopy(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 8))
	src := sourceContext(3, 1)
	var state, emb, next, probs, att tensor.Mat
	d.EmptyState(&state, &src, 1)
	d.EmptyEmbedding(&emb, 1)
	d.MakeStep(&next, &probs, &state, &emb, &src)
	require.True(t, d.GetAttention(&att))
	snapshot := att.Clone()

	other := sourceContext(3, 99)
	d.MakeStep(&next, &probs, &state, &emb, &other)
	require.Equal(t, snapshot.Data, att.Data)
}

func TestSingleSourcePositionPoolsExactly(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 9))
	src := sourceContext(1, 10)

	a := d.attention
	var hidden, aligned, att tensor.Mat
	d.EmptyState(&hidden, &src, 2)
	a.GetAlignedSourceContext(&aligned, &hidden, &src)

	require.True(t, a.GetAttention(&att))
	require.Equal(t, []float32{1, 1}, att.Data)
	for i := 0; i < aligned.R; i++ {
		require.Equal(t, src.Row(0), aligned.Row(i))
	}
}

func TestAttentionMatchesReference(t *testing.T) {
	t.Parallel()

	w := newTestWeights(t, 11)
	a := NewAttention(&w.DecAttention)
	src := sourceContext(4, 12)
	hidden := tensor.NewMat(2, testConfig.DimRnn)
	tensor.FillRandScaled(&hidden, 13, 2)

	var aligned tensor.Mat
	a.GetAlignedSourceContext(&aligned, &hidden, &src)

	aw := &w.DecAttention
	for b := 0; b < hidden.R; b++ {
		scores := make([]float64, src.R)
		maxv := math.Inf(-1)
		for s := 0; s < src.R; s++ {
			var e float64
			for j := 0; j < testConfig.DimRnn; j++ {
				x := float64(aw.B.At(0, j))
				for k := 0; k < src.C; k++ {
					x += float64(src.At(s, k)) * float64(aw.U.At(k, j))
				}
				for k := 0; k < hidden.C; k++ {
					x += float64(hidden.At(b, k)) * float64(aw.W.At(k, j))
				}
				e += math.Tanh(x) * float64(aw.V.At(j, 0))
			}
			scores[s] = e + float64(aw.C.At(0, 0))
			maxv = math.Max(maxv, scores[s])
		}
		var z float64
		for s := range scores {
			scores[s] = math.Exp(scores[s] - maxv)
			z += scores[s]
		}
		for k := 0; k < src.C; k++ {
			var want float64
			for s := range scores {
				want += scores[s] / z * float64(src.At(s, k))
			}
			require.InDelta(t, want, float64(aligned.At(b, k)), 1e-5)
		}
	}
}

func TestMakeStepIsDeterministic(t *testing.T) {
	t.Parallel()

	w := newTestWeights(t, 14)
	src := sourceContext(6, 15)

	run := func(d *Decoder) (tensor.Mat, tensor.Mat) {
		states, embs := initialStep(t, d, &src)
		var next, probs tensor.Mat
		d.MakeStep(&next, &probs, &states, &embs, &src)
		return next, probs
	}
	d1 := New(w)
	n1, p1 := run(d1)
	n2, p2 := run(New(w))
	n3, p3 := run(d1)

	require.Equal(t, n1.Data, n2.Data)
	require.Equal(t, p1.Data, p2.Data)
	require.Equal(t, n1.Data, n3.Data)
	require.Equal(t, p1.Data, p3.Data)
}

func TestMakeStepBatchMismatchPanics(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 16))
	src := sourceContext(3, 17)
	var state, emb, next, probs tensor.Mat
	d.EmptyState(&state, &src, 2)
	d.EmptyEmbedding(&emb, 3)
	require.Panics(t, func() { d.MakeStep(&next, &probs, &state, &emb, &src) })

	d.EmptyEmbedding(&emb, 2)
	empty := tensor.NewMat(0, testConfig.DimCtx())
	require.Panics(t, func() { d.MakeStep(&next, &probs, &state, &emb, &empty) })
}

func TestFilterSelectsColumnsInOrder(t *testing.T) {
	t.Parallel()

	w := newTestWeights(t, 18)
	src := sourceContext(5, 19)

	full := New(w)
	states, embs := initialStep(t, full, &src)
	var next, probs tensor.Mat
	full.MakeStep(&next, &probs, &states, &embs, &src)

	filtered := New(w)
	ids := []int{3, 7, 9}
	require.NoError(t, filtered.Filter(ids))
	require.Equal(t, 3, filtered.VocabSize())
	require.Equal(t, ids, filtered.FilterIDs())

	var fnext, fprobs tensor.Mat
	filtered.MakeStep(&fnext, &fprobs, &states, &embs, &src)
	require.Equal(t, 3, fprobs.R)
	require.Equal(t, 3, fprobs.C)
	requireRowsSumToOne(t, &fprobs, true)
	require.Equal(t, next.Data, fnext.Data)

	// Filtered log-probs are a fresh log-softmax over the selected logits:
	// logp_S(j) = logp(j) - log(sum_{k in S} exp(logp(k))).
	differs := false
	for i := 0; i < probs.R; i++ {
		var z float64
		for _, id := range ids {
			z += math.Exp(float64(probs.At(i, id)))
		}
		for j, id := range ids {
			want := float64(probs.At(i, id)) - math.Log(z)
			require.InDelta(t, want, float64(fprobs.At(i, j)), 1e-5)
			if math.Abs(float64(fprobs.At(i, j)-probs.At(i, id))) > 1e-6 {
				differs = true
			}
		}
	}
	require.True(t, differs, "filtering must change the partition function")
}

func TestFilterReplacesPrevious(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 20))
	require.NoError(t, d.Filter([]int{1, 2, 3, 4}))
	require.NoError(t, d.Filter([]int{12, 0}))
	require.Equal(t, 2, d.VocabSize())

	id, err := d.ToVocabID(0)
	require.NoError(t, err)
	require.Equal(t, 12, id)
	_, err = d.ToVocabID(2)
	require.True(t, errors.Is(err, ErrOutsideFilter))
}

func TestFilterRejectsBadIDs(t *testing.T) {
	t.Parallel()

	d := New(newTestWeights(t, 21))
	for _, ids := range [][]int{nil, {13}, {-1}, {2, 2}} {
		err := d.Filter(ids)
		require.True(t, errors.Is(err, ErrFilterID), "ids %v", ids)
	}
	require.Nil(t, d.FilterIDs())
	require.Equal(t, testConfig.TrgVocab, d.VocabSize())

	id, err := d.ToVocabID(5)
	require.NoError(t, err)
	require.Equal(t, 5, id)
	_, err = d.ToVocabID(testConfig.TrgVocab)
	require.True(t, errors.Is(err, ErrOutsideFilter))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	w := newTestWeights(t, 22)
	d := New(w)
	var emb tensor.Mat
	d.Lookup(&emb, []int{4, 0, 4})
	require.Equal(t, 3, emb.R)
	require.Equal(t, w.Embeddings.E.Row(4), emb.Row(0))
	require.Equal(t, w.Embeddings.E.Row(0), emb.Row(1))
	require.Equal(t, emb.Row(0), emb.Row(2))
	require.Equal(t, testConfig.TrgVocab, d.TargetVocabSize())

	require.Panics(t, func() { d.Lookup(&emb, []int{testConfig.TrgVocab}) })
}

// readout evaluates tanh(s·W1+B1 + e·W2+B2 + c·W3+B3)·W4+B4 followed by a
// log-softmax for one row, in float64.
func readout(w *model.SoftmaxWeights, s, e, c []float32) []float64 {
	affine := func(m, bias *tensor.Mat, v []float32, col int) float64 {
		x := float64(bias.At(0, col))
		for k, vk := range v {
			x += float64(vk) * float64(m.At(k, col))
		}
		return x
	}
	t := make([]float32, w.W1.C)
	for j := range t {
		t[j] = float32(math.Tanh(affine(&w.W1, &w.B1, s, j) + affine(&w.W2, &w.B2, e, j) + affine(&w.W3, &w.B3, c, j)))
	}
	logits := make([]float64, w.W4.C)
	maxv := math.Inf(-1)
	for j := range logits {
		logits[j] = affine(&w.W4, &w.B4, t, j)
		maxv = math.Max(maxv, logits[j])
	}
	var z float64
	for _, l := range logits {
		z += math.Exp(l - maxv)
	}
	for j := range logits {
		logits[j] -= maxv + math.Log(z)
	}
	return logits
}

func TestSoftmaxMatchesReference(t *testing.T) {
	t.Parallel()

	w := newTestWeights(t, 23)
	sw := &w.DecSoftmax
	// Distinct, non-zero biases so a swapped projection cannot cancel out.
	for i, b := range []*tensor.Mat{&sw.B1, &sw.B2, &sw.B3, &sw.B4} {
		tensor.FillRandScaled(b, 40+int64(i), 1)
	}
	s := NewSoftmax(sw)

	const batch = 2
	state := tensor.NewMat(batch, testConfig.DimRnn)
	emb := tensor.NewMat(batch, testConfig.DimEmb)
	ctx := tensor.NewMat(batch, testConfig.DimCtx())
	tensor.FillRandScaled(&state, 24, 2)
	tensor.FillRandScaled(&emb, 25, 2)
	tensor.FillRandScaled(&ctx, 26, 2)

	var probs tensor.Mat
	s.GetProbs(&probs, &state, &emb, &ctx)
	require.Equal(t, batch, probs.R)
	require.Equal(t, testConfig.TrgVocab, probs.C)

	for i := 0; i < batch; i++ {
		want := readout(sw, state.Row(i), emb.Row(i), ctx.Row(i))
		for j := range want {
			require.InDelta(t, want[j], float64(probs.At(i, j)), 1e-4, "row %d col %d", i, j)
		}
	}
}

func TestMakeStepComposesStages(t *testing.T) {
	t.Parallel()

	w := newTestWeights(t, 27)
	src := sourceContext(5, 28)
	d := New(w)
	states, embs := initialStep(t, d, &src)

	var next, probs tensor.Mat
	d.MakeStep(&next, &probs, &states, &embs, &src)

	// Recompute with separate stage instances: layer 1 on the embedding,
	// attention on the layer-1 output, layer 2 on the pooled context.
	rnn1 := NewRNNHidden(&w.DecInit, &w.GRU)
	att := NewAttention(&w.DecAttention)
	rnn2 := NewRNNFinal(&w.DecGRU2)
	sm := NewSoftmax(&w.DecSoftmax)

	var hidden, aligned, wantNext, wantProbs tensor.Mat
	rnn1.GetNextState(&hidden, &states, &embs)
	att.GetAlignedSourceContext(&aligned, &hidden, &src)
	rnn2.GetNextState(&wantNext, &hidden, &aligned)
	sm.GetProbs(&wantProbs, &wantNext, &embs, &aligned)

	require.Equal(t, wantNext.Data, next.Data)
	require.Equal(t, wantProbs.Data, probs.Data)

	var gotAtt, wantAtt tensor.Mat
	require.True(t, d.GetAttention(&gotAtt))
	require.True(t, att.GetAttention(&wantAtt))
	require.Equal(t, wantAtt.Data, gotAtt.Data)
}
