// Package model holds the immutable parameter bundle of a dl4mt-style
// attentional encoder-decoder.
package model

import (
	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// ErrShape reports a parameter whose shape disagrees with the Config.
var ErrShape = errors.New("parameter shape mismatch")

// Config describes the model dimensions.
type Config struct {
	DimEmb   int `yaml:"dim_emb"`
	DimRnn   int `yaml:"dim_rnn"`
	DimOut   int `yaml:"dim_out"`
	SrcVocab int `yaml:"src_vocab"`
	TrgVocab int `yaml:"trg_vocab"`
}

// DimCtx is the width of a source annotation (forward and backward states).
func (c Config) DimCtx() int {
	return 2 * c.DimRnn
}

func (c Config) validate() error {
	if c.DimEmb <= 0 || c.DimRnn <= 0 || c.DimOut <= 0 || c.SrcVocab <= 0 || c.TrgVocab <= 0 {
		return errors.Errorf("invalid model config %+v", c)
	}
	return nil
}

// EmbeddingWeights is a vocab×dim lookup table.
type EmbeddingWeights struct {
	E tensor.Mat
}

// GRUWeights are the parameters of one gated recurrent layer. W and U
// produce the concatenated [reset | update] gates.
type GRUWeights struct {
	W, B    tensor.Mat
	U       tensor.Mat
	Wx, Bx1 tensor.Mat
	Ux, Bx2 tensor.Mat
}

// InitWeights map the mean source annotation to the first decoder state.
type InitWeights struct {
	Wi, Bi tensor.Mat
}

// AttentionWeights parameterise the additive alignment model. V is a
// dim×1 column and C a 1×1 scalar bias.
type AttentionWeights struct {
	U    tensor.Mat
	W, B tensor.Mat
	V    tensor.Mat
	C    tensor.Mat
}

// SoftmaxWeights parameterise the readout: three projections into the
// readout space followed by the vocabulary projection W4/B4.
type SoftmaxWeights struct {
	W1, B1 tensor.Mat
	W2, B2 tensor.Mat
	W3, B3 tensor.Mat
	W4, B4 tensor.Mat
}

// Weights is the full parameter set. It is never mutated after Load or
// Random return and may be shared by any number of decoders.
type Weights struct {
	Config Config

	EncEmbeddings EmbeddingWeights
	EncForward    GRUWeights
	EncBackward   GRUWeights

	Embeddings   EmbeddingWeights
	DecInit      InitWeights
	GRU          GRUWeights
	DecGRU2      GRUWeights
	DecAttention AttentionWeights
	DecSoftmax   SoftmaxWeights
}

// ParamCount returns the number of scalar parameters.
func (w *Weights) ParamCount() int {
	n := 0
	for _, p := range w.params() {
		n += p.m.R * p.m.C
	}
	return n
}

// Validate checks every parameter against the Config.
func (w *Weights) Validate() error {
	if err := w.Config.validate(); err != nil {
		return err
	}
	for _, p := range w.params() {
		if p.m.R != p.rows || p.m.C != p.cols {
			return errors.Wrapf(ErrShape, "%s: got %dx%d, want %dx%d", p.name, p.m.R, p.m.C, p.rows, p.cols)
		}
	}
	return nil
}

// Random builds a model with deterministic pseudo-random parameters. Matrices
// are drawn uniformly with a fan-in scaled range so activations stay away
// from saturation; optional biases stay zero.
func Random(cfg Config, seed int64) (*Weights, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	w := &Weights{Config: cfg}
	for i, p := range w.params() {
		*p.m = tensor.NewMat(p.rows, p.cols)
		if p.optional {
			continue
		}
		scale := float32(0.2)
		if p.rows > 1 {
			scale = 2 / sqrtf(float32(p.rows))
		}
		tensor.FillRandScaled(p.m, seed+int64(i)*7919, scale)
	}
	return w, nil
}
