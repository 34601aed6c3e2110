package scorer

import (
	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/beam"
	"github.com/samcharles93/nmtdecode/internal/decoder"
	"github.com/samcharles93/nmtdecode/internal/encoder"
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

var (
	// ErrEmptySource is returned for a sentence without tokens, or when a
	// sentence is begun before any source was set.
	ErrEmptySource = encoder.ErrEmptySource
	// ErrStaleState is returned for a state that belongs to an earlier source
	// sentence.
	ErrStaleState = errors.New("state belongs to a previous source sentence")
	// ErrAliasedState is returned when the input and output state are the
	// same object.
	ErrAliasedState = errors.New("input and output state must differ")
	// ErrBadBackReference is returned when a hypothesis points outside the
	// input batch.
	ErrBadBackReference = errors.New("hypothesis back-reference out of range")
	// ErrUnassembled is returned when a scored state is scored again without
	// assembling it into a beam first.
	ErrUnassembled = errors.New("state has no previous-word embeddings")
)

// EncoderDecoder scores hypotheses with a Decoder over the context produced
// by an Encoder. It is not safe for concurrent use.
type EncoderDecoder struct {
	decoder *decoder.Decoder
	encoder Encoder

	source tensor.Mat
	gen    uint64
	probs  tensor.Mat
}

var _ Scorer[*State] = (*EncoderDecoder)(nil)

// New builds a scorer with the bidirectional encoder of w.
func New(w *model.Weights) *EncoderDecoder {
	return NewWithEncoder(decoder.New(w), encoder.New(w))
}

func NewWithEncoder(d *decoder.Decoder, enc Encoder) *EncoderDecoder {
	return &EncoderDecoder{decoder: d, encoder: enc}
}

func (s *EncoderDecoder) NewState() *State {
	return &State{}
}

// SetSource encodes tokens and makes the result the context of all following
// calls. States created for earlier sentences become stale.
func (s *EncoderDecoder) SetSource(tokens []int) error {
	ctx, err := s.encoder.GetContext(tokens)
	if err != nil {
		return err
	}
	return s.SetSourceContext(ctx)
}

// SetSourceContext installs an already encoded source. ctx is retained and
// must not be modified while the sentence is decoded.
func (s *EncoderDecoder) SetSourceContext(ctx tensor.Mat) error {
	if ctx.R == 0 {
		return ErrEmptySource
	}
	s.source = ctx
	s.gen++
	s.decoder.ResetAttention()
	return nil
}

// SourceLength is the number of positions in the current source context.
func (s *EncoderDecoder) SourceLength() int {
	return s.source.R
}

// BeginSentenceState resets out to the single sentence-initial hypothesis.
func (s *EncoderDecoder) BeginSentenceState(out *State) error {
	if s.gen == 0 {
		return errors.Wrap(ErrEmptySource, "no source sentence set")
	}
	s.decoder.EmptyState(&out.states, &s.source, 1)
	s.decoder.EmptyEmbedding(&out.embeddings, 1)
	out.gen = s.gen
	return nil
}

// Score runs one decoder step for every hypothesis in in. out receives the
// new hidden states and has no embeddings until AssembleBeamState fills them.
// The returned log-probabilities are valid until the next Score call.
func (s *EncoderDecoder) Score(in, out *State) (tensor.Mat, error) {
	if in == out {
		return tensor.Mat{}, ErrAliasedState
	}
	if err := s.checkCurrent(in); err != nil {
		return tensor.Mat{}, err
	}
	if in.embeddings.R != in.states.R {
		return tensor.Mat{}, ErrUnassembled
	}
	s.decoder.MakeStep(&out.states, &s.probs, &in.states, &in.embeddings, &s.source)
	out.embeddings.Resize(0, in.embeddings.C)
	out.gen = s.gen
	return s.probs, nil
}

// AssembleBeamState gathers the hidden state of every surviving hypothesis
// from in and looks up the embedding of its word. Row i of out corresponds to
// b[i]. Words are full-vocabulary ids.
func (s *EncoderDecoder) AssembleBeamState(in *State, b beam.Beam, out *State) error {
	if in == out {
		return ErrAliasedState
	}
	if err := s.checkCurrent(in); err != nil {
		return err
	}
	rows := b.PrevStateIndices()
	for i, r := range rows {
		if r < 0 || r >= in.states.R {
			return errors.Wrapf(ErrBadBackReference, "hypothesis %d refers to row %d of %d", i, r, in.states.R)
		}
	}
	tensor.SelectRows(&out.states, &in.states, rows)
	s.decoder.Lookup(&out.embeddings, b.Words())
	out.gen = s.gen
	return nil
}

func (s *EncoderDecoder) checkCurrent(st *State) error {
	if st.gen != s.gen || s.gen == 0 {
		return ErrStaleState
	}
	return nil
}

// VocabSize is the width of the Score output, which is the filtered size when
// a filter is active.
func (s *EncoderDecoder) VocabSize() int {
	return s.decoder.VocabSize()
}

// TargetVocabSize is the size of the full target vocabulary.
func (s *EncoderDecoder) TargetVocabSize() int {
	return s.decoder.TargetVocabSize()
}

func (s *EncoderDecoder) ToVocabID(col int) (int, error) {
	return s.decoder.ToVocabID(col)
}

func (s *EncoderDecoder) Filter(ids []int) error {
	return s.decoder.Filter(ids)
}

// GetAttention copies the alignments of the last Score call into dst, one row
// per hypothesis and one column per source position.
func (s *EncoderDecoder) GetAttention(dst *tensor.Mat) bool {
	return s.decoder.GetAttention(dst)
}
