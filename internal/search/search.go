// Package search runs beam search over any scorer.Scorer.
package search

import (
	"context"

	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/beam"
	"github.com/samcharles93/nmtdecode/internal/scorer"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// ErrConfig reports an unusable search configuration.
var ErrConfig = errors.New("invalid search config")

// Config controls one search.
type Config struct {
	BeamSize int `yaml:"beam_size"`
	// MaxLength bounds the output length. Zero means three times the source
	// length.
	MaxLength int `yaml:"max_length"`
	// NBest is the number of results returned; zero means one.
	NBest     int  `yaml:"n_best"`
	Normalize bool `yaml:"normalize"`
	EOS       int  `yaml:"eos"`
	// Alignment records the attention row of every emitted word.
	Alignment bool `yaml:"alignment"`
}

// DefaultConfig matches the usual dl4mt decoding setup.
func DefaultConfig() Config {
	return Config{BeamSize: 12, NBest: 1, Normalize: true}
}

func (c Config) Validate() error {
	if c.BeamSize <= 0 {
		return errors.Wrapf(ErrConfig, "beam size %d", c.BeamSize)
	}
	if c.MaxLength < 0 {
		return errors.Wrapf(ErrConfig, "max length %d", c.MaxLength)
	}
	if c.NBest < 0 || c.NBest > c.BeamSize {
		return errors.Wrapf(ErrConfig, "n-best %d with beam size %d", c.NBest, c.BeamSize)
	}
	if c.EOS < 0 {
		return errors.Wrapf(ErrConfig, "eos id %d", c.EOS)
	}
	return nil
}

// Search decodes sentences with one scorer. It is not safe for concurrent use.
type Search[S any] struct {
	scorer scorer.Scorer[S]
	cfg    Config

	attention tensor.Mat
}

func New[S any](sc scorer.Scorer[S], cfg Config) (*Search[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.NBest == 0 {
		cfg.NBest = 1
	}
	return &Search[S]{scorer: sc, cfg: cfg}, nil
}

func (s *Search[S]) Config() Config {
	return s.cfg
}

// Stats describes the work done for one sentence.
type Stats struct {
	Steps      int
	Hypotheses int
}

// Decode translates one source sentence. The context is checked before every
// step.
func (s *Search[S]) Decode(ctx context.Context, source []int) ([]beam.Result, Stats, error) {
	var stats Stats
	if err := s.scorer.SetSource(source); err != nil {
		return nil, stats, err
	}
	maxLen := s.cfg.MaxLength
	if maxLen == 0 {
		maxLen = 3 * len(source)
	}

	in, out, next := s.scorer.NewState(), s.scorer.NewState(), s.scorer.NewState()
	if err := s.scorer.BeginSentenceState(in); err != nil {
		return nil, stats, err
	}

	history := beam.NewHistory(s.cfg.EOS)
	live := beam.Beam{beam.Root()}
	for step := 0; step < maxLen && len(live) > 0; step++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		width := s.cfg.BeamSize - history.Len()
		if width <= 0 {
			break
		}

		probs, err := s.scorer.Score(in, out)
		if err != nil {
			return nil, stats, errors.Wrapf(err, "step %d", step)
		}
		stats.Steps++
		withAttention := s.cfg.Alignment && s.scorer.GetAttention(&s.attention)

		last := step == maxLen-1
		survivors := make(beam.Beam, 0, width)
		for _, c := range topK(&probs, live, width) {
			word, err := s.scorer.ToVocabID(c.col)
			if err != nil {
				return nil, stats, err
			}
			h := &beam.Hypothesis{
				Word:           word,
				PrevStateIndex: c.row,
				Cost:           c.cost,
				Prev:           live[c.row],
			}
			if withAttention {
				h.Attention = append([]float32(nil), s.attention.Row(c.row)...)
			}
			stats.Hypotheses++
			if word == s.cfg.EOS || last {
				history.Add(h)
				continue
			}
			survivors = append(survivors, h)
		}
		if len(survivors) == 0 {
			break
		}
		if err := s.scorer.AssembleBeamState(out, survivors, next); err != nil {
			return nil, stats, errors.Wrapf(err, "step %d", step)
		}
		in, next = next, in
		live = survivors
	}
	return history.NBest(s.cfg.NBest, s.cfg.Normalize), stats, nil
}
