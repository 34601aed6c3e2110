package inference

import (
	"context"
	"time"

	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/search"
)

type Engine interface {
	Translate(ctx context.Context, req *Request) (*Result, error)
	Info() ModelInfo
	Close() error
}

type Request struct {
	Text string

	BeamSize  int
	NBest     int
	MaxLength int
	Normalize bool
	Alignment bool
}

// SearchConfig is the beam search setup of req.
func (r *Request) SearchConfig() search.Config {
	return search.Config{
		BeamSize:  r.BeamSize,
		MaxLength: r.MaxLength,
		NBest:     r.NBest,
		Normalize: r.Normalize,
		Alignment: r.Alignment,
	}
}

type Translation struct {
	Text   string
	Words  []string
	Tokens []int
	Score  float32
	// Alignment has one row per entry of Words, over the source tokens
	// including the end-of-sentence marker. It is nil unless requested.
	Alignment [][]float32
}

type Result struct {
	ID           string
	Source       []string
	Translations []Translation
	Stats        Stats
}

type Stats struct {
	SourceTokens int
	Steps        int
	Hypotheses   int
	Filtered     int
	Duration     time.Duration
	// TPS is output words per second of the best translation.
	TPS float64
}

// ModelInfo summarizes a loaded engine.
type ModelInfo struct {
	Config      model.Config
	Params      int
	SourceVocab int
	TargetVocab int
	Shortlist   bool
	Defaults    search.Config
}
