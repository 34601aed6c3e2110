package inference

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/beam"
	"github.com/samcharles93/nmtdecode/internal/logger"
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/scorer"
	"github.com/samcharles93/nmtdecode/internal/search"
	"github.com/samcharles93/nmtdecode/internal/vocab"
)

var (
	// ErrEmptyInput is returned for a request without source words.
	ErrEmptyInput = errors.New("empty input text")
	// ErrDecodePanic wraps a panic raised while decoding one sentence.
	ErrDecodePanic = errors.New("panic during decoding")
)

// EngineImpl translates one sentence at a time. It is not safe for
// concurrent use.
type EngineImpl struct {
	weights   *model.Weights
	scorer    *scorer.EncoderDecoder
	source    *vocab.Vocab
	target    *vocab.Vocab
	shortlist *vocab.Shortlist
	defaults  search.Config
}

// NewEngine assembles an engine from loaded parts. shortlist may be nil.
func NewEngine(w *model.Weights, source, target *vocab.Vocab, shortlist *vocab.Shortlist, defaults search.Config) *EngineImpl {
	return &EngineImpl{
		weights:   w,
		scorer:    scorer.New(w),
		source:    source,
		target:    target,
		shortlist: shortlist,
		defaults:  defaults,
	}
}

func (e *EngineImpl) Close() error {
	return nil
}

func (e *EngineImpl) Info() ModelInfo {
	return ModelInfo{
		Config:      e.weights.Config,
		Params:      e.weights.ParamCount(),
		SourceVocab: e.source.Size(),
		TargetVocab: e.target.Size(),
		Shortlist:   e.shortlist != nil,
		Defaults:    e.defaults,
	}
}

// Defaults is the search configuration used for fields a request leaves
// unset.
func (e *EngineImpl) Defaults() search.Config {
	return e.defaults
}

func (e *EngineImpl) Translate(ctx context.Context, req *Request) (*Result, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if req == nil {
		return nil, errors.New("request is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	id := uuid.NewString()
	log := logger.FromContext(ctx).With("request_id", id)

	words := vocab.Tokenize(req.Text)
	if len(words) == 0 {
		return nil, ErrEmptyInput
	}
	ids := e.encode(words)

	cfg := req.SearchConfig()
	cfg.EOS = vocab.EOSID
	s, err := search.New[*scorer.State](e.scorer, cfg)
	if err != nil {
		return nil, err
	}

	filtered := 0
	if e.shortlist != nil {
		allowed := e.shortlist.Filter(words)
		allowed = slices.DeleteFunc(allowed, func(id int) bool {
			return id >= e.weights.Config.TrgVocab
		})
		if err := e.scorer.Filter(allowed); err != nil {
			return nil, errors.Wrap(err, "apply shortlist")
		}
		filtered = len(allowed)
	}

	results, st, err := safeDecode(ctx, s, ids)
	if err != nil {
		log.Warn("decode failed", "error", err)
		return nil, err
	}

	res := &Result{
		ID:           id,
		Source:       words,
		Translations: make([]Translation, 0, len(results)),
		Stats: Stats{
			SourceTokens: len(ids),
			Steps:        st.Steps,
			Hypotheses:   st.Hypotheses,
			Filtered:     filtered,
		},
	}
	for _, r := range results {
		out := e.target.Decode(r.Words)
		res.Translations = append(res.Translations, Translation{
			Text:      vocab.Detokenize(out),
			Words:     out,
			Tokens:    r.Words,
			Score:     r.Score,
			Alignment: r.Alignment,
		})
	}

	res.Stats.Duration = time.Since(start)
	if len(res.Translations) > 0 && res.Stats.Duration.Seconds() > 0 {
		res.Stats.TPS = float64(len(res.Translations[0].Words)) / res.Stats.Duration.Seconds()
	}
	log.Debug("translated",
		"source_tokens", res.Stats.SourceTokens,
		"steps", res.Stats.Steps,
		"duration", res.Stats.Duration,
	)
	return res, nil
}

// encode maps words to source ids. Ids the model has no embedding for fall
// back to UNK, since vocabularies are often larger than the trained table.
func (e *EngineImpl) encode(words []string) []int {
	ids := e.source.Encode(words)
	for i, id := range ids {
		if id >= e.weights.Config.SrcVocab {
			ids[i] = vocab.UNKID
		}
	}
	return ids
}

func safeDecode(ctx context.Context, s *search.Search[*scorer.State], ids []int) (results []beam.Result, st search.Stats, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Wrapf(ErrDecodePanic, "%v", rec)
		}
	}()
	return s.Decode(ctx, ids)
}
