package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samcharles93/nmtdecode/internal/inference"
)

// MaxBeamSize bounds the beam a client may request.
const MaxBeamSize = 64

type TranslationService struct {
	provider EngineProvider
}

func NewTranslationService(provider EngineProvider) *TranslationService {
	return &TranslationService{provider: provider}
}

func (s *TranslationService) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResponse, error) {
	if err := validateTranslateRequest(req); err != nil {
		return nil, err
	}

	var resp *TranslateResponse
	err := s.provider.WithEngine(ctx, func(engine inference.Engine) error {
		inferReq := inference.ResolveRequest(toRequestOptions(req), engine.Info().Defaults)
		result, err := engine.Translate(ctx, &inferReq)
		if err != nil {
			return err
		}
		resp = buildTranslateResponse(result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *TranslationService) Model(ctx context.Context) (*ModelResponse, error) {
	var resp *ModelResponse
	err := s.provider.WithEngine(ctx, func(engine inference.Engine) error {
		info := engine.Info()
		resp = &ModelResponse{
			Object:      "model",
			DimEmb:      info.Config.DimEmb,
			DimRnn:      info.Config.DimRnn,
			DimOut:      info.Config.DimOut,
			SrcVocab:    info.Config.SrcVocab,
			TrgVocab:    info.Config.TrgVocab,
			Params:      info.Params,
			SourceWords: info.SourceVocab,
			TargetWords: info.TargetVocab,
			Shortlist:   info.Shortlist,
			Defaults: SearchDefault{
				BeamSize:  info.Defaults.BeamSize,
				NBest:     info.Defaults.NBest,
				MaxLength: info.Defaults.MaxLength,
				Normalize: info.Defaults.Normalize,
			},
		}
		return nil
	})
	return resp, err
}

func validateTranslateRequest(req *TranslateRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return newInvalidRequest("text is required")
	}
	if strings.ContainsAny(req.Text, "\r\n") {
		return newInvalidRequest("text must be a single sentence")
	}
	if req.BeamSize != nil && (*req.BeamSize <= 0 || *req.BeamSize > MaxBeamSize) {
		return newInvalidRequest(fmt.Sprintf("beam_size must be between 1 and %d", MaxBeamSize))
	}
	if req.NBest != nil && *req.NBest < 1 {
		return newInvalidRequest("n_best must be positive")
	}
	if req.MaxLength != nil && *req.MaxLength < 0 {
		return newInvalidRequest("max_length must not be negative")
	}
	return nil
}

func toRequestOptions(req *TranslateRequest) inference.RequestOptions {
	return inference.RequestOptions{
		Text:      req.Text,
		BeamSize:  req.BeamSize,
		NBest:     req.NBest,
		MaxLength: req.MaxLength,
		Normalize: req.Normalize,
		Alignment: req.Alignment,
	}
}

func buildTranslateResponse(result *inference.Result) *TranslateResponse {
	out := make([]TranslationOutput, 0, len(result.Translations))
	for _, t := range result.Translations {
		tokens := t.Tokens
		if tokens == nil {
			tokens = []int{}
		}
		out = append(out, TranslationOutput{
			Text:      t.Text,
			Tokens:    tokens,
			Score:     t.Score,
			Alignment: t.Alignment,
		})
	}
	return &TranslateResponse{
		ID:           result.ID,
		Object:       "translation",
		CreatedAt:    timeNow().Unix(),
		Source:       result.Source,
		Translations: out,
		Stats: TranslateStats{
			SourceTokens: result.Stats.SourceTokens,
			Steps:        result.Stats.Steps,
			Hypotheses:   result.Stats.Hypotheses,
			Filtered:     result.Stats.Filtered,
			DurationMS:   durationMS(result.Stats.Duration),
		},
	}
}

var timeNow = func() time.Time {
	return time.Now()
}
