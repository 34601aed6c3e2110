package inference

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/search"
	"github.com/samcharles93/nmtdecode/internal/vocab"
)

type Loader struct {
	SourceVocabPath string
	TargetVocabPath string
	ShortlistPath   string
	Search          search.Config
}

type LoadResult struct {
	Engine      *EngineImpl
	Weights     *model.Weights
	SourceVocab *vocab.Vocab
	TargetVocab *vocab.Vocab
	Warnings    []string
}

func (l Loader) Load(modelPath string) (*LoadResult, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is required")
	}
	if l.SourceVocabPath == "" || l.TargetVocabPath == "" {
		return nil, errors.New("source and target vocabularies are required")
	}
	if err := l.Search.Validate(); err != nil {
		return nil, err
	}

	w, err := model.Load(modelPath)
	if err != nil {
		return nil, err
	}
	src, err := vocab.Load(l.SourceVocabPath)
	if err != nil {
		return nil, err
	}
	trg, err := vocab.Load(l.TargetVocabPath)
	if err != nil {
		return nil, err
	}

	var sl *vocab.Shortlist
	if l.ShortlistPath != "" {
		sl, err = vocab.LoadShortlist(l.ShortlistPath, trg)
		if err != nil {
			return nil, err
		}
	}

	res := &LoadResult{
		Engine:      NewEngine(w, src, trg, sl, l.Search),
		Weights:     w,
		SourceVocab: src,
		TargetVocab: trg,
	}
	if src.Size() != w.Config.SrcVocab {
		res.Warnings = append(res.Warnings, vocabMismatch("source", src.Size(), w.Config.SrcVocab))
	}
	if trg.Size() != w.Config.TrgVocab {
		res.Warnings = append(res.Warnings, vocabMismatch("target", trg.Size(), w.Config.TrgVocab))
	}
	return res, nil
}

func vocabMismatch(side string, vocabSize, modelSize int) string {
	return fmt.Sprintf("%s vocabulary has %d entries, model has %d", side, vocabSize, modelSize)
}
