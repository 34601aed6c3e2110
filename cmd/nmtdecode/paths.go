package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/inference"
	"github.com/samcharles93/nmtdecode/internal/search"
)

// Files looked up next to the model when no explicit path is given.
const (
	defaultSourceVocab = "vocab.src.yaml"
	defaultTargetVocab = "vocab.trg.yaml"
	defaultShortlist   = "shortlist.yaml"
)

type modelFiles struct {
	Model       string
	SourceVocab string
	TargetVocab string
	Shortlist   string
}

// resolveModelFiles completes the vocabulary and shortlist paths from the
// model location. Only the shortlist is optional.
func resolveModelFiles(model, srcVocab, trgVocab, shortlist string) (modelFiles, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return modelFiles{}, errors.Errorf("--model is required unless %s is set", envModelPath)
	}
	files := modelFiles{Model: filepath.Clean(model)}
	dir := filepath.Dir(files.Model)

	files.SourceVocab = pathOrSibling(srcVocab, dir, defaultSourceVocab)
	files.TargetVocab = pathOrSibling(trgVocab, dir, defaultTargetVocab)
	for _, p := range []string{files.Model, files.SourceVocab, files.TargetVocab} {
		if !fileExists(p) {
			return modelFiles{}, errors.Errorf("%s: no such file", p)
		}
	}

	if s := strings.TrimSpace(shortlist); s != "" {
		files.Shortlist = filepath.Clean(s)
		if !fileExists(files.Shortlist) {
			return modelFiles{}, errors.Errorf("%s: no such file", files.Shortlist)
		}
	} else if cand := filepath.Join(dir, defaultShortlist); fileExists(cand) {
		files.Shortlist = cand
	}
	return files, nil
}

func (f modelFiles) loader(defaults search.Config) inference.Loader {
	return inference.Loader{
		SourceVocabPath: f.SourceVocab,
		TargetVocabPath: f.TargetVocab,
		ShortlistPath:   f.Shortlist,
		Search:          defaults,
	}
}

func pathOrSibling(flag, dir, name string) string {
	if s := strings.TrimSpace(flag); s != "" {
		return filepath.Clean(s)
	}
	return filepath.Join(dir, name)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func searchDefaults() search.Config {
	return search.Config{
		BeamSize:  int(beamSize),
		NBest:     int(nBest),
		MaxLength: int(maxLength),
		Normalize: normalize,
	}
}
