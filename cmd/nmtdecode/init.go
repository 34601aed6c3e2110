package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nmtdecode/internal/logger"
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/vocab"
)

// initCmd writes a randomly initialised model with synthetic vocabularies.
// The result exercises the whole pipeline without a trained model.
func initCmd() *cli.Command {
	var (
		outDir string
		dtype  string
		seed   int64
		dimEmb int64
		dimRnn int64
		dimOut int64
		srcV   int64
		trgV   int64
	)

	return &cli.Command{
		Name:  "init",
		Usage: "Write a random model and matching vocabularies",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Required: true, Destination: &outDir},
			&cli.StringFlag{Name: "dtype", Usage: "tensor dtype (F32 or F16)", Value: "F32", Destination: &dtype},
			&cli.Int64Flag{Name: "seed", Value: 1, Destination: &seed},
			&cli.Int64Flag{Name: "dim-emb", Value: 32, Destination: &dimEmb},
			&cli.Int64Flag{Name: "dim-rnn", Value: 64, Destination: &dimRnn},
			&cli.Int64Flag{Name: "dim-out", Value: 32, Destination: &dimOut},
			&cli.Int64Flag{Name: "src-vocab-size", Value: 100, Destination: &srcV},
			&cli.Int64Flag{Name: "trg-vocab-size", Value: 100, Destination: &trgV},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			mc := model.Config{
				DimEmb:   int(dimEmb),
				DimRnn:   int(dimRnn),
				DimOut:   int(dimOut),
				SrcVocab: int(srcV),
				TrgVocab: int(trgV),
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return errors.Wrap(err, "create output directory")
			}
			w, err := model.Random(mc, seed)
			if err != nil {
				return err
			}
			modelOut := filepath.Join(outDir, "model.safetensors")
			if err := model.Save(modelOut, w, dtype); err != nil {
				return err
			}
			if err := writeSyntheticVocab(filepath.Join(outDir, defaultSourceVocab), "s", mc.SrcVocab); err != nil {
				return err
			}
			if err := writeSyntheticVocab(filepath.Join(outDir, defaultTargetVocab), "t", mc.TrgVocab); err != nil {
				return err
			}
			log.Info("model written",
				"path", modelOut,
				"params", humanize.Comma(int64(w.ParamCount())),
				"dtype", dtype,
			)
			return nil
		},
	}
}

// writeSyntheticVocab saves a vocabulary of size entries: the two reserved
// words followed by prefix0, prefix1, ...
func writeSyntheticVocab(path, prefix string, size int) error {
	if size < 2 {
		return errors.Errorf("vocabulary size %d leaves no room for %s and %s", size, vocab.EOS, vocab.UNK)
	}
	words := make([]string, 0, size-2)
	for i := range size - 2 {
		words = append(words, fmt.Sprintf("%s%d", prefix, i))
	}
	v, err := vocab.New(words)
	if err != nil {
		return err
	}
	return v.Save(path)
}
