package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/safetensors"
)

func inspectCmd() *cli.Command {
	var (
		path         string
		showTensors  bool
		tensorFilter string
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a .safetensors model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to .safetensors file",
				Sources:     cli.EnvVars(envModelPath),
				Destination: &path,
				Required:    true,
			},
			&cli.BoolFlag{Name: "tensors", Usage: "list tensors", Destination: &showTensors},
			&cli.StringFlag{Name: "filter", Usage: "only list tensors containing this substring", Destination: &tensorFilter},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			st, err := os.Stat(path)
			if err != nil {
				return err
			}
			w, err := model.Load(path)
			if err != nil {
				return err
			}
			c := w.Config
			fmt.Printf("file:       %s (%s)\n", path, humanize.Bytes(uint64(st.Size())))
			fmt.Printf("params:     %s\n", humanize.Comma(int64(w.ParamCount())))
			fmt.Printf("dim_emb:    %d\n", c.DimEmb)
			fmt.Printf("dim_rnn:    %d\n", c.DimRnn)
			fmt.Printf("dim_ctx:    %d\n", c.DimCtx())
			fmt.Printf("dim_out:    %d\n", c.DimOut)
			fmt.Printf("src_vocab:  %s\n", humanize.Comma(int64(c.SrcVocab)))
			fmt.Printf("trg_vocab:  %s\n", humanize.Comma(int64(c.TrgVocab)))

			if !showTensors {
				return nil
			}
			f, err := safetensors.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			names := make([]string, 0, len(f.Tensors))
			for name := range f.Tensors {
				if tensorFilter == "" || strings.Contains(name, tensorFilter) {
					names = append(names, name)
				}
			}
			sort.Strings(names)
			fmt.Printf("\ntensors (%d):\n", len(names))
			for _, name := range names {
				info := f.Tensors[name]
				fmt.Printf("  %-24s %-5s %v %s\n", name, info.DType, info.Shape, humanize.Bytes(uint64(info.End-info.Start)))
			}
			return nil
		},
	}
}
