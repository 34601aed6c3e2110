package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nmtdecode/internal/inference"
	"github.com/samcharles93/nmtdecode/internal/logger"
)

func translateCmd() *cli.Command {
	var (
		inputPath  string
		outputPath string
		alignment  bool
		showStats  bool
	)

	return &cli.Command{
		Name:  "translate",
		Usage: "Translate tokenized text, one sentence per line",
		Flags: append(append(modelFlags(), searchFlags()...),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "input file (default: stdin)",
				Destination: &inputPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output file (default: stdout)",
				Destination: &outputPath,
			},
			&cli.BoolFlag{
				Name:        "alignment",
				Usage:       "append hard word alignments to each output line",
				Destination: &alignment,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "log per-sentence search statistics",
				Destination: &showStats,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, cfg)
			applySearchConfig(cmd, cfg)

			files, err := resolveModelFiles(modelPath, sourceVocabPath, targetVocabPath, shortlistPath)
			if err != nil {
				return err
			}
			defaults := searchDefaults()
			defaults.Alignment = alignment

			loadStart := time.Now()
			loaded, err := files.loader(defaults).Load(files.Model)
			if err != nil {
				return err
			}
			for _, w := range loaded.Warnings {
				log.Warn(w)
			}
			log.Info("model loaded",
				"path", files.Model,
				"shortlist", files.Shortlist != "",
				"duration", time.Since(loadStart),
			)
			engine := loaded.Engine
			defer func() { _ = engine.Close() }()

			in := io.Reader(os.Stdin)
			total := -1
			if inputPath != "" {
				data, err := os.ReadFile(inputPath)
				if err != nil {
					return errors.Wrap(err, "read input")
				}
				total = countLines(data)
				in = bytes.NewReader(data)
			}

			out := io.Writer(os.Stdout)
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return errors.Wrap(err, "create output")
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			bw := bufio.NewWriter(out)
			defer func() { _ = bw.Flush() }()

			var bar *progressbar.ProgressBar
			if total > 0 && outputPath != "" && logger.IsTerminal(os.Stderr) {
				bar = newProgressBar(total)
				defer func() { _ = bar.Finish() }()
			}

			opts := translateOptions{nBest: int(nBest), alignment: alignment}
			return translateStream(ctx, engine, in, bw, opts, func(line int, res *inference.Result) {
				if bar != nil {
					_ = bar.Add(1)
				}
				if showStats && res != nil {
					log.Info("sentence",
						"line", line,
						"source_tokens", res.Stats.SourceTokens,
						"steps", res.Stats.Steps,
						"hypotheses", res.Stats.Hypotheses,
						"duration", res.Stats.Duration,
					)
				}
			})
		},
	}
}

type translateOptions struct {
	nBest     int
	alignment bool
}

// translateStream decodes every line of in and writes the results to out.
// Blank lines produce blank output lines so line numbers stay aligned. With
// nBest > 1 the output uses the "index ||| text ||| score" layout.
func translateStream(ctx context.Context, engine inference.Engine, in io.Reader, out io.Writer, opts translateOptions, done func(int, *inference.Result)) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	defaults := engine.Info().Defaults

	line := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			if opts.nBest <= 1 {
				if _, err := fmt.Fprintln(out); err != nil {
					return err
				}
			}
			if done != nil {
				done(line, nil)
			}
			line++
			continue
		}

		req := inference.ResolveRequest(inference.RequestOptions{Text: text}, defaults)
		res, err := engine.Translate(ctx, &req)
		if err != nil {
			return errors.Wrapf(err, "line %d", line+1)
		}
		if err := writeResult(out, line, res, opts); err != nil {
			return err
		}
		if done != nil {
			done(line, res)
		}
		line++
	}
	return sc.Err()
}

func writeResult(w io.Writer, line int, res *inference.Result, opts translateOptions) error {
	if opts.nBest <= 1 {
		text := ""
		var align [][]float32
		if len(res.Translations) > 0 {
			text = res.Translations[0].Text
			align = res.Translations[0].Alignment
		}
		if opts.alignment {
			_, err := fmt.Fprintf(w, "%s ||| %s\n", text, hardAlignment(align))
			return err
		}
		_, err := fmt.Fprintln(w, text)
		return err
	}
	for _, t := range res.Translations {
		var err error
		if opts.alignment {
			_, err = fmt.Fprintf(w, "%d ||| %s ||| %g ||| %s\n", line, t.Text, t.Score, hardAlignment(t.Alignment))
		} else {
			_, err = fmt.Fprintf(w, "%d ||| %s ||| %g\n", line, t.Text, t.Score)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// hardAlignment links every target word to its highest-weighted source
// position, as space separated "src-trg" pairs.
func hardAlignment(soft [][]float32) string {
	var sb strings.Builder
	for t, row := range soft {
		if len(row) == 0 {
			continue
		}
		best := 0
		for s := 1; s < len(row); s++ {
			if row[s] > row[best] {
				best = s
			}
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d-%d", best, t)
	}
	return sb.String()
}

func countLines(data []byte) int {
	n := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("translating"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("sent"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionClearOnFinish(),
	)
}
