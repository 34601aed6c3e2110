package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nmtdecode/internal/api"
	"github.com/samcharles93/nmtdecode/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		storeSize   int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the translation REST API",
		Flags: append(append(modelFlags(), searchFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "store-size",
				Usage:       "number of translations kept for GET /v1/translations/:id",
				Value:       api.DefaultStoreSize,
				Destination: &storeSize,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, cfg)
			applySearchConfig(cmd, cfg)
			applyServeConfig(cmd, cfg, &addr, &storeSize)

			files, err := resolveModelFiles(modelPath, sourceVocabPath, targetVocabPath, shortlistPath)
			if err != nil {
				return err
			}
			loaded, err := files.loader(searchDefaults()).Load(files.Model)
			if err != nil {
				return err
			}
			for _, w := range loaded.Warnings {
				log.Warn(w)
			}

			provider := api.NewLockedEngineProvider(loaded.Engine)
			defer func() { _ = provider.Close() }()

			store := api.NewTranslationStore(int(storeSize))
			service := api.NewTranslationService(provider)
			server := api.NewServer(store, service)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server",
				"address", addr,
				"model", files.Model,
				"params", loaded.Weights.ParamCount(),
			)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
