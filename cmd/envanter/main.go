package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/senirlioglu/envanter-risk-analizi/internal/config"
	"github.com/senirlioglu/envanter-risk-analizi/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "envanter",
		Usage: "Analyze store inventory counts for shrinkage risk",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			level := cfg.Log.Level
			if c.IsSet("log-level") {
				level = c.String("log-level")
			}
			logger.Setup(level, cfg.Log.Format)
			return nil
		},
		Commands: []*cli.Command{
			analyzeCommand(),
			fetchCommand(),
			rosterCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("envanter failed")
	}
}
