package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"ladder_bot/internal/flatten"
	"ladder_bot/internal/journal"
	"ladder_bot/internal/ladder"
	"ladder_bot/internal/marketdata"
	"ladder_bot/internal/modules/config"
	"ladder_bot/internal/modules/ig_client"
	igsvc "ladder_bot/internal/modules/ig_client/service"
	telegram "ladder_bot/internal/modules/telegram_bot"
	"ladder_bot/internal/risk"
	"ladder_bot/internal/runner"
	"ladder_bot/pkg/logger"
	"ladder_bot/pkg/tracing"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("ladder_bot")
	tracing.SetServiceName("ladder_bot")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		ig_client.Module(),
		runner.Module(),
		fx.Provide(
			func(cfg *config.Config) *journal.Store {
				return journal.NewStore(cfg.JournalPath)
			},
			func(c *igsvc.Client, j *journal.Store) *ladder.Engine {
				return ladder.New(c, j)
			},
			func(c *igsvc.Client, cfg *config.Config) *risk.Gate {
				return risk.New(c, cfg.Risk)
			},
			func(c *igsvc.Client) *marketdata.Accessor {
				return marketdata.New(c)
			},
			ladder.NewRegistry,
			func(c *igsvc.Client, m *runner.Manager, reg *ladder.Registry) *flatten.Flattener {
				return flatten.New(c, m, reg)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			if cfg.Jaeger.Host == "" {
				return
			}
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				logger.Error("tracer init failed: %v", err)
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
		}),
		telegram.Module(),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
}
