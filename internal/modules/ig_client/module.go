package ig_client

import (
	"context"

	"go.uber.org/fx"

	"ladder_bot/internal/modules/config"
	"ladder_bot/internal/modules/ig_client/service"
)

func Module() fx.Option {
	return fx.Module("ig_client",
		fx.Provide(
			service.NewClient,
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, cfg *config.Config) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return c.Connect(ctx, cfg.ActiveCredentials())
				},
				OnStop: func(ctx context.Context) error {
					c.Disconnect(ctx)
					return nil
				},
			})
		}),
	)
}
