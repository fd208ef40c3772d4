package telegram

import (
	"context"

	"go.uber.org/fx"

	"ladder_bot/internal/modules/telegram_bot/service"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewTelegram,
		),
		fx.Invoke(func(lc fx.Lifecycle, t *service.Telegram, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						_ = t.Start(ctx)
					}()
					go t.RiskTicker(ctx)
					return nil
				},
			})
		}),
	)
}
