package marketdata

import (
	"context"
	"fmt"

	"ladder_bot/internal/models"
)

type Gateway interface {
	MarketPrice(ctx context.Context, epic string) (models.PriceSnapshot, error)
	Candles(ctx context.Context, epic, resolution string, maxPoints int) ([]models.Candle, error)
}

// Accessor — тонкая обёртка над гейтвеем для цен и баров.
type Accessor struct {
	gw Gateway
}

func New(gw Gateway) *Accessor {
	return &Accessor{gw: gw}
}

func (a *Accessor) Snapshot(ctx context.Context, epic string) (models.PriceSnapshot, error) {
	return a.gw.MarketPrice(ctx, epic)
}

func (a *Accessor) MidPrice(ctx context.Context, epic string) (float64, error) {
	snap, err := a.gw.MarketPrice(ctx, epic)
	if err != nil {
		return 0, err
	}
	return snap.Mid, nil
}

func (a *Accessor) RecentBars(ctx context.Context, epic, resolution string, lookback int) ([]models.Candle, error) {
	return a.gw.Candles(ctx, epic, resolution, lookback)
}

// RecentHighLow — экстремумы за lookback минутных баров.
func (a *Accessor) RecentHighLow(ctx context.Context, epic string, lookback int) (high, low float64, err error) {
	bars, err := a.gw.Candles(ctx, epic, "MINUTE", lookback)
	if err != nil {
		return 0, 0, err
	}
	if len(bars) == 0 {
		return 0, 0, fmt.Errorf("marketdata: no bars for %s", epic)
	}

	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// IsBreakingHigh — текущий mid выше недавнего максимума с буфером.
func (a *Accessor) IsBreakingHigh(ctx context.Context, epic string, buffer float64, lookback int) (bool, error) {
	high, _, err := a.RecentHighLow(ctx, epic, lookback)
	if err != nil {
		return false, err
	}
	mid, err := a.MidPrice(ctx, epic)
	if err != nil {
		return false, err
	}
	return mid > high+buffer, nil
}
