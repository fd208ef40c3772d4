package service

import (
	"context"
	"fmt"
	"time"

	"ladder_bot/internal/models"
)

// MarketPrice — текущий снапшот bid/offer/mid по эпику.
func (c *Client) MarketPrice(ctx context.Context, epic string) (models.PriceSnapshot, error) {
	var r marketResponse
	if err := c.getJSON(ctx, "/markets/"+epic, "markets", &r); err != nil {
		return models.PriceSnapshot{}, fmt.Errorf("MarketPrice: %w", err)
	}

	if r.Snapshot.Bid == nil || r.Snapshot.Offer == nil {
		return models.PriceSnapshot{}, fmt.Errorf("MarketPrice: no quote for %s (status=%s)", epic, r.Snapshot.MarketStatus)
	}

	bid, offer := *r.Snapshot.Bid, *r.Snapshot.Offer
	return models.PriceSnapshot{
		Bid:          bid,
		Offer:        offer,
		Mid:          (bid + offer) / 2,
		MarketStatus: r.Snapshot.MarketStatus,
	}, nil
}

// Candles — исторические бары через /prices. Цены берём по bid, как и
// всё остальное сравнение уровней.
func (c *Client) Candles(ctx context.Context, epic, resolution string, maxPoints int) ([]models.Candle, error) {
	if maxPoints <= 0 {
		maxPoints = 200
	}
	path := fmt.Sprintf("/prices/%s?resolution=%s&max=%d", epic, normResolution(resolution), maxPoints)

	var r pricesResponse
	if err := c.getJSON(ctx, path, "prices", &r); err != nil {
		return nil, fmt.Errorf("Candles: %w", err)
	}

	out := make([]models.Candle, 0, len(r.Prices))
	for _, p := range r.Prices {
		if p.OpenPrice.Bid == nil || p.ClosePrice.Bid == nil ||
			p.HighPrice.Bid == nil || p.LowPrice.Bid == nil {
			continue
		}
		ts, _ := time.Parse("2006/01/02 15:04:05", p.SnapshotTime)
		out = append(out, models.Candle{
			Time:  ts,
			Open:  *p.OpenPrice.Bid,
			High:  *p.HighPrice.Bid,
			Low:   *p.LowPrice.Bid,
			Close: *p.ClosePrice.Bid,
		})
	}
	return out, nil
}

func normResolution(raw string) string {
	switch raw {
	case "", "1m", "MINUTE":
		return "MINUTE"
	case "5m":
		return "MINUTE_5"
	case "15m":
		return "MINUTE_15"
	case "30m":
		return "MINUTE_30"
	case "1h", "HOUR":
		return "HOUR"
	case "4h":
		return "HOUR_4"
	case "1d", "DAY":
		return "DAY"
	default:
		return raw
	}
}
