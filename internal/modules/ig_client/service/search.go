package service

import (
	"context"
	"fmt"
	"net/url"
)

type MarketHit struct {
	Epic string
	Name string
}

// SearchMarkets — поиск инструментов по подстроке имени.
func (c *Client) SearchMarkets(ctx context.Context, term string) ([]MarketHit, error) {
	var r marketSearchResponse
	path := "/markets?searchTerm=" + url.QueryEscape(term)
	if err := c.getJSON(ctx, path, "search", &r); err != nil {
		return nil, fmt.Errorf("SearchMarkets: %w", err)
	}

	out := make([]MarketHit, 0, len(r.Markets))
	for _, m := range r.Markets {
		out = append(out, MarketHit{Epic: m.Epic, Name: m.InstrumentName})
	}
	return out, nil
}
