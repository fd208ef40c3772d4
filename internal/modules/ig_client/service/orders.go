package service

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"ladder_bot/internal/models"
)

// WorkingOrders — актуальный список отложек. Вызывается заново перед
// каждой массовой отменой: локальному состоянию не верим.
func (c *Client) WorkingOrders(ctx context.Context) ([]models.WorkingOrder, error) {
	var r workingOrdersResponse
	if err := c.getJSON(ctx, "/workingorders", "workingorders", &r); err != nil {
		return nil, fmt.Errorf("WorkingOrders: %w", err)
	}

	out := make([]models.WorkingOrder, 0, len(r.WorkingOrders))
	for _, o := range r.WorkingOrders {
		out = append(out, models.WorkingOrder{
			DealID:    o.WorkingOrderData.DealID,
			Epic:      o.MarketData.Epic,
			Direction: models.Direction(o.WorkingOrderData.Direction),
			Size:      o.WorkingOrderData.OrderSize,
			Level:     o.WorkingOrderData.Level,
			Type:      o.WorkingOrderData.Type,
		})
	}
	return out, nil
}

// CancelOrder снимает отложенный ордер.
func (c *Client) CancelOrder(ctx context.Context, dealID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/workingorders/otc/"+dealID, "workingorders", nil)
	if err != nil {
		return fmt.Errorf("CancelOrder new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("CancelOrder do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("CancelOrder http %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
