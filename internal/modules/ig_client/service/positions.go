package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"ladder_bot/internal/models"
)

// OpenPositions — открытые позиции с текущими котировками рынка.
func (c *Client) OpenPositions(ctx context.Context) ([]models.OpenPosition, error) {
	var r positionsResponse
	if err := c.getJSON(ctx, "/positions", "positions", &r); err != nil {
		return nil, fmt.Errorf("OpenPositions: %w", err)
	}

	out := make([]models.OpenPosition, 0, len(r.Positions))
	for _, p := range r.Positions {
		size := p.Position.Size
		if size == 0 {
			size = p.Position.DealSize
		}
		out = append(out, models.OpenPosition{
			DealID:    p.Position.DealID,
			Epic:      p.Market.Epic,
			Direction: models.Direction(p.Position.Direction),
			Size:      size,
			OpenLevel: p.Position.OpenLevel,
			StopLevel: p.Position.StopLevel,
			Bid:       p.Market.Bid,
			Offer:     p.Market.Offer,
		})
	}
	return out, nil
}

// ClosePosition закрывает позицию маркетом в противоположную сторону на
// полный размер.
func (c *Client) ClosePosition(ctx context.Context, pos models.OpenPosition) models.Placement {
	body := map[string]any{
		"dealId":      pos.DealID,
		"direction":   string(pos.Direction.Opposite()),
		"size":        strconv.FormatFloat(pos.Size, 'f', -1, 64),
		"orderType":   "MARKET",
		"timeInForce": "FILL_OR_KILL",
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return models.TransportError(fmt.Sprintf("ClosePosition marshal: %v", err))
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/positions/otc", "positions.otc", payload)
	if err != nil {
		return models.TransportError(fmt.Sprintf("ClosePosition new request: %v", err))
	}
	// IG закрывает через POST с перегрузкой метода
	req.Header.Set("_method", "DELETE")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.TransportError(fmt.Sprintf("ClosePosition do: %v", err))
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.TransportError(fmt.Sprintf("ClosePosition http %d: %s", resp.StatusCode, string(data)))
	}

	var r dealReferenceResponse
	if err := sonic.Unmarshal(data, &r); err != nil || r.DealReference == "" {
		return models.TransportError(fmt.Sprintf("ClosePosition decode: %v; body=%s", err, string(data)))
	}

	confirm, err := c.DealConfirm(ctx, r.DealReference)
	if err != nil {
		return models.TransportError(fmt.Sprintf("ClosePosition confirm: %v", err))
	}
	if confirm.DealStatus != "ACCEPTED" {
		return models.Rejected(confirm.Reason)
	}
	return models.Accepted(r.DealReference)
}

// UpdatePositionStop двигает стоп открытой позиции (трейлинг).
func (c *Client) UpdatePositionStop(ctx context.Context, dealID string, stopLevel float64) models.Placement {
	body := map[string]any{
		"stopLevel": strconv.FormatFloat(stopLevel, 'f', 2, 64),
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return models.TransportError(fmt.Sprintf("UpdatePositionStop marshal: %v", err))
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/positions/otc/"+dealID, "positions.amnd", payload)
	if err != nil {
		return models.TransportError(fmt.Sprintf("UpdatePositionStop new request: %v", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.TransportError(fmt.Sprintf("UpdatePositionStop do: %v", err))
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.TransportError(fmt.Sprintf("UpdatePositionStop http %d: %s", resp.StatusCode, string(data)))
	}

	var r dealReferenceResponse
	if err := sonic.Unmarshal(data, &r); err != nil || r.DealReference == "" {
		return models.TransportError(fmt.Sprintf("UpdatePositionStop decode: %v; body=%s", err, string(data)))
	}

	confirm, err := c.DealConfirm(ctx, r.DealReference)
	if err != nil {
		return models.TransportError(fmt.Sprintf("UpdatePositionStop confirm: %v", err))
	}
	if confirm.DealStatus != "ACCEPTED" {
		return models.Rejected(confirm.Reason)
	}
	return models.Accepted(r.DealReference)
}
