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

// PlaceStopOrder ставит стоп-энтри на уровень. Результат типизирован:
// Accepted / Rejected(reason) / TransportError — решается здесь, по
// HTTP-статусу и подтверждению сделки, ядро тело ответа не видит.
func (c *Client) PlaceStopOrder(ctx context.Context, epic string, direction models.Direction, size, level float64) models.Placement {
	return c.placeWorkingOrder(ctx, epic, direction, size, level, "STOP")
}

// PlaceLimitOrder — лимитник, используется как парный тейк к ступени.
func (c *Client) PlaceLimitOrder(ctx context.Context, epic string, direction models.Direction, size, level float64) models.Placement {
	return c.placeWorkingOrder(ctx, epic, direction, size, level, "LIMIT")
}

func (c *Client) placeWorkingOrder(ctx context.Context, epic string, direction models.Direction, size, level float64, orderType string) models.Placement {
	body := map[string]any{
		"epic":           epic,
		"expiry":         expiryFor(epic),
		"direction":      string(direction),
		"size":           strconv.FormatFloat(size, 'f', -1, 64),
		"level":          strconv.FormatFloat(level, 'f', 2, 64),
		"type":           orderType,
		"timeInForce":    "GOOD_TILL_CANCELLED",
		"goodTillDate":   nil,
		"guaranteedStop": "false",
		"currencyCode":   "GBP",
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return models.TransportError(fmt.Sprintf("placeWorkingOrder marshal: %v", err))
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/workingorders/otc", "workingorders", payload)
	if err != nil {
		return models.TransportError(fmt.Sprintf("placeWorkingOrder new request: %v", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.TransportError(fmt.Sprintf("placeWorkingOrder do: %v", err))
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.TransportError(fmt.Sprintf("placeWorkingOrder http %d: %s", resp.StatusCode, string(data)))
	}

	var r dealReferenceResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.TransportError(fmt.Sprintf("placeWorkingOrder decode: %v; body=%s", err, string(data)))
	}
	if r.DealReference == "" {
		return models.TransportError(fmt.Sprintf("placeWorkingOrder: empty dealReference body=%s", string(data)))
	}

	// заявка принята транспортом — фактический статус смотрим в confirms
	confirm, err := c.DealConfirm(ctx, r.DealReference)
	if err != nil {
		return models.TransportError(fmt.Sprintf("placeWorkingOrder confirm: %v", err))
	}
	if confirm.DealStatus != "ACCEPTED" {
		return models.Rejected(confirm.Reason)
	}
	return models.Accepted(r.DealReference)
}

// DealConfirm — статус сделки по dealReference.
func (c *Client) DealConfirm(ctx context.Context, dealReference string) (models.DealConfirm, error) {
	var r confirmResponse
	if err := c.getJSON(ctx, "/confirms/"+dealReference, "confirms", &r); err != nil {
		return models.DealConfirm{}, fmt.Errorf("DealConfirm: %w", err)
	}
	return models.DealConfirm{
		DealReference: r.DealReference,
		DealID:        r.DealID,
		DealStatus:    r.DealStatus,
		Reason:        r.Reason,
	}, nil
}
