package service

import (
	"context"
	"fmt"

	"ladder_bot/internal/models"
)

// AccountInfo — баланс и маржа первичного счёта.
func (c *Client) AccountInfo(ctx context.Context) (models.AccountInfo, error) {
	var r accountsResponse
	if err := c.getJSON(ctx, "/accounts", "accounts", &r); err != nil {
		return models.AccountInfo{}, fmt.Errorf("AccountInfo: %w", err)
	}
	if len(r.Accounts) == 0 {
		return models.AccountInfo{}, fmt.Errorf("AccountInfo: empty accounts list")
	}

	a := r.Accounts[0]
	return models.AccountInfo{
		AccountID:  a.AccountID,
		Balance:    a.Balance.Balance,
		Available:  a.Balance.Available,
		Deposit:    a.Balance.Deposit,
		ProfitLoss: a.Balance.ProfitLoss,
	}, nil
}
