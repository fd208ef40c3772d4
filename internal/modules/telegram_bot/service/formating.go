package service

import (
	"fmt"
	"strings"

	"ladder_bot/internal/models"
)

func formatRiskSummary(s models.RiskSummary) string {
	var b strings.Builder
	b.WriteString("🩺 Risk summary\n")
	fmt.Fprintf(&b, "Balance: %.2f (available %.2f)\n", s.Balance, s.Available)
	fmt.Fprintf(&b, "Daily P&L: %.2f (limit -%.2f)\n", s.DailyPnL, s.DailyLossLimit)
	fmt.Fprintf(&b, "Unrealized: %.2f\n", s.UnrealizedPnL)
	fmt.Fprintf(&b, "Positions: %d/%d | max size %.2f", s.OpenPositions, s.MaxPositions, s.SizeLimit)
	return b.String()
}

func formatVerdict(v models.RiskVerdict) string {
	var b strings.Builder
	if v.Allowed {
		b.WriteString("✅ Risk checks passed\n")
	} else {
		b.WriteString("🚫 Trade blocked by risk checks\n")
	}
	for _, c := range v.Checks {
		mark := "✅"
		if !c.Passed {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", mark, c.Name, c.Message)
	}
	return b.String()
}

func formatLadderReport(r models.LadderReport) string {
	if r.PriceError != "" {
		return fmt.Sprintf("❗️ [%s] ladder aborted: %s", r.Epic, r.PriceError)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🪜 [%s] %s ladder: %d/%d placed (mid %.2f)\n", r.Epic, r.Direction, r.Successful, r.Total, r.MidPrice)
	for _, o := range r.Outcomes {
		if o.Accepted {
			fmt.Fprintf(&b, "✅ rung %d @ %.2f ref=%s", o.RungIndex+1, o.RequestedLevel, o.DealReference)
			if o.TakeProfitRef != "" {
				fmt.Fprintf(&b, " tp=%s", o.TakeProfitRef)
			}
		} else {
			fmt.Fprintf(&b, "❌ rung %d @ %.2f: %s (attempts %d)", o.RungIndex+1, o.RequestedLevel, o.RejectionReason, o.Attempts)
		}
		b.WriteByte('\n')
	}
	if r.Stopped {
		b.WriteString("⏹ run stopped early\n")
	}
	return b.String()
}

func formatFlattenReport(r models.FlattenReport) string {
	var b strings.Builder
	b.WriteString("🆘 Emergency stop complete\n")
	fmt.Fprintf(&b, "Orders cancelled: %d (failed %d)\n", r.OrdersCancelled, r.OrdersFailed)
	fmt.Fprintf(&b, "Positions closed: %d (failed %d)\n", r.PositionsClosed, r.PositionsFailed)
	if r.OrdersListError != "" {
		fmt.Fprintf(&b, "⚠️ orders list: %s\n", r.OrdersListError)
	}
	if r.PositionsListErr != "" {
		fmt.Fprintf(&b, "⚠️ positions list: %s\n", r.PositionsListErr)
	}
	for _, a := range r.Actions {
		if a.OK {
			continue
		}
		fmt.Fprintf(&b, "❌ %s %s (%s): %s\n", a.Kind, a.DealID, a.Epic, a.Error)
	}
	return b.String()
}
