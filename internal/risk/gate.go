package risk

import (
	"context"
	"fmt"
	"math"
	"sync"

	"ladder_bot/internal/models"
	"ladder_bot/pkg/logger"
)

type Gateway interface {
	AccountInfo(ctx context.Context) (models.AccountInfo, error)
	OpenPositions(ctx context.Context) ([]models.OpenPosition, error)
	MarketPrice(ctx context.Context, epic string) (models.PriceSnapshot, error)
}

// Gate прогоняет предложенную сделку через лимиты. Политика при сбоях
// данных — fail-open: недоступность счёта или котировки не блокирует
// торговлю, проверка помечается пройденной с пояснением. Это осознанный
// выбор (доступность важнее), не чинить.
type Gate struct {
	gw     Gateway
	limits models.RiskLimits

	mu sync.Mutex
	// baseline дневного P&L: balance - unrealized на момент первой
	// проверки сессии. Сбрасывается только явным ResetDaily.
	dailyStartBalance float64
	baselineSet       bool
}

func New(gw Gateway, limits models.RiskLimits) *Gate {
	return &Gate{gw: gw, limits: limits}
}

// CanTrade выполняет все проверки без короткого замыкания: вызывающий
// видит сразу все проваленные измерения.
func (g *Gate) CanTrade(ctx context.Context, proposedSize float64, epic string) models.RiskVerdict {
	checks := []models.CheckResult{
		g.checkDailyLoss(ctx),
		g.checkPositionLimits(ctx, proposedSize, epic),
		g.checkMarginUsage(ctx),
	}

	verdict := models.RiskVerdict{Allowed: true, Checks: checks}
	for _, c := range checks {
		if !c.Passed {
			verdict.Allowed = false
		}
	}

	if !verdict.Allowed {
		for _, c := range checks {
			if !c.Passed {
				logger.Error("risk: %s blocked: %s", c.Name, c.Message)
			}
		}
	}
	return verdict
}

func (g *Gate) checkDailyLoss(ctx context.Context) models.CheckResult {
	res := models.CheckResult{Name: "Daily Loss", Passed: true}

	pnl, err := g.dailyPnL(ctx)
	if err != nil {
		res.Message = fmt.Sprintf("cannot calculate P&L: %v", err)
		return res
	}

	// граница включительно: ровно -лимит уже стоп
	if pnl <= -g.limits.MaxDailyLoss {
		res.Passed = false
		res.Message = fmt.Sprintf("daily loss limit breached: %.2f GBP (limit: %.2f)", pnl, g.limits.MaxDailyLoss)
		return res
	}

	res.Message = fmt.Sprintf("daily P&L: %.2f GBP", pnl)
	return res
}

func (g *Gate) checkPositionLimits(ctx context.Context, proposedSize float64, epic string) models.CheckResult {
	res := models.CheckResult{Name: "Position Limits", Passed: true}

	positions, err := g.gw.OpenPositions(ctx)
	if err != nil {
		res.Message = fmt.Sprintf("cannot fetch positions: %v", err)
		return res
	}

	if len(positions) >= g.limits.MaxOpenPositions {
		res.Passed = false
		res.Message = fmt.Sprintf("maximum positions limit reached (%d)", g.limits.MaxOpenPositions)
		return res
	}

	if proposedSize > g.limits.MaxPositionSize {
		res.Passed = false
		res.Message = fmt.Sprintf("position size %.2f exceeds maximum %.2f", proposedSize, g.limits.MaxPositionSize)
		return res
	}

	// экспозиция существующих позиций считается по offer — консервативная
	// односторонняя оценка, не настоящий mid
	totalExposure := 0.0
	for _, p := range positions {
		if p.Size != 0 && p.Offer != 0 {
			totalExposure += math.Abs(p.Size * p.Offer)
		}
	}

	if epic != "" {
		if snap, err := g.gw.MarketPrice(ctx, epic); err == nil {
			totalExposure += math.Abs(proposedSize * snap.Mid)
		}
	}

	if totalExposure > g.limits.MaxTotalExposure {
		res.Passed = false
		res.Message = fmt.Sprintf("total exposure %.2f exceeds limit %.2f", totalExposure, g.limits.MaxTotalExposure)
		return res
	}

	res.Message = "position limits OK"
	return res
}

func (g *Gate) checkMarginUsage(ctx context.Context) models.CheckResult {
	res := models.CheckResult{Name: "Margin Usage", Passed: true}

	acct, err := g.gw.AccountInfo(ctx)
	if err != nil {
		res.Message = fmt.Sprintf("cannot check margin: %v", err)
		return res
	}

	if acct.Deposit <= 0 {
		// делить не на что; неубедительный результат не валит гейт
		res.Message = "margin check inconclusive"
		return res
	}

	usage := (acct.Deposit - acct.Available) / acct.Deposit
	if usage > g.limits.MaxMarginUsage {
		res.Passed = false
		res.Message = fmt.Sprintf("margin usage %.1f%% exceeds limit %.1f%%", usage*100, g.limits.MaxMarginUsage*100)
		return res
	}

	res.Message = fmt.Sprintf("margin usage: %.1f%%", usage*100)
	return res
}

// dailyPnL — реализованный P&L с начала сессии.
func (g *Gate) dailyPnL(ctx context.Context) (float64, error) {
	acct, err := g.gw.AccountInfo(ctx)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	if !g.baselineSet {
		g.dailyStartBalance = acct.Balance - acct.ProfitLoss
		g.baselineSet = true
	}
	start := g.dailyStartBalance
	g.mu.Unlock()

	return acct.Balance - start, nil
}

// ResetDaily сбрасывает базу дневного P&L. Только по явному действию
// пользователя.
func (g *Gate) ResetDaily() {
	g.mu.Lock()
	g.baselineSet = false
	g.dailyStartBalance = 0
	g.mu.Unlock()
	logger.Info("risk: daily tracking reset")
}

func (g *Gate) Limits() models.RiskLimits { return g.limits }

// Summary — сводка для периодического дисплея. Сбои отдельных запросов
// дают нули в полях, не ошибку.
func (g *Gate) Summary(ctx context.Context) models.RiskSummary {
	s := models.RiskSummary{
		MaxPositions:   g.limits.MaxOpenPositions,
		DailyLossLimit: g.limits.MaxDailyLoss,
		SizeLimit:      g.limits.MaxPositionSize,
	}

	if acct, err := g.gw.AccountInfo(ctx); err == nil {
		s.Balance = acct.Balance
		s.Available = acct.Available
		s.UnrealizedPnL = acct.ProfitLoss
	}
	if pnl, err := g.dailyPnL(ctx); err == nil {
		s.DailyPnL = pnl
	}
	if positions, err := g.gw.OpenPositions(ctx); err == nil {
		s.OpenPositions = len(positions)
	}
	return s
}
