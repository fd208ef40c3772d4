package runner

import (
	"context"
	"math"
	"sync"
	"time"

	"ladder_bot/internal/ladder"
	"ladder_bot/internal/models"
	"ladder_bot/pkg/logger"
)

type Gateway interface {
	WorkingOrders(ctx context.Context) ([]models.WorkingOrder, error)
	CancelOrder(ctx context.Context, dealID string) error
	OpenPositions(ctx context.Context) ([]models.OpenPosition, error)
	UpdatePositionStop(ctx context.Context, dealID string, stopLevel float64) models.Placement
	MarketPrice(ctx context.Context, epic string) (models.PriceSnapshot, error)
}

type RiskGate interface {
	CanTrade(ctx context.Context, proposedSize float64, epic string) models.RiskVerdict
}

type Notifier interface {
	Sendf(format string, args ...any)
}

// Params — настройки авто-стратегии для одного эпика.
type Params struct {
	Epic   string
	Ladder models.LadderSpec

	CheckInterval        time.Duration
	AdjustmentThreshold  float64
	TrailingStopDistance float64
	MaxSpread            float64
}

// Runner держит лесенку возле рынка: когда цена ушла от базы дальше
// порога, снимает отложки по эпику и перекладывает лесенку заново, плюс
// подтягивает стопы открытых позиций. Один воркер — один эпик.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc

	params Params
	gw     Gateway
	engine *ladder.Engine
	gate   RiskGate
	n      Notifier

	stopToken *ladder.StopToken

	mu         sync.Mutex
	ladderBase float64
	baseSet    bool
}

func New(params Params, gw Gateway, engine *ladder.Engine, gate RiskGate, n Notifier) *Runner {
	return &Runner{
		params:    params,
		gw:        gw,
		engine:    engine,
		gate:      gate,
		n:         n,
		stopToken: ladder.NewStopToken(),
	}
}

func (r *Runner) Start(parent context.Context) {
	r.mu.Lock()
	r.ctx, r.cancel = context.WithCancel(parent)
	r.mu.Unlock()

	// Stop мог прилететь до того, как мы сюда добрались
	if r.stopToken.Stopped() {
		return
	}

	interval := r.params.CheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	logger.Info("auto %s: started, checking every %s", r.params.Epic, interval)
	r.n.Sendf("🤖 Auto strategy started for %s (every %s)", r.params.Epic, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// первая раскладка сразу, не ждём тика
	r.tick(r.ctx)

	for {
		select {
		case <-r.ctx.Done():
			logger.Info("auto %s: stopped", r.params.Epic)
			return
		case <-ticker.C:
			r.tick(r.ctx)
		}
	}
}

// Stop — кооперативно: текущая ступень лесенки доработает, дальше прогон
// не пойдёт.
func (r *Runner) Stop() {
	r.stopToken.Stop()
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) tick(ctx context.Context) {
	snap, err := r.gw.MarketPrice(ctx, r.params.Epic)
	if err != nil {
		logger.Error("auto %s: price fetch failed: %v", r.params.Epic, err)
		return
	}

	if r.params.MaxSpread > 0 && snap.Spread() > r.params.MaxSpread {
		logger.Info("auto %s: spread %.1f too wide, skipping tick", r.params.Epic, snap.Spread())
		return
	}

	r.trailPositions(ctx, snap)

	r.mu.Lock()
	base, baseSet := r.ladderBase, r.baseSet
	r.mu.Unlock()

	if baseSet && math.Abs(snap.Mid-base) < r.params.AdjustmentThreshold {
		return
	}

	if baseSet {
		logger.Info("auto %s: price moved %.1f from ladder base, re-laddering", r.params.Epic, snap.Mid-base)
		r.cancelEpicOrders(ctx)
	}

	verdict := r.gate.CanTrade(ctx, r.params.Ladder.OrderSize, r.params.Epic)
	if !verdict.Allowed {
		for _, c := range verdict.Checks {
			if !c.Passed {
				r.n.Sendf("🚫 [%s] auto ladder blocked: %s", r.params.Epic, c.Message)
			}
		}
		return
	}

	report := r.engine.PlaceLadder(ctx, r.stopToken, r.params.Ladder)
	if report.PriceError != "" {
		return
	}

	r.mu.Lock()
	r.ladderBase = report.MidPrice
	r.baseSet = true
	r.mu.Unlock()

	r.n.Sendf("🪜 [%s] ladder re-placed: %d/%d @ base %.2f",
		r.params.Epic, report.Successful, report.Total, report.MidPrice)
}

// cancelEpicOrders снимает отложки только нашего эпика, чужие не трогаем.
func (r *Runner) cancelEpicOrders(ctx context.Context) {
	orders, err := r.gw.WorkingOrders(ctx)
	if err != nil {
		logger.Error("auto %s: cannot list working orders: %v", r.params.Epic, err)
		return
	}
	for _, o := range orders {
		if o.Epic != r.params.Epic {
			continue
		}
		if err := r.gw.CancelOrder(ctx, o.DealID); err != nil {
			logger.Error("auto %s: cancel %s failed: %v", r.params.Epic, o.DealID, err)
		}
	}
}

// trailPositions подтягивает стопы открытых позиций эпика на фиксированную
// дистанцию от рынка. Стоп двигается только в сторону улучшения.
func (r *Runner) trailPositions(ctx context.Context, snap models.PriceSnapshot) {
	if r.params.TrailingStopDistance <= 0 {
		return
	}

	positions, err := r.gw.OpenPositions(ctx)
	if err != nil {
		logger.Error("auto %s: cannot list positions: %v", r.params.Epic, err)
		return
	}

	for _, p := range positions {
		if p.Epic != r.params.Epic {
			continue
		}

		var newStop float64
		if p.Direction == models.DirectionBuy {
			newStop = snap.Bid - r.params.TrailingStopDistance
			if p.StopLevel != 0 && newStop <= p.StopLevel {
				continue
			}
		} else {
			newStop = snap.Offer + r.params.TrailingStopDistance
			if p.StopLevel != 0 && newStop >= p.StopLevel {
				continue
			}
		}

		placed := r.gw.UpdatePositionStop(ctx, p.DealID, newStop)
		switch placed.Status {
		case models.StatusAccepted:
			logger.Info("auto %s: trailing stop %s -> %.2f", r.params.Epic, p.DealID, newStop)
			r.n.Sendf("🛡 [%s] stop moved to %.2f", r.params.Epic, newStop)
		case models.StatusRejected:
			logger.Error("auto %s: stop update rejected: %s", r.params.Epic, placed.Reason)
		default:
			logger.Error("auto %s: stop update failed: %s", r.params.Epic, placed.Detail)
		}
	}
}
