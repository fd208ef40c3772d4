package flatten

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"ladder_bot/internal/models"
	"ladder_bot/pkg/logger"
)

type Gateway interface {
	WorkingOrders(ctx context.Context) ([]models.WorkingOrder, error)
	CancelOrder(ctx context.Context, dealID string) error
	OpenPositions(ctx context.Context) ([]models.OpenPosition, error)
	ClosePosition(ctx context.Context, pos models.OpenPosition) models.Placement
}

// Halter — кооперативная остановка авто-стратегий перед разбором позиций.
type Halter interface {
	StopAll()
}

// Паузы между запросами при массовой отмене/закрытии — под троттлинг IG.
const (
	cancelDelay = 200 * time.Millisecond
	closeDelay  = 500 * time.Millisecond
)

// Flattener — аварийная кнопка: снять все отложки, закрыть все позиции.
// Идёт мимо риск-гейта и никогда не паникует сам: каждый сбой — строка
// отчёта, остальные ордера всё равно обрабатываются.
type Flattener struct {
	gw      Gateway
	halters []Halter

	cancelDelay time.Duration
	closeDelay  time.Duration
}

func New(gw Gateway, halters ...Halter) *Flattener {
	return &Flattener{
		gw:          gw,
		halters:     halters,
		cancelDelay: cancelDelay,
		closeDelay:  closeDelay,
	}
}

func (f *Flattener) Panic(ctx context.Context) models.FlattenReport {
	span, ctx := opentracing.StartSpanFromContext(ctx, "flatten.panic")
	defer span.Finish()

	logger.Info("EMERGENCY STOP ACTIVATED")
	var report models.FlattenReport

	for _, h := range f.halters {
		h.StopAll()
	}

	// список перечитываем прямо перед отменой — локальному состоянию
	// не верим
	logger.Info("flatten: cancelling all working orders")
	orders, err := f.gw.WorkingOrders(ctx)
	if err != nil {
		report.OrdersListError = err.Error()
		logger.Error("flatten: cannot list working orders: %v", err)
	}
	for _, o := range orders {
		a := models.FlattenAction{Kind: models.FlattenCancelOrder, DealID: o.DealID, Epic: o.Epic}
		if err := f.gw.CancelOrder(ctx, o.DealID); err != nil {
			a.Error = err.Error()
			logger.Error("flatten: cancel %s failed: %v", o.DealID, err)
		} else {
			a.OK = true
			logger.Info("flatten: cancelled order %s (%s)", o.DealID, o.Epic)
		}
		report.Add(a)
		f.sleep(ctx, f.cancelDelay)
	}

	logger.Info("flatten: closing all open positions")
	positions, err := f.gw.OpenPositions(ctx)
	if err != nil {
		report.PositionsListErr = err.Error()
		logger.Error("flatten: cannot list positions: %v", err)
	}
	for _, p := range positions {
		a := models.FlattenAction{Kind: models.FlattenClosePosition, DealID: p.DealID, Epic: p.Epic}
		placed := f.gw.ClosePosition(ctx, p)
		switch placed.Status {
		case models.StatusAccepted:
			a.OK = true
			logger.Info("flatten: closed position %s (%s)", p.DealID, p.Epic)
		case models.StatusRejected:
			a.Error = placed.Reason
			logger.Error("flatten: close %s rejected: %s", p.DealID, placed.Reason)
		default:
			a.Error = placed.Detail
			logger.Error("flatten: close %s failed: %s", p.DealID, placed.Detail)
		}
		report.Add(a)
		f.sleep(ctx, f.closeDelay)
	}

	logger.Info("EMERGENCY STOP COMPLETE: %d/%d orders cancelled, %d/%d positions closed",
		report.OrdersCancelled, report.OrdersCancelled+report.OrdersFailed,
		report.PositionsClosed, report.PositionsClosed+report.PositionsFailed)
	return report
}

func (f *Flattener) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
