package ladder

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"ladder_bot/internal/models"
	"ladder_bot/pkg/logger"
)

// retryableReason — единственный код отказа IG, по которому имеет смысл
// отодвинуть уровень и попробовать снова. Остальные причины (рынок закрыт,
// нет средств) терминальны для ступени.
const retryableReason = "ATTACHED_ORDER_LEVEL_ERROR"

// Паузы между запросами — политика под троттлинг брокера, пользователю
// не отдаются.
const (
	retryDelay = 300 * time.Millisecond
	rungDelay  = 500 * time.Millisecond
)

type Gateway interface {
	MarketPrice(ctx context.Context, epic string) (models.PriceSnapshot, error)
	PlaceStopOrder(ctx context.Context, epic string, direction models.Direction, size, level float64) models.Placement
	PlaceLimitOrder(ctx context.Context, epic string, direction models.Direction, size, level float64) models.Placement
}

type Journal interface {
	Add(epic, orderType, dealRef string)
}

// Engine раскладывает лесенку стоп-ордеров. Строго последовательный: один
// прогон — одна горутина, без параллельной отправки ступеней, иначе
// ломается и rate limit, и логика растущего офсета.
type Engine struct {
	gw      Gateway
	journal Journal

	retryDelay time.Duration
	rungDelay  time.Duration
}

func New(gw Gateway, journal Journal) *Engine {
	return &Engine{
		gw:         gw,
		journal:    journal,
		retryDelay: retryDelay,
		rungDelay:  rungDelay,
	}
}

// PlaceLadder выполняет один прогон лесенки. Ошибок не возвращает: любой
// сбой становится строкой отчёта. stop может быть nil — тогда прогон
// неотменяем.
func (e *Engine) PlaceLadder(ctx context.Context, stop *StopToken, spec models.LadderSpec) models.LadderReport {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ladder.place")
	defer span.Finish()
	span.SetTag("epic", spec.Epic)
	span.SetTag("rungs", spec.RungCount)

	report := models.LadderReport{
		Epic:      spec.Epic,
		Direction: spec.Direction,
		Total:     spec.RungCount,
	}

	if spec.RungCount <= 0 {
		report.Total = 0
		return report
	}

	maxRetries := spec.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	snap, err := e.gw.MarketPrice(ctx, spec.Epic)
	if err != nil {
		// без цены нет базы для уровней — прогон не начинаем вовсе
		logger.Error("ladder %s: could not get market price: %v", spec.Epic, err)
		report.PriceError = err.Error()
		return report
	}
	report.MidPrice = snap.Mid
	logger.Info("ladder %s: current price %.2f, placing %d x %s stop(s)",
		spec.Epic, snap.Mid, spec.RungCount, spec.Direction)

	sign := spec.Direction.Sign()

	for i := 0; i < spec.RungCount; i++ {
		if stop.Stopped() {
			logger.Info("ladder %s: stop requested, %d/%d rungs done", spec.Epic, i, spec.RungCount)
			report.Stopped = true
			break
		}

		outcome := models.OrderOutcome{RungIndex: i}

		for r := 0; r < maxRetries; r++ {
			offset := spec.StartOffset + float64(r)*spec.RetryJump
			level := snap.Mid + sign*(offset+float64(i)*spec.StepSize)

			outcome.RequestedLevel = level
			outcome.Attempts = r + 1

			placed := e.gw.PlaceStopOrder(ctx, spec.Epic, spec.Direction, spec.OrderSize, level)

			if placed.Status == models.StatusAccepted {
				outcome.Accepted = true
				outcome.DealReference = placed.DealReference
				outcome.RejectionReason = ""
				if r > 0 {
					logger.Info("ladder %s: rung %d placed at %.2f (offset %.1f)", spec.Epic, i+1, level, offset)
				} else {
					logger.Info("ladder %s: rung %d placed at %.2f", spec.Epic, i+1, level)
				}
				report.Successful++
				if e.journal != nil {
					e.journal.Add(spec.Epic, "STOP_"+string(spec.Direction), placed.DealReference)
				}

				if spec.TakeProfitDistance > 0 {
					outcome.TakeProfitRef = e.placeTakeProfit(ctx, spec, level)
				}
				break
			}

			if placed.Status == models.StatusRejected && placed.Reason == retryableReason {
				// уровень слишком близко к рынку — на следующем ретрае
				// офсет больше
				outcome.RejectionReason = placed.Reason
				if r < maxRetries-1 {
					logger.Info("ladder %s: rung %d too close at %.2f, retrying with larger offset", spec.Epic, i+1, level)
					e.sleep(ctx, nil, e.retryDelay)
					continue
				}
				logger.Error("ladder %s: rung %d failed after %d retries, minimum distance too large", spec.Epic, i+1, maxRetries)
				break
			}

			// терминальный отказ либо транспорт: ступень не повторяем
			if placed.Status == models.StatusRejected {
				outcome.RejectionReason = placed.Reason
				logger.Error("ladder %s: rung %d rejected: %s", spec.Epic, i+1, placed.Reason)
			} else {
				outcome.RejectionReason = placed.Detail
				logger.Error("ladder %s: rung %d failed: %s", spec.Epic, i+1, placed.Detail)
			}
			break
		}

		report.Outcomes = append(report.Outcomes, outcome)

		// пауза держится и после неудачной ступени — троттлинг брокера
		// не различает успех и отказ
		e.sleep(ctx, stop, e.rungDelay)
	}

	logger.Info("ladder %s: complete, %d/%d orders placed", spec.Epic, report.Successful, report.Total)
	return report
}

// placeTakeProfit цепляет парный лимитник к принятой ступени. Его отказ не
// валит ступень — стоп уже стоит.
func (e *Engine) placeTakeProfit(ctx context.Context, spec models.LadderSpec, entryLevel float64) string {
	tpLevel := entryLevel + spec.Direction.Sign()*spec.TakeProfitDistance
	tpDirection := spec.Direction.Opposite()

	placed := e.gw.PlaceLimitOrder(ctx, spec.Epic, tpDirection, spec.OrderSize, tpLevel)
	switch placed.Status {
	case models.StatusAccepted:
		logger.Info("ladder %s: take profit placed at %.2f", spec.Epic, tpLevel)
		if e.journal != nil {
			e.journal.Add(spec.Epic, "LIMIT_"+string(tpDirection), placed.DealReference)
		}
		return placed.DealReference
	case models.StatusRejected:
		logger.Error("ladder %s: take profit rejected: %s", spec.Epic, placed.Reason)
	default:
		logger.Error("ladder %s: take profit failed: %s", spec.Epic, placed.Detail)
	}
	return ""
}

// sleep между ступенями режется токеном остановки, между ретраями — нет:
// токен проверяется только на границе ступени.
func (e *Engine) sleep(ctx context.Context, stop *StopToken, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-stop.Done():
	case <-ctx.Done():
	}
}
