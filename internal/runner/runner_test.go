package runner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ladder_bot/internal/ladder"
	"ladder_bot/internal/models"
	"ladder_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InfoLogger = zap.NewNop()
	logger.FatalLogger = zap.NewNop()
	os.Exit(m.Run())
}

type stubGateway struct {
	mu sync.Mutex

	snap     models.PriceSnapshot
	priceErr error

	orders    []models.WorkingOrder
	positions []models.OpenPosition

	cancelled   []string
	stopUpdates map[string]float64
	stopsPlaced int
}

func (g *stubGateway) MarketPrice(context.Context, string) (models.PriceSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap, g.priceErr
}

func (g *stubGateway) WorkingOrders(context.Context) ([]models.WorkingOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orders, nil
}

func (g *stubGateway) CancelOrder(_ context.Context, dealID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, dealID)
	return nil
}

func (g *stubGateway) OpenPositions(context.Context) ([]models.OpenPosition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.positions, nil
}

func (g *stubGateway) UpdatePositionStop(_ context.Context, dealID string, stopLevel float64) models.Placement {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopUpdates == nil {
		g.stopUpdates = make(map[string]float64)
	}
	g.stopUpdates[dealID] = stopLevel
	return models.Accepted("REF-" + dealID)
}

// движок кормится тем же стабом через собственный интерфейс
func (g *stubGateway) PlaceStopOrder(context.Context, string, models.Direction, float64, float64) models.Placement {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopsPlaced++
	return models.Accepted(fmt.Sprintf("REF%d", g.stopsPlaced))
}

func (g *stubGateway) PlaceLimitOrder(context.Context, string, models.Direction, float64, float64) models.Placement {
	return models.Accepted("TP")
}

func (g *stubGateway) setMid(mid float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = models.PriceSnapshot{Bid: mid - 1, Offer: mid + 1, Mid: mid}
}

type allowAllGate struct{ verdict models.RiskVerdict }

func (a *allowAllGate) CanTrade(context.Context, float64, string) models.RiskVerdict {
	return a.verdict
}

type silentNotifier struct{}

func (silentNotifier) Sendf(string, ...any) {}

func newTestRunner(gw *stubGateway, gate RiskGate, params Params) *Runner {
	e := ladderEngineForTest(gw)
	return New(params, gw, e, gate, silentNotifier{})
}

func ladderEngineForTest(gw ladder.Gateway) *ladder.Engine {
	return ladder.New(gw, nil)
}

func baseParams() Params {
	return Params{
		Epic: "IX.D.FTSE.DAILY.IP",
		Ladder: models.LadderSpec{
			Epic:        "IX.D.FTSE.DAILY.IP",
			Direction:   models.DirectionBuy,
			StartOffset: 5,
			StepSize:    10,
			RungCount:   1,
			OrderSize:   1,
			RetryJump:   10,
			MaxRetries:  1,
		},
		CheckInterval:       time.Hour, // тики зовём руками
		AdjustmentThreshold: 10,
	}
}

func TestTickPlacesInitialLadder(t *testing.T) {
	gw := &stubGateway{}
	gw.setMid(2000)
	r := newTestRunner(gw, &allowAllGate{verdict: models.RiskVerdict{Allowed: true}}, baseParams())

	r.tick(context.Background())

	assert.Equal(t, 1, gw.stopsPlaced)
	assert.True(t, r.baseSet)
	assert.Equal(t, 2000.0, r.ladderBase)
}

func TestTickBelowThresholdDoesNothing(t *testing.T) {
	gw := &stubGateway{}
	gw.setMid(2000)
	r := newTestRunner(gw, &allowAllGate{verdict: models.RiskVerdict{Allowed: true}}, baseParams())

	r.tick(context.Background())
	gw.setMid(2009) // сдвиг меньше порога 10
	r.tick(context.Background())

	assert.Equal(t, 1, gw.stopsPlaced)
	assert.Empty(t, gw.cancelled)
}

func TestTickReladdersOnThresholdMove(t *testing.T) {
	gw := &stubGateway{}
	gw.setMid(2000)
	r := newTestRunner(gw, &allowAllGate{verdict: models.RiskVerdict{Allowed: true}}, baseParams())

	r.tick(context.Background())

	gw.mu.Lock()
	gw.orders = []models.WorkingOrder{
		{DealID: "O1", Epic: "IX.D.FTSE.DAILY.IP"},
		{DealID: "O2", Epic: "IX.D.DAX.DAILY.IP"}, // чужой эпик не трогаем
	}
	gw.mu.Unlock()

	gw.setMid(2010) // ровно порог
	r.tick(context.Background())

	assert.Equal(t, 2, gw.stopsPlaced)
	assert.Equal(t, []string{"O1"}, gw.cancelled)
	assert.Equal(t, 2010.0, r.ladderBase)
}

func TestTickBlockedByRiskGate(t *testing.T) {
	gw := &stubGateway{}
	gw.setMid(2000)
	gate := &allowAllGate{verdict: models.RiskVerdict{
		Allowed: false,
		Checks:  []models.CheckResult{{Name: "Daily Loss", Message: "limit breached"}},
	}}
	r := newTestRunner(gw, gate, baseParams())

	r.tick(context.Background())

	assert.Zero(t, gw.stopsPlaced)
	assert.False(t, r.baseSet)
}

func TestTickSkipsOnWideSpread(t *testing.T) {
	gw := &stubGateway{snap: models.PriceSnapshot{Bid: 1995, Offer: 2005, Mid: 2000}}
	params := baseParams()
	params.MaxSpread = 5
	r := newTestRunner(gw, &allowAllGate{verdict: models.RiskVerdict{Allowed: true}}, params)

	r.tick(context.Background())

	assert.Zero(t, gw.stopsPlaced)
}

func TestTrailingStopRatchetsOnly(t *testing.T) {
	gw := &stubGateway{}
	gw.setMid(2000)
	gw.positions = []models.OpenPosition{
		{DealID: "P1", Epic: "IX.D.FTSE.DAILY.IP", Direction: models.DirectionBuy, StopLevel: 1950},
		{DealID: "P2", Epic: "IX.D.FTSE.DAILY.IP", Direction: models.DirectionBuy, StopLevel: 1990},
		{DealID: "P3", Epic: "IX.D.DAX.DAILY.IP", Direction: models.DirectionBuy, StopLevel: 1000},
	}
	params := baseParams()
	params.TrailingStopDistance = 20
	r := newTestRunner(gw, &allowAllGate{verdict: models.RiskVerdict{Allowed: true}}, params)

	r.tick(context.Background())

	// bid 1999 - 20 = 1979: P1 подтягивается, P2 уже лучше, P3 чужой
	require.Contains(t, gw.stopUpdates, "P1")
	assert.Equal(t, 1979.0, gw.stopUpdates["P1"])
	assert.NotContains(t, gw.stopUpdates, "P2")
	assert.NotContains(t, gw.stopUpdates, "P3")
}

func TestTrailingStopSellDirection(t *testing.T) {
	gw := &stubGateway{}
	gw.setMid(2000)
	gw.positions = []models.OpenPosition{
		{DealID: "S1", Epic: "IX.D.FTSE.DAILY.IP", Direction: models.DirectionSell, StopLevel: 2050},
	}
	params := baseParams()
	params.TrailingStopDistance = 20
	r := newTestRunner(gw, &allowAllGate{verdict: models.RiskVerdict{Allowed: true}}, params)

	r.tick(context.Background())

	// offer 2001 + 20 = 2021 < 2050 — стоп опускается
	require.Contains(t, gw.stopUpdates, "S1")
	assert.Equal(t, 2021.0, gw.stopUpdates["S1"])
}

func TestManagerOneRunnerPerEpic(t *testing.T) {
	gw := &stubGateway{priceErr: fmt.Errorf("offline")}
	m := NewManager()

	r1 := newTestRunner(gw, &allowAllGate{}, baseParams())
	require.NoError(t, m.RunForEpic(context.Background(), r1))

	r2 := newTestRunner(gw, &allowAllGate{}, baseParams())
	err := m.RunForEpic(context.Background(), r2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	assert.Equal(t, []string{"IX.D.FTSE.DAILY.IP"}, m.Running())
	m.StopAll()

	assert.Eventually(t, func() bool {
		return len(m.Running()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestManagerStopForEpic(t *testing.T) {
	gw := &stubGateway{priceErr: fmt.Errorf("offline")}
	m := NewManager()

	r := newTestRunner(gw, &allowAllGate{}, baseParams())
	require.NoError(t, m.RunForEpic(context.Background(), r))

	require.NoError(t, m.StopForEpic("IX.D.FTSE.DAILY.IP"))
	assert.Error(t, m.StopForEpic("IX.D.FTSE.DAILY.IP"))

	assert.Eventually(t, func() bool {
		return len(m.Running()) == 0
	}, time.Second, 10*time.Millisecond)
}
