package service

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ladder_bot/internal/models"
	"ladder_bot/internal/modules/config"
	"ladder_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InfoLogger = zap.NewNop()
	logger.FatalLogger = zap.NewNop()
	os.Exit(m.Run())
}

func testTelegram() *Telegram {
	cfg := &config.Config{
		Markets: map[string]string{
			"FTSE 100 Daily": "IX.D.FTSE.DAILY.IP",
			"Gold Spot":      "CS.D.USCGC.TODAY.IP",
		},
		DefaultStartOffset: 5,
		DefaultStepSize:    10,
		DefaultRungs:       3,
		DefaultOrderSize:   1,
		DefaultRetryJump:   10,
		DefaultMaxRetries:  3,
	}
	return &Telegram{cfg: cfg}
}

func TestParseLadderSpecDefaults(t *testing.T) {
	tg := testTelegram()

	spec, err := tg.parseLadderSpec([]string{"IX.D.DAX.DAILY.IP", "buy"})
	require.NoError(t, err)

	assert.Equal(t, "IX.D.DAX.DAILY.IP", spec.Epic)
	assert.Equal(t, models.DirectionBuy, spec.Direction)
	assert.Equal(t, 5.0, spec.StartOffset)
	assert.Equal(t, 10.0, spec.StepSize)
	assert.Equal(t, 3, spec.RungCount)
	assert.Equal(t, 1.0, spec.OrderSize)
	assert.Equal(t, 3, spec.MaxRetries)
	assert.Zero(t, spec.TakeProfitDistance)
}

func TestParseLadderSpecMultiWordMarketName(t *testing.T) {
	tg := testTelegram()

	spec, err := tg.parseLadderSpec([]string{"FTSE", "100", "Daily", "SELL", "7", "12"})
	require.NoError(t, err)

	assert.Equal(t, "IX.D.FTSE.DAILY.IP", spec.Epic)
	assert.Equal(t, models.DirectionSell, spec.Direction)
	assert.Equal(t, 7.0, spec.StartOffset)
	assert.Equal(t, 12.0, spec.StepSize)
	assert.Equal(t, 3, spec.RungCount)
}

func TestParseLadderSpecFullArguments(t *testing.T) {
	tg := testTelegram()

	spec, err := tg.parseLadderSpec([]string{"Gold", "Spot", "BUY", "8", "15", "5", "2", "25"})
	require.NoError(t, err)

	assert.Equal(t, "CS.D.USCGC.TODAY.IP", spec.Epic)
	assert.Equal(t, 8.0, spec.StartOffset)
	assert.Equal(t, 15.0, spec.StepSize)
	assert.Equal(t, 5, spec.RungCount)
	assert.Equal(t, 2.0, spec.OrderSize)
	assert.Equal(t, 25.0, spec.TakeProfitDistance)
}

func TestParseLadderSpecErrors(t *testing.T) {
	tg := testTelegram()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "need at least"},
		{"only instrument", []string{"FTSE"}, "need at least"},
		{"bad direction", []string{"FTSE", "HOLD"}, "direction must be"},
		{"bad offset", []string{"FTSE", "BUY", "abc"}, "bad number"},
		{"bad rungs", []string{"FTSE", "BUY", "5", "10", "-1"}, "bad rung count"},
		{"zero size", []string{"FTSE", "BUY", "5", "10", "3", "0"}, "bad size"},
		{"too many args", []string{"FTSE", "BUY", "1", "2", "3", "4", "5", "6"}, "too many"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tg.parseLadderSpec(tc.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseLadderSpecZeroRungsAllowed(t *testing.T) {
	tg := testTelegram()

	spec, err := tg.parseLadderSpec([]string{"FTSE", "BUY", "5", "10", "0"})
	require.NoError(t, err)
	assert.Zero(t, spec.RungCount)
}
