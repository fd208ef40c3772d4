package models

// RiskLimits — лимиты на сессию. Read-only после старта, меняются только
// явным пересозданием гейта.
type RiskLimits struct {
	MaxDailyLoss     float64 `yaml:"max_daily_loss"`
	MaxPositionSize  float64 `yaml:"max_position_size"`
	MaxTotalExposure float64 `yaml:"max_total_exposure"`
	MaxMarginUsage   float64 `yaml:"max_margin_usage"` // доля, 0.6 => 60%
	MaxOpenPositions int     `yaml:"max_open_positions"`
}

type CheckResult struct {
	Name    string
	Passed  bool
	Message string
}

type RiskVerdict struct {
	Allowed bool
	Checks  []CheckResult
}

type RiskSummary struct {
	Balance        float64
	Available      float64
	DailyPnL       float64
	UnrealizedPnL  float64
	OpenPositions  int
	MaxPositions   int
	DailyLossLimit float64
	SizeLimit      float64
}
