package models

// LadderSpec — параметры одного запуска лесенки. Живёт ровно один прогон,
// никуда не сохраняется.
type LadderSpec struct {
	Epic        string
	Direction   Direction
	StartOffset float64
	StepSize    float64
	RungCount   int
	OrderSize   float64
	RetryJump   float64
	MaxRetries  int
	// TakeProfitDistance > 0 — к каждой принятой ступени цепляется
	// лимитник на закрытие на этом расстоянии.
	TakeProfitDistance float64
}

// OrderOutcome — итог одной ступени. После записи не мутируется: ретраи
// порождают новые уровни, а не правят старые.
type OrderOutcome struct {
	RungIndex       int
	RequestedLevel  float64
	DealReference   string
	Accepted        bool
	RejectionReason string
	TakeProfitRef   string
	Attempts        int
}

type LadderReport struct {
	Epic       string
	Direction  Direction
	MidPrice   float64
	Successful int
	Total      int
	Outcomes   []OrderOutcome
	// Stopped — прогон прерван токеном отмены между ступенями.
	Stopped bool
	// PriceError — лесенка не стартовала: не удалось получить цену.
	PriceError string
}
