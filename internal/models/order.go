package models

import "time"

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Opposite — направление закрывающей сделки.
func (d Direction) Opposite() Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Sign: BUY прибавляет офсеты к цене, SELL вычитает.
func (d Direction) Sign() float64 {
	if d == DirectionSell {
		return -1
	}
	return 1
}

type PlacementStatus int

const (
	StatusAccepted PlacementStatus = iota
	StatusRejected
	StatusTransport
)

// Placement — результат отправки ордера, декодированный один раз на границе
// гейтвея. Ядро никогда не видит сырые HTTP-ответы.
type Placement struct {
	Status        PlacementStatus
	DealReference string // только при Accepted
	Reason        string // код отказа брокера при Rejected
	Detail        string // транспортная ошибка при Transport
}

func Accepted(ref string) Placement {
	return Placement{Status: StatusAccepted, DealReference: ref}
}

func Rejected(reason string) Placement {
	return Placement{Status: StatusRejected, Reason: reason}
}

func TransportError(detail string) Placement {
	return Placement{Status: StatusTransport, Detail: detail}
}

// WorkingOrder — отложенный ордер на стороне брокера. Read-only для нас:
// перед cancel/close список всегда перечитывается заново.
type WorkingOrder struct {
	DealID    string
	Epic      string
	Direction Direction
	Size      float64
	Level     float64
	Type      string
}

type OpenPosition struct {
	DealID    string
	Epic      string
	Direction Direction
	Size      float64
	OpenLevel float64
	StopLevel float64
	Offer     float64
	Bid       float64
}

type DealConfirm struct {
	DealReference string
	DealID        string
	DealStatus    string // ACCEPTED / REJECTED
	Reason        string
}

type AccountInfo struct {
	AccountID  string
	Balance    float64
	Available  float64
	Deposit    float64
	ProfitLoss float64
}

type PriceSnapshot struct {
	Bid          float64
	Offer        float64
	Mid          float64
	MarketStatus string
}

func (p PriceSnapshot) Spread() float64 { return p.Offer - p.Bid }

type Candle struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}
