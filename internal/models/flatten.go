package models

type FlattenKind string

const (
	FlattenCancelOrder   FlattenKind = "cancel_order"
	FlattenClosePosition FlattenKind = "close_position"
)

type FlattenAction struct {
	Kind   FlattenKind
	DealID string
	Epic   string
	OK     bool
	Error  string
}

// FlattenReport — что удалось снять/закрыть. Паника никогда не возвращает
// ошибку наружу: каждый сбой — строка отчёта.
type FlattenReport struct {
	Actions          []FlattenAction
	OrdersCancelled  int
	OrdersFailed     int
	PositionsClosed  int
	PositionsFailed  int
	OrdersListError  string
	PositionsListErr string
}

func (r *FlattenReport) Add(a FlattenAction) {
	r.Actions = append(r.Actions, a)
	switch {
	case a.Kind == FlattenCancelOrder && a.OK:
		r.OrdersCancelled++
	case a.Kind == FlattenCancelOrder:
		r.OrdersFailed++
	case a.Kind == FlattenClosePosition && a.OK:
		r.PositionsClosed++
	default:
		r.PositionsFailed++
	}
}
