package ladder

import "sync"

// StopToken — кооперативная отмена прогона лесенки. Движок смотрит на него
// только между ступенями: начатая серия ретраев ступени дорабатывает до
// конца, это осознанное ограничение, а не недосмотр.
type StopToken struct {
	once sync.Once
	ch   chan struct{}
}

func NewStopToken() *StopToken {
	return &StopToken{ch: make(chan struct{})}
}

func (t *StopToken) Stop() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.ch) })
}

func (t *StopToken) Stopped() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}

func (t *StopToken) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.ch
}
