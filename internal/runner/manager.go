package runner

import (
	"context"
	"fmt"
	"sync"

	"ladder_bot/pkg/logger"
)

// Manager управляет авто-раннерами по эпикам: не больше одного активного
// прогона на инструмент.
type Manager struct {
	mu      sync.Mutex
	runners map[string]*Runner
}

func NewManager() *Manager {
	return &Manager{
		runners: make(map[string]*Runner),
	}
}

// RunForEpic стартует воркер для эпика (если ещё не запущен).
func (m *Manager) RunForEpic(ctx context.Context, r *Runner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.runners[r.params.Epic]; running {
		return fmt.Errorf("auto strategy already running for %s", r.params.Epic)
	}
	m.runners[r.params.Epic] = r

	go func() {
		r.Start(ctx)

		// когда Start закончится — выпилим раннер из мапы
		m.mu.Lock()
		delete(m.runners, r.params.Epic)
		m.mu.Unlock()
	}()

	return nil
}

// StopForEpic останавливает воркер для эпика (если запущен).
func (m *Manager) StopForEpic(epic string) error {
	m.mu.Lock()
	r, ok := m.runners[epic]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("auto strategy not running for %s", epic)
	}
	delete(m.runners, epic)
	m.mu.Unlock()

	// гасим раннер вне мьютекса
	r.Stop()
	return nil
}

// StopAll — кооперативная остановка всех раннеров. Используется паникой
// перед разбором ордеров.
func (m *Manager) StopAll() {
	m.mu.Lock()
	rs := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		rs = append(rs, r)
	}
	m.runners = make(map[string]*Runner)
	m.mu.Unlock()

	for _, r := range rs {
		r.Stop()
	}
	if len(rs) > 0 {
		logger.Info("auto: stopped %d runner(s)", len(rs))
	}
}

// Running — список эпиков с активными раннерами.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.runners))
	for epic := range m.runners {
		out = append(out, epic)
	}
	return out
}
