package ladder

import "sync"

// Registry отслеживает токены запущенных вручную прогонов, чтобы паника
// могла их кооперативно погасить.
type Registry struct {
	mu     sync.Mutex
	tokens map[*StopToken]struct{}
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[*StopToken]struct{})}
}

func (r *Registry) Track(t *StopToken) {
	if t == nil {
		return
	}
	r.mu.Lock()
	r.tokens[t] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) Untrack(t *StopToken) {
	r.mu.Lock()
	delete(r.tokens, t)
	r.mu.Unlock()
}

func (r *Registry) StopAll() {
	r.mu.Lock()
	ts := make([]*StopToken, 0, len(r.tokens))
	for t := range r.tokens {
		ts = append(ts, t)
	}
	r.tokens = make(map[*StopToken]struct{})
	r.mu.Unlock()

	for _, t := range ts {
		t.Stop()
	}
}
