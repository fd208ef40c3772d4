package journal

import (
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"ladder_bot/pkg/logger"
)

type Record struct {
	DealRef   string  `json:"deal_ref"`
	OrderType string  `json:"order_type"`
	Timestamp float64 `json:"timestamp"`
}

// Store — append-only аудит поставленных ордеров: epic -> записи.
// Читается один раз на старте, дописывается на каждом успешном
// размещении. В решениях не участвует, это только след для разбора.
type Store struct {
	mu     sync.Mutex
	path   string
	orders map[string][]Record
}

func NewStore(path string) *Store {
	s := &Store{
		path:   path,
		orders: make(map[string][]Record),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("journal: cannot read %s: %v", path, err)
		}
		return s
	}
	if err := sonic.Unmarshal(data, &s.orders); err != nil {
		logger.Error("journal: cannot parse %s: %v", path, err)
		s.orders = make(map[string][]Record)
	}
	return s
}

// Add дописывает запись и сразу сбрасывает файл на диск (write-through).
// Сбой записи логируется и не мешает торговле.
func (s *Store) Add(epic, orderType, dealRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[epic] = append(s.orders[epic], Record{
		DealRef:   dealRef,
		OrderType: orderType,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	})
	s.flushLocked()
}

// Records — копия записей по эпику.
func (s *Store) Records(epic string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.orders[epic]
	out := make([]Record, len(src))
	copy(out, src)
	return out
}

func (s *Store) flushLocked() {
	data, err := sonic.MarshalIndent(s.orders, "", "  ")
	if err != nil {
		logger.Error("journal: marshal: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		logger.Error("journal: write %s: %v", s.path, err)
	}
}
