package cart

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]Line
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]Line)}
}

func (s *MemoryStore) AddItem(_ context.Context, session string, l Line) error {
	if err := checkAdd(session, l); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[session]
	if i := indexOf(lines, l.ID); i >= 0 {
		lines[i].Qty = min(MaxAddQty, lines[i].Qty+l.Qty)
		return nil
	}
	l.Qty = min(MaxAddQty, l.Qty)
	s.carts[session] = append(lines, l)
	return nil
}

func (s *MemoryStore) UpdateQty(_ context.Context, session, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[session]
	i := indexOf(lines, id)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty = clampQty(qty); qty == 0 {
		s.carts[session] = slices.Delete(lines, i, i+1)
		return nil
	}
	lines[i].Qty = qty
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, session, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[session]
	if i := indexOf(lines, id); i >= 0 {
		s.carts[session] = slices.Delete(lines, i, i+1)
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, session string) error {
	s.mu.Lock()
	delete(s.carts, session)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ReadAll(_ context.Context, session string) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.carts[session]), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func indexOf(lines []Line, id string) int {
	return slices.IndexFunc(lines, func(l Line) bool { return l.ID == id })
}
