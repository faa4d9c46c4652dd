// Package store provides in-memory store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/library-engine/library"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements every store interface in memory. Reads hand out deep
// copies so callers can never mutate a snapshot in place.
type Memory struct {
	mu       sync.RWMutex
	books    map[library.BookID]*library.Book
	order    []library.BookID
	students map[string]*library.Student
	sorder   []string
	policy   *library.PolicyConfig
	history  []library.HistoryEntry
}

func NewMemory() *Memory {
	return &Memory{
		books:    make(map[library.BookID]*library.Book),
		students: make(map[string]*library.Student),
	}
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (m *Memory) List(_ context.Context) ([]library.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]library.Book, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.books[id].Clone())
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id library.BookID) (*library.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.books[id]
	if !ok {
		return nil, library.ErrNotFound
	}
	return b.Clone(), nil
}

func (m *Memory) Save(_ context.Context, b *library.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.books[b.ID]; !exists {
		m.order = append(m.order, b.ID)
	}
	m.books[b.ID] = b.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id library.BookID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[id]; !ok {
		return library.ErrNotFound
	}
	delete(m.books, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// =============================================================================
// STUDENT STORE
// =============================================================================

func (m *Memory) ListStudents(_ context.Context) ([]library.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]library.Student, 0, len(m.sorder))
	for _, key := range m.sorder {
		out = append(out, *m.students[key])
	}
	return out, nil
}

func (m *Memory) GetStudent(_ context.Context, key string) (*library.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[key]
	if !ok {
		return nil, library.ErrNotFound
	}
	dup := *s
	return &dup, nil
}

func (m *Memory) SaveStudent(_ context.Context, s *library.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := s.Key()
	if key == "" {
		return library.ErrValidation
	}
	if _, exists := m.students[key]; !exists {
		m.sorder = append(m.sorder, key)
	}
	dup := *s
	m.students[key] = &dup
	return nil
}

func (m *Memory) DeleteStudent(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[key]; !ok {
		return library.ErrNotFound
	}
	delete(m.students, key)
	for i, v := range m.sorder {
		if v == key {
			m.sorder = append(m.sorder[:i], m.sorder[i+1:]...)
			break
		}
	}
	return nil
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

func (m *Memory) Policy(_ context.Context) (library.PolicyConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.policy == nil {
		return library.DefaultPolicy(), nil
	}
	return m.policy.Normalize(), nil
}

func (m *Memory) SavePolicy(_ context.Context, cfg library.PolicyConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cfg.Normalize()
	m.policy = &c
	return nil
}

// =============================================================================
// HISTORY STORE - Append-only
// =============================================================================

func (m *Memory) Append(_ context.Context, e library.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, e)
	return nil
}

func (m *Memory) Query(_ context.Context, f library.HistoryFilter) ([]library.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []library.HistoryEntry
	for _, e := range m.history {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// INTERFACE ADAPTERS
// =============================================================================
// Memory's student methods carry distinct names so one value can implement
// CatalogStore and StudentStore side by side; Students() exposes the
// StudentStore view.

type studentView struct{ m *Memory }

func (v studentView) List(ctx context.Context) ([]library.Student, error) {
	return v.m.ListStudents(ctx)
}
func (v studentView) Get(ctx context.Context, key string) (*library.Student, error) {
	return v.m.GetStudent(ctx, key)
}
func (v studentView) Save(ctx context.Context, s *library.Student) error {
	return v.m.SaveStudent(ctx, s)
}
func (v studentView) Delete(ctx context.Context, key string) error {
	return v.m.DeleteStudent(ctx, key)
}

// Students returns the StudentStore view of this store.
func (m *Memory) Students() library.StudentStore { return studentView{m} }

var (
	_ library.CatalogStore  = (*Memory)(nil)
	_ library.SettingsStore = (*Memory)(nil)
	_ library.HistoryStore  = (*Memory)(nil)
	_ library.StudentStore  = studentView{}
)
