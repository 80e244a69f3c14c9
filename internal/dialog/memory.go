package dialog

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore хранилище в памяти процесса (тесты, storage.driver=memory).
// Блокировка пользователя живёт, пока есть ожидающие её ходы.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*userLock),
	}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.Clone(), nil
	}
	return NewSession(userID), nil
}

func (m *MemoryStore) Update(ctx context.Context, userID string, fn func(s *Session) error) error {
	l := m.acquire(userID)
	defer m.release(userID, l)

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	cur, ok := m.sessions[userID]
	if !ok {
		cur = NewSession(userID)
		m.sessions[userID] = cur
	}
	s := cur.Clone()
	m.mu.Unlock()

	if err := fn(s); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}
	s.UserID = userID
	s.Version = cur.Version + 1
	s.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	m.sessions[userID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) acquire(userID string) *userLock {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return l
}

func (m *MemoryStore) release(userID string, l *userLock) {
	l.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, userID)
	}
}
