package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Spok95/estimate-bot/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entry = catalog.Entry{Name: "冷氣清洗", Unit: "台", PriceLow: catalog.Price(100), PriceHigh: catalog.Price(150)}

func TestMemoryStore_GetOrCreate(t *testing.T) {
	st := NewMemoryStore()
	s, err := st.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, StateStart, s.State)
	assert.Equal(t, 1, s.CurrentPage)
	assert.Zero(t, s.Version)
}

func TestMemoryStore_UpdateCommits(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	err := st.Update(ctx, "u1", func(s *Session) error {
		s.Reset()
		items, _, err := s.Items.Append(entry, 2)
		s.Items = items
		return err
	})
	require.NoError(t, err)

	s, _ := st.Get(ctx, "u1")
	assert.Equal(t, StateSelecting, s.State)
	require.Len(t, s.Items, 1)
	assert.Equal(t, int64(1), s.Version)
}

func TestMemoryStore_ErrorsRollBack(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	boom := errors.New("boom")

	err := st.Update(ctx, "u1", func(s *Session) error {
		s.State = StateCompleted
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = st.Update(ctx, "u1", func(s *Session) error {
		s.State = StateCompleted
		return ErrUnchanged
	})
	require.NoError(t, err)

	s, _ := st.Get(ctx, "u1")
	assert.Equal(t, StateStart, s.State)
	assert.Zero(t, s.Version)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Update(ctx, "u1", func(s *Session) error {
		s.SetContact(ContactName, "王小明")
		return nil
	}))

	s, _ := st.Get(ctx, "u1")
	*s.Name = "changed"
	again, _ := st.Get(ctx, "u1")
	assert.Equal(t, "王小明", *again.Name)
}

func TestMemoryStore_SerializesPerUser(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Update(ctx, "u1", func(s *Session) error {
				items, _, err := s.Items.Append(entry, 1)
				s.Items = items
				return err
			})
		}()
	}
	wg.Wait()

	s, _ := st.Get(ctx, "u1")
	assert.Len(t, s.Items, n)
	assert.Equal(t, int64(n), s.Version)
}

func TestMemoryStore_ReleasesUserLocks(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i%10)
			_ = st.Update(ctx, user, func(s *Session) error {
				s.CurrentPage++
				return nil
			})
			_ = st.Update(ctx, user, func(*Session) error { return ErrUnchanged })
		}()
	}
	wg.Wait()

	st.mu.Lock()
	assert.Empty(t, st.locks)
	assert.Len(t, st.sessions, 10)
	st.mu.Unlock()

	s, err := st.Get(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, int64(10), s.Version)
}

func TestSession_Reset(t *testing.T) {
	s := NewSession("u1")
	s.State = StateCompleted
	s.CurrentPage = 3
	s.PendingItem = "x"
	s.ContactStep = ContactVisitTime
	s.SetContact(ContactPhone, "0912")
	s.BookingRef = "ref"
	s.Items, _, _ = s.Items.Append(entry, 1)

	s.Reset()
	assert.Equal(t, StateSelecting, s.State)
	assert.Empty(t, s.Items)
	assert.Equal(t, 1, s.CurrentPage)
	assert.Empty(t, s.PendingItem)
	assert.Equal(t, ContactName, s.ContactStep)
	assert.Nil(t, s.Phone)
	assert.Empty(t, s.BookingRef)
}

func TestState_Valid(t *testing.T) {
	assert.True(t, StateQuantityInput.Valid())
	assert.False(t, State("await_fio").Valid())
}
