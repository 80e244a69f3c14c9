package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/estimate-bot/internal/conversation"
	"github.com/Spok95/estimate-bot/internal/dialog"
	"github.com/Spok95/estimate-bot/internal/domain/catalog"
	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"
	"github.com/Spok95/estimate-bot/internal/infra/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "estimates.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessions_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, dialog.StateStart, got.State)
	assert.Zero(t, got.Version)

	entry := catalog.Entry{Name: "冷氣清洗", Unit: "台", PriceLow: catalog.Price(100), PriceHigh: catalog.Price(150)}
	err = s.Update(ctx, "u1", func(sess *dialog.Session) error {
		sess.Reset()
		sess.Items, _, err = sess.Items.Append(entry, 3)
		require.NoError(t, err)
		sess.State = dialog.StateContactInfo
		sess.ContactStep = dialog.ContactPhone
		sess.SetContact(dialog.ContactName, "王小明")
		return nil
	})
	require.NoError(t, err)

	got, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, dialog.StateContactInfo, got.State)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "王小明", dialog.Deref(got.Name))
	assert.Nil(t, got.Phone)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(450), got.Items[0].TotalHigh)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSessions_NoCommitOnErrorOrUnchanged(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	boom := errors.New("boom")
	err := s.Update(ctx, "u1", func(sess *dialog.Session) error {
		sess.State = dialog.StateCompleted
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.Update(ctx, "u1", func(sess *dialog.Session) error {
		sess.State = dialog.StateCompleted
		return dialog.ErrUnchanged
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, dialog.StateStart, got.State)
	assert.Zero(t, got.Version)
}

func TestSessions_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, "u1", func(sess *dialog.Session) error {
				sess.CurrentPage++
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1+n, got.CurrentPage)
	assert.Equal(t, int64(n), got.Version)
}

func TestEstimates_CreateList(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	items, _, err := ledger.Ledger{}.Append(catalog.Entry{Name: "現場勘查", Unit: "次"}, 1)
	require.NoError(t, err)
	e := estimates.Estimate{
		Ref: "ref-1", UserID: "u1", Name: "a", Phone: "b", Address: "c", VisitTime: "d",
		Items: items, Status: estimates.StatusConfirmed, Source: estimates.SourceForm, CreatedAt: at,
	}
	saved, err := s.Create(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID)

	_, err = s.Create(ctx, e)
	require.Error(t, err, "ref must be unique")

	list, err := s.List(ctx, at, at.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ref-1", list[0].Ref)
	assert.Equal(t, estimates.SourceForm, list[0].Source)
	assert.True(t, list[0].Items[0].QuoteOnRequest())
	assert.True(t, at.Equal(list[0].CreatedAt))

	list, err = s.List(ctx, at.Add(time.Second), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookingFlowOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	cat, err := catalog.New([]catalog.Entry{
		{Name: "冷氣清洗", Unit: "台", PriceLow: catalog.Price(100), PriceHigh: catalog.Price(150)},
	})
	require.NoError(t, err)
	ctrl := conversation.New(cat, 10, s, s, nil, logger.Discard())

	steps := []conversation.Event{
		{Text: "我要估價"},
		{Action: "select_service:冷氣清洗"},
		{Text: "2"},
		{Action: "confirm_estimate"},
		{Text: "王小明"},
		{Text: "0912"},
		{Text: "台北"},
		{Text: "明天"},
		{Action: "confirm_booking"},
	}
	for _, ev := range steps {
		ev.UserID = "u1"
		_, err := ctrl.Handle(ctx, ev)
		require.NoError(t, err)
	}

	sess, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, dialog.StateCompleted, sess.State)
	require.NotEmpty(t, sess.BookingRef)

	list, err := s.List(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sess.BookingRef, list[0].Ref)
	assert.Equal(t, int64(200), list[0].TotalLow)
}
