package natsx

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	ev := NewEvent(estimates.Estimate{
		ID: 7, Ref: "abc", UserID: "u1", Name: "王小明",
		TotalLow: 300, TotalHigh: 450,
		Status: estimates.StatusConfirmed, Source: estimates.SourceChat, CreatedAt: at,
	})

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abc", got["ref"])
	assert.Equal(t, "confirmed", got["status"])
	assert.Equal(t, "chat", got["source"])
	assert.Equal(t, []any{}, got["items"])
	assert.Equal(t, float64(450), got["total_high"])
}
