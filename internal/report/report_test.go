package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/catalog"
	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExport(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	items := ledger.Ledger{}
	items, _, err := items.Append(catalog.Entry{Name: "冷氣清洗", Unit: "台", PriceLow: catalog.Price(100), PriceHigh: catalog.Price(150)}, 3)
	require.NoError(t, err)
	items, _, err = items.Append(catalog.Entry{Name: "現場勘查", Unit: "次", Remark: "專人到府"}, 1)
	require.NoError(t, err)

	repo := estimates.NewMemoryRepo()
	_, err = repo.Create(ctx, estimates.Estimate{
		Ref: "ref-1", Name: "王小明", Phone: "0912", Address: "台北", VisitTime: "週六",
		Items: items, TotalLow: 300, TotalHigh: 450,
		Status: estimates.StatusConfirmed, Source: estimates.SourceChat, CreatedAt: at,
	})
	require.NoError(t, err)

	data, n, err := Export(ctx, repo, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetEstimates)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ref", rows[0][1])
	assert.Equal(t, []string{"1", "ref-1", "2026-10-19 09:30:00", "chat", "confirmed",
		"王小明", "0912", "台北", "週六", "2", "300", "450"}, rows[1])

	itemRows, err := f.GetRows(SheetItems)
	require.NoError(t, err)
	require.Len(t, itemRows, 3)
	assert.Equal(t, []string{"ref-1", "冷氣清洗", "台", "3", "100", "150", "300", "450"}, itemRows[1])
	assert.Equal(t, []string{"ref-1", "現場勘查", "次", "1", "", "", "0", "0", "專人到府"}, itemRows[2])
}

func TestExport_Empty(t *testing.T) {
	data, n, err := Export(context.Background(), estimates.NewMemoryRepo(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(SheetEstimates)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFileName(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "estimates_20261001_20261019.xlsx", FileName(from, from.AddDate(0, 0, 18)))
}
