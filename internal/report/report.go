package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/xuri/excelize/v2"
)

const (
	SheetEstimates = "Estimates"
	SheetItems     = "Items"
)

// Source откуда берутся сметы за период.
type Source interface {
	List(ctx context.Context, from, to time.Time) ([]estimates.Estimate, error)
}

// Build книга из двух листов: сметы и их позиции.
func Build(list []estimates.Estimate) (*excelize.File, error) {
	f := excelize.NewFile()

	first := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(first, SheetEstimates); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		_ = f.Close()
		return nil, err
	}

	header := []interface{}{
		"id", "ref", "created_at", "source", "status",
		"name", "phone", "address", "visit_time",
		"items", "total_low", "total_high",
	}
	itemsHeader := []interface{}{
		"ref", "name", "unit", "quantity",
		"price_low", "price_high", "total_low", "total_high", "remark",
	}
	if err := f.SetSheetRow(SheetEstimates, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header: %w", err)
	}
	if err := f.SetSheetRow(SheetItems, "A1", &itemsHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("items header: %w", err)
	}

	row, itemRow := 2, 2
	for _, e := range list {
		excelRow := []interface{}{
			e.ID, e.Ref, e.CreatedAt.Format(time.DateTime), string(e.Source), string(e.Status),
			e.Name, e.Phone, e.Address, e.VisitTime,
			e.Items.Len(), e.TotalLow, e.TotalHigh,
		}
		if err := setRow(f, SheetEstimates, row, excelRow); err != nil {
			_ = f.Close()
			return nil, err
		}
		row++

		for _, it := range e.Items {
			r := []interface{}{
				e.Ref, it.Name, it.Unit, it.Quantity,
				price(it.PriceLow), price(it.PriceHigh), it.TotalLow, it.TotalHigh, it.Remark,
			}
			if err := setRow(f, SheetItems, itemRow, r); err != nil {
				_ = f.Close()
				return nil, err
			}
			itemRow++
		}
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}

// price пустая ячейка для «цены по запросу».
func price(p *int64) interface{} {
	if p == nil {
		return ""
	}
	return *p
}

// Export выгрузка смет за [from; to) в xlsx.
func Export(ctx context.Context, src Source, from, to time.Time) ([]byte, int, error) {
	list, err := src.List(ctx, from, to)
	if err != nil {
		return nil, 0, fmt.Errorf("list estimates: %w", err)
	}
	f, err := Build(list)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, 0, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), len(list), nil
}

// FileName имя файла выгрузки.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("estimates_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
}
