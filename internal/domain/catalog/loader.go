package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadFile читает прайс из .json (массив объектов как в services.json)
// или из .xlsx (колонки: name, unit, price_low, price_high, remark).
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".xlsx":
		return ParseXLSX(data)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}

func ParseJSON(data []byte) (*Catalog, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog json: %w", err)
	}
	return New(entries)
}

// ParseXLSX первая строка активного листа: заголовок, пустая ячейка цены = «по запросу».
func ParseXLSX(data []byte) (*Catalog, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open catalog xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read catalog rows: %w", err)
	}
	if len(rows) == 0 {
		return New(nil)
	}
	if len(rows[0]) < 4 {
		return nil, fmt.Errorf("catalog xlsx: expected at least 4 columns (name, unit, price_low, price_high)")
	}

	entries := make([]Entry, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		name := cell(0)
		if name == "" {
			continue
		}
		low, err := parsePrice(cell(2))
		if err != nil {
			return nil, fmt.Errorf("catalog xlsx row %d: price_low %q: %w", i+1, cell(2), err)
		}
		high, err := parsePrice(cell(3))
		if err != nil {
			return nil, fmt.Errorf("catalog xlsx row %d: price_high %q: %w", i+1, cell(3), err)
		}
		entries = append(entries, Entry{
			Name:      name,
			Unit:      cell(1),
			PriceLow:  low,
			PriceHigh: high,
			Remark:    cell(4),
		})
	}
	return New(entries)
}

func parsePrice(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
