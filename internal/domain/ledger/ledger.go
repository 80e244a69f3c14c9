package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Spok95/estimate-bot/internal/domain/catalog"
)

// MaxQuantity верхняя граница количества одной позиции.
const MaxQuantity = 100_000

var (
	ErrIndexOutOfRange      = errors.New("item index out of range")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrUnsupportedOperation = errors.New("quantity is not applicable to quote-on-request items")
)

// Item выбранная позиция. Цены это снимок прайса на момент выбора.
type Item struct {
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Quantity  int    `json:"quantity"`
	PriceLow  *int64 `json:"price_low"`
	PriceHigh *int64 `json:"price_high"`
	TotalLow  int64  `json:"total_low"`
	TotalHigh int64  `json:"total_high"`
	Remark    string `json:"remark,omitempty"`
}

// NewItem считает итоги: price*qty, для «цены по запросу» всегда 0/0.
func NewItem(e catalog.Entry, qty int) (Item, error) {
	if err := CheckQuantity(qty); err != nil {
		return Item{}, err
	}
	it := Item{
		Name:     e.Name,
		Unit:     e.Unit,
		Quantity: qty,
		Remark:   e.Remark,
	}
	if !e.QuoteOnRequest() {
		low, high := *e.PriceLow, *e.PriceHigh
		it.PriceLow, it.PriceHigh = &low, &high
	}
	return it.recalc()
}

// CheckQuantity количество в пределах 1..MaxQuantity.
func CheckQuantity(qty int) error {
	if qty <= 0 || qty > MaxQuantity {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	return nil
}

func (it Item) QuoteOnRequest() bool { return it.PriceLow == nil || it.PriceHigh == nil }

func (it Item) recalc() (Item, error) {
	if it.QuoteOnRequest() {
		it.TotalLow, it.TotalHigh = 0, 0
		return it, nil
	}
	var err error
	if it.TotalLow, err = mul(*it.PriceLow, it.Quantity); err != nil {
		return Item{}, err
	}
	if it.TotalHigh, err = mul(*it.PriceHigh, it.Quantity); err != nil {
		return Item{}, err
	}
	return it, nil
}

// mul price*qty; цены в прайсе неотрицательные.
func mul(price int64, qty int) (int64, error) {
	if price < 0 || qty < 0 {
		return 0, fmt.Errorf("%w: negative operand", ErrInvalidQuantity)
	}
	if price != 0 && int64(qty) > math.MaxInt64/price {
		return 0, fmt.Errorf("%w: total overflows", ErrInvalidQuantity)
	}
	return price * int64(qty), nil
}

func add(a, b int64) (int64, error) {
	if b > math.MaxInt64-a {
		return 0, fmt.Errorf("%w: total overflows", ErrInvalidQuantity)
	}
	return a + b, nil
}

func (it Item) clone() Item {
	if it.PriceLow != nil {
		v := *it.PriceLow
		it.PriceLow = &v
	}
	if it.PriceHigh != nil {
		v := *it.PriceHigh
		it.PriceHigh = &v
	}
	return it
}

// Ledger упорядоченный список выбранных позиций. Все операции
// возвращают новый Ledger и не трогают исходный.
type Ledger []Item

func (l Ledger) Len() int { return len(l) }

func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for i, it := range l {
		out[i] = it.clone()
	}
	return out
}

func (l Ledger) Append(e catalog.Entry, qty int) (Ledger, Item, error) {
	it, err := NewItem(e, qty)
	if err != nil {
		return l, Item{}, err
	}
	out := make(Ledger, 0, len(l)+1)
	out = append(out, l.Clone()...)
	out = append(out, it)
	if err := out.checkTotals(); err != nil {
		return l, Item{}, err
	}
	return out, it.clone(), nil
}

// RemoveAt индекс с нуля.
func (l Ledger) RemoveAt(i int) (Ledger, Item, error) {
	if err := l.checkIndex(i); err != nil {
		return l, Item{}, err
	}
	removed := l[i].clone()
	out := make(Ledger, 0, len(l)-1)
	for j, it := range l {
		if j != i {
			out = append(out, it.clone())
		}
	}
	return out, removed, nil
}

func (l Ledger) ModifyQuantityAt(i, qty int) (Ledger, Item, error) {
	if err := l.checkIndex(i); err != nil {
		return l, Item{}, err
	}
	if err := CheckQuantity(qty); err != nil {
		return l, Item{}, err
	}
	if l[i].QuoteOnRequest() {
		return l, Item{}, fmt.Errorf("%w: %q", ErrUnsupportedOperation, l[i].Name)
	}
	out := l.Clone()
	out[i].Quantity = qty
	it, err := out[i].recalc()
	if err != nil {
		return l, Item{}, err
	}
	out[i] = it
	if err := out.checkTotals(); err != nil {
		return l, Item{}, err
	}
	return out, it.clone(), nil
}

// Aggregate суммы по всем позициям, для пустого списка 0,0. Append и
// ModifyQuantityAt не допускают списков, чьи суммы не помещаются в int64.
func (l Ledger) Aggregate() (low, high int64) {
	for _, it := range l {
		low += it.TotalLow
		high += it.TotalHigh
	}
	return low, high
}

func (l Ledger) checkTotals() error {
	var low, high int64
	var err error
	for _, it := range l {
		if low, err = add(low, it.TotalLow); err != nil {
			return err
		}
		if high, err = add(high, it.TotalHigh); err != nil {
			return err
		}
	}
	return nil
}

func (l Ledger) checkIndex(i int) error {
	if i < 0 || i >= len(l) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i+1, len(l))
	}
	return nil
}

// Marshal пустой список сериализуется как [], а не null.
func (l Ledger) Marshal() ([]byte, error) {
	if l == nil {
		l = Ledger{}
	}
	return json.Marshal([]Item(l))
}

// Unmarshal пересчитывает итоги, чтобы инвариант total = price*qty держался
// и для записей, сохранённых старыми версиями.
func Unmarshal(raw []byte) (Ledger, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Ledger{}, nil
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	out := make(Ledger, len(items))
	for i, it := range items {
		var err error
		if out[i], err = it.recalc(); err != nil {
			return nil, fmt.Errorf("decode ledger item %d: %w", i+1, err)
		}
	}
	if err := out.checkTotals(); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return out, nil
}
