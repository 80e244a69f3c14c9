package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// LabelLimit ограничение длины подписи кнопки (в символах).
const LabelLimit = 20

var (
	ErrUnknownService = errors.New("unknown service")
	ErrInvalidEntry   = errors.New("invalid catalog entry")
)

// Entry одна позиция прайса. PriceLow/PriceHigh == nil означает «цена по запросу».
type Entry struct {
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	PriceLow  *int64 `json:"price_low"`
	PriceHigh *int64 `json:"price_high"`
	Remark    string `json:"remark,omitempty"`
}

func (e Entry) QuoteOnRequest() bool {
	return e.PriceLow == nil && e.PriceHigh == nil
}

// Label обрезает название до LabelLimit графем.
func (e Entry) Label() string {
	return truncate(e.Name, LabelLimit)
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidEntry)
	}
	if (e.PriceLow == nil) != (e.PriceHigh == nil) {
		return fmt.Errorf("%w: %q has only one of price_low/price_high", ErrInvalidEntry, e.Name)
	}
	if e.PriceLow != nil {
		if *e.PriceLow < 0 || *e.PriceHigh < 0 {
			return fmt.Errorf("%w: %q has negative price", ErrInvalidEntry, e.Name)
		}
		if *e.PriceLow > *e.PriceHigh {
			return fmt.Errorf("%w: %q price_low > price_high", ErrInvalidEntry, e.Name)
		}
	}
	return nil
}

// Catalog неизменяемый список услуг. Создаётся один раз при старте.
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidEntry, e.Name)
		}
		c.byName[e.Name] = len(c.entries)
		c.entries = append(c.entries, cloneEntry(e))
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.entries) }

// Entries возвращает копию списка.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

func (c *Catalog) Lookup(name string) (Entry, error) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return cloneEntry(c.entries[i]), nil
}

// Index позиция услуги в прайсе, -1 если нет.
func (c *Catalog) Index(name string) int {
	if i, ok := c.byName[name]; ok {
		return i
	}
	return -1
}

func cloneEntry(e Entry) Entry {
	if e.PriceLow != nil {
		v := *e.PriceLow
		e.PriceLow = &v
	}
	if e.PriceHigh != nil {
		v := *e.PriceHigh
		e.PriceHigh = &v
	}
	return e
}

func truncate(s string, limit int) string {
	g := uniseg.NewGraphemes(s)
	var b strings.Builder
	n := 0
	for g.Next() {
		if n == limit {
			break
		}
		b.WriteString(g.Str())
		n++
	}
	return b.String()
}

// Price удобный конструктор для цен в тестах и импорте.
func Price(v int64) *int64 { return &v }
