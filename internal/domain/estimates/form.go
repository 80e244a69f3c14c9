package estimates

import (
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/catalog"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"
)

// FormFieldPrefix поля формы вида service_<название>=<количество>.
const FormFieldPrefix = "service_"

// FromForm смета из веб-формы. Позиции считаются теми же правилами, что и в
// чате (ledger.Append); порядок как в прайсе. Неизвестные услуги,
// количества вне 1..ledger.MaxQuantity и строки, переполняющие итог,
// пропускаются.
func FromForm(c *catalog.Catalog, values url.Values, now time.Time) (Estimate, error) {
	type picked struct {
		entry catalog.Entry
		qty   int
		order int
	}
	var list []picked
	for key, vals := range values {
		if !strings.HasPrefix(key, FormFieldPrefix) || len(vals) == 0 {
			continue
		}
		qty, err := strconv.Atoi(strings.TrimSpace(vals[0]))
		if err != nil || ledger.CheckQuantity(qty) != nil {
			continue
		}
		name := strings.TrimPrefix(key, FormFieldPrefix)
		entry, err := c.Lookup(name)
		if err != nil {
			continue
		}
		list = append(list, picked{entry: entry, qty: qty, order: c.Index(name)})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].order < list[j].order })

	items := ledger.Ledger{}
	for _, p := range list {
		next, _, err := items.Append(p.entry, p.qty)
		if errors.Is(err, ledger.ErrInvalidQuantity) {
			continue
		}
		if err != nil {
			return Estimate{}, err
		}
		items = next
	}

	e := Estimate{
		UserID:    strings.TrimSpace(values.Get("user_id")),
		Name:      strings.TrimSpace(values.Get("name")),
		Phone:     strings.TrimSpace(values.Get("phone")),
		Address:   strings.TrimSpace(values.Get("address")),
		VisitTime: strings.TrimSpace(values.Get("visit_time")),
		Status:    StatusConfirmed,
		Source:    SourceForm,
	}
	return finish(e, items, now)
}
