package estimates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/estimate-bot/internal/dialog"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"
	"github.com/google/uuid"
)

var (
	ErrIncompleteContactInfo = errors.New("incomplete contact info")
	ErrNoItems               = errors.New("estimate has no items")
	ErrSessionNotCompleted   = errors.New("session is not completed")
)

// Build собирает черновик сметы из завершённой сессии.
func Build(s *dialog.Session, now time.Time) (Estimate, error) {
	if s.State != dialog.StateCompleted {
		return Estimate{}, fmt.Errorf("%w: state %s", ErrSessionNotCompleted, s.State)
	}
	e := Estimate{
		UserID:    s.UserID,
		Name:      dialog.Deref(s.Name),
		Phone:     dialog.Deref(s.Phone),
		Address:   dialog.Deref(s.Address),
		VisitTime: dialog.Deref(s.VisitTime),
		Source:    SourceChat,
	}
	return finish(e, s.Items, now)
}

// Confirm копия сметы со статусом confirmed.
func Confirm(e Estimate) Estimate {
	e.Items = e.Items.Clone()
	e.Status = StatusConfirmed
	return e
}

func finish(e Estimate, items ledger.Ledger, now time.Time) (Estimate, error) {
	if err := checkContacts(e); err != nil {
		return Estimate{}, err
	}
	if len(items) == 0 {
		return Estimate{}, ErrNoItems
	}
	e.Ref = uuid.NewString()
	e.Items = items.Clone()
	e.TotalLow, e.TotalHigh = e.Items.Aggregate()
	if e.Status == "" {
		e.Status = StatusPending
	}
	e.CreatedAt = now.UTC()
	return e, nil
}

func checkContacts(e Estimate) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", e.Name},
		{"phone", e.Phone},
		{"address", e.Address},
		{"visit_time", e.VisitTime},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteContactInfo, strings.Join(missing, ", "))
	}
	return nil
}
