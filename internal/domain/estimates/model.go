package estimates

import (
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/ledger"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Source откуда пришла заявка.
type Source string

const (
	SourceChat Source = "chat"
	SourceForm Source = "form"
)

// Estimate итоговая смета: контакты, снимок выбранных позиций и суммы.
// После сохранения не меняется.
type Estimate struct {
	ID        int64
	Ref       string
	UserID    string
	Name      string
	Phone     string
	Address   string
	VisitTime string
	Items     ledger.Ledger
	TotalLow  int64
	TotalHigh int64
	Status    Status
	Source    Source
	CreatedAt time.Time
}
