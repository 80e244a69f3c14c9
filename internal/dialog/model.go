package dialog

import (
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/ledger"
)

type State string

const (
	StateStart         State = "start"
	StateSelecting     State = "selecting"
	StateQuantityInput State = "quantity_input" // ждём количество для PendingItem
	StateContactInfo   State = "contact_info"   // собираем контакты, шаг в ContactStep
	StateCompleted     State = "completed"
)

func (s State) Valid() bool {
	switch s {
	case StateStart, StateSelecting, StateQuantityInput, StateContactInfo, StateCompleted:
		return true
	}
	return false
}

// Шаги сбора контактов.
const (
	ContactName = iota
	ContactPhone
	ContactAddress
	ContactVisitTime
)

// Session состояние диалога одного пользователя.
type Session struct {
	UserID      string
	State       State
	Items       ledger.Ledger
	CurrentPage int
	PendingItem string
	ContactStep int

	Name      *string
	Phone     *string
	Address   *string
	VisitTime *string

	// BookingRef ссылка на уже оформленную заявку (защита от двойного нажатия).
	BookingRef string

	Version   int64
	UpdatedAt time.Time
}

func NewSession(userID string) *Session {
	return &Session{
		UserID:      userID,
		State:       StateStart,
		Items:       ledger.Ledger{},
		CurrentPage: 1,
	}
}

// Reset начало новой оценки: пустой список, первая страница, без контактов.
func (s *Session) Reset() {
	s.State = StateSelecting
	s.Items = ledger.Ledger{}
	s.CurrentPage = 1
	s.PendingItem = ""
	s.ContactStep = ContactName
	s.Name, s.Phone, s.Address, s.VisitTime = nil, nil, nil, nil
	s.BookingRef = ""
}

// SetContact записывает значение текущего шага контактов.
func (s *Session) SetContact(step int, value string) {
	v := value
	switch step {
	case ContactName:
		s.Name = &v
	case ContactPhone:
		s.Phone = &v
	case ContactAddress:
		s.Address = &v
	case ContactVisitTime:
		s.VisitTime = &v
	}
}

func (s *Session) Clone() *Session {
	c := *s
	c.Items = s.Items.Clone()
	c.Name = cloneStr(s.Name)
	c.Phone = cloneStr(s.Phone)
	c.Address = cloneStr(s.Address)
	c.VisitTime = cloneStr(s.VisitTime)
	return &c
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Deref пустая строка для nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
