package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Spok95/estimate-bot/internal/command"
	"github.com/Spok95/estimate-bot/internal/dialog"
	"github.com/Spok95/estimate-bot/internal/domain/catalog"
	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"
	"github.com/Spok95/estimate-bot/internal/infra/metrics"
)

const DefaultPageSize = 10

// EstimateStore сохраняет подтверждённые сметы.
type EstimateStore interface {
	Create(ctx context.Context, e estimates.Estimate) (estimates.Estimate, error)
}

// Notifier уведомляет оператора о новой смете.
type Notifier interface {
	NotifyEstimate(ctx context.Context, e estimates.Estimate) error
}

// Event входящее событие: текст или данные кнопки (Action).
type Event struct {
	UserID string
	Text   string
	Action string
}

type Controller struct {
	catalog   *catalog.Catalog
	pageSize  int
	sessions  dialog.Store
	estimates EstimateStore
	notifier  Notifier
	log       *slog.Logger
	now       func() time.Time
}

// New notifier может быть nil.
func New(cat *catalog.Catalog, pageSize int, sessions dialog.Store,
	est EstimateStore, notifier Notifier, log *slog.Logger) *Controller {

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		catalog: cat, pageSize: pageSize, sessions: sessions,
		estimates: est, notifier: notifier, log: log, now: time.Now,
	}
}

// turn итог одного хода, собирается внутри Update.
type turn struct {
	kind     command.Kind
	out      []Message
	changed  bool
	from, to dialog.State
	booking  *estimates.Estimate
}

func (t *turn) say(m ...Message) { t.out = append(t.out, m...) }

// Handle обрабатывает событие пользователя за один атомарный ход.
// Ошибки ввода превращаются в ответы; ошибка возвращается только если ход
// откатился (хранилище, нарушенный инвариант). Сохранение сметы и
// уведомление выполняются после фиксации хода и его не откатывают.
func (c *Controller) Handle(ctx context.Context, ev Event) ([]Message, error) {
	started := time.Now()
	defer func() { metrics.TurnDuration.Observe(time.Since(started).Seconds()) }()

	var t turn
	err := c.sessions.Update(ctx, ev.UserID, func(s *dialog.Session) error {
		t = turn{from: s.State}
		if err := c.step(&t, s, ev); err != nil {
			return err
		}
		t.to = s.State
		if !t.changed {
			return dialog.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", ev.UserID, err)
	}

	metrics.Events.WithLabelValues(t.kind.String()).Inc()
	if t.changed && t.from != t.to {
		metrics.Transitions.WithLabelValues(string(t.from), string(t.to)).Inc()
		c.log.Debug("state changed", "user_id", ev.UserID, "from", t.from, "to", t.to)
	}
	if t.booking != nil {
		c.deliver(ctx, *t.booking)
	}
	return t.out, nil
}

func (c *Controller) step(t *turn, s *dialog.Session, ev Event) error {
	var (
		cmd command.Command
		err error
	)
	if ev.Action != "" {
		cmd, err = command.ParseAction(ev.Action)
	} else {
		cmd, err = command.ParseText(ev.Text, s.State, s.Items.Len())
	}
	var pe *command.ParseError
	if errors.As(err, &pe) {
		t.kind = pe.Kind
		c.onParseError(t, s, pe)
		return nil
	}
	if err != nil {
		return err
	}

	t.kind = cmd.Kind
	switch cmd.Kind {
	case command.KindNone:
	case command.KindStart:
		c.start(t, s)
	case command.KindViewSelection:
		c.view(t, s)
	case command.KindDelete:
		return c.delete(t, s, cmd.Index)
	case command.KindModify:
		return c.modify(t, s, cmd.Index, cmd.Quantity)
	case command.KindQuantity:
		return c.quantity(t, s, cmd.Quantity)
	case command.KindContact:
		return c.contact(t, s, cmd.Text)
	case command.KindSelectService:
		return c.selectService(t, s, cmd.Arg)
	case command.KindNextPage, command.KindPrevPage:
		c.turnPage(t, s, cmd.Page)
	case command.KindFinishSelection:
		c.finishSelection(t, s)
	case command.KindConfirmEstimate:
		return c.confirmEstimate(t, s)
	case command.KindConfirmBooking:
		return c.confirmBooking(t, s)
	case command.KindModifyEstimate:
		c.modifyEstimate(t, s)
	default:
		return fmt.Errorf("unhandled command %s", cmd.Kind)
	}
	return nil
}

// editable список можно менять до перехода к контактам.
func editable(st dialog.State) bool {
	switch st {
	case dialog.StateStart, dialog.StateSelecting, dialog.StateQuantityInput:
		return true
	}
	return false
}

func (c *Controller) menu(page int) Message { return menu(c.catalog, page, c.pageSize) }

func (c *Controller) start(t *turn, s *dialog.Session) {
	s.Reset()
	t.changed = true
	t.say(c.menu(s.CurrentPage))
}

func (c *Controller) view(t *turn, s *dialog.Session) {
	if s.Items.Len() == 0 {
		t.say(text(msgNothingSelected))
		return
	}
	t.say(Message{Sections: []Section{Summary(s.Items)}})
}

func (c *Controller) delete(t *turn, s *dialog.Session, i int) error {
	if !editable(s.State) {
		t.say(Message{Text: msgEditLocked, Buttons: modifyButton()})
		return nil
	}
	items, removed, err := s.Items.RemoveAt(i)
	if err != nil {
		t.say(text(c.ledgerErrorText(s, i+1, err)))
		return nil
	}
	s.Items = items
	t.changed = true

	reply := fmt.Sprintf(msgDeleted, i+1, removed.Name)
	if items.Len() == 0 {
		t.say(text(reply+"\n"+msgLedgerEmpty), c.menu(s.CurrentPage))
		return nil
	}
	t.say(Message{
		Text:     reply,
		Sections: []Section{Summary(items), {Lines: []string{msgDeleteMore}}},
	}, confirmAffordance())
	return nil
}

func (c *Controller) modify(t *turn, s *dialog.Session, i, qty int) error {
	if !editable(s.State) {
		t.say(Message{Text: msgEditLocked, Buttons: modifyButton()})
		return nil
	}
	items, it, err := s.Items.ModifyQuantityAt(i, qty)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrUnsupportedOperation):
		t.say(text(msgModifyQuote), confirmAffordance())
		return nil
	default:
		t.say(text(c.ledgerErrorText(s, i+1, err)))
		return nil
	}
	s.Items = items
	t.changed = true
	t.say(Message{
		Text:     fmt.Sprintf(msgModified, i+1, it.Name, it.Quantity, it.Unit, Range(it.TotalLow, it.TotalHigh)),
		Sections: []Section{Summary(items)},
	}, confirmAffordance())
	return nil
}

func (c *Controller) quantity(t *turn, s *dialog.Session, qty int) error {
	e, err := c.catalog.Lookup(s.PendingItem)
	if err != nil {
		c.log.Warn("pending service vanished", "user_id", s.UserID, "service", s.PendingItem, "err", err)
		s.State = dialog.StateSelecting
		s.PendingItem = ""
		t.changed = true
		t.say(text(msgUnknownService), c.menu(s.CurrentPage))
		return nil
	}
	items, it, err := s.Items.Append(e, qty)
	if errors.Is(err, ledger.ErrInvalidQuantity) {
		t.say(text(msgInvalidQuantity))
		return nil
	}
	if err != nil {
		return err
	}
	s.Items = items
	s.State = dialog.StateSelecting
	s.PendingItem = ""
	t.changed = true

	price := msgQuoteOnRequest
	if !it.QuoteOnRequest() {
		price = Range(it.TotalLow, it.TotalHigh)
	}
	t.say(text(fmt.Sprintf(msgItemAdded, it.Name, it.Quantity, it.Unit, price)), c.menu(s.CurrentPage))
	return nil
}

func (c *Controller) contact(t *turn, s *dialog.Session, value string) error {
	if s.ContactStep < dialog.ContactName || s.ContactStep > dialog.ContactVisitTime {
		s.ContactStep = dialog.ContactName
	}
	s.SetContact(s.ContactStep, value)
	t.changed = true

	if s.ContactStep < dialog.ContactVisitTime {
		s.ContactStep++
		t.say(text(contactPrompts[s.ContactStep]))
		return nil
	}

	s.State = dialog.StateCompleted
	est, err := estimates.Build(s, c.now())
	if err != nil {
		c.log.Error("estimate preview failed", "user_id", s.UserID, "err", err)
		return fmt.Errorf("build preview: %w", err)
	}
	t.say(preview(est))
	return nil
}

func (c *Controller) selectService(t *turn, s *dialog.Session, name string) error {
	if !editable(s.State) {
		t.say(Message{Text: msgPickLocked, Buttons: modifyButton()})
		return nil
	}
	e, err := c.catalog.Lookup(name)
	if err != nil {
		c.log.Warn("stale service button", "user_id", s.UserID, "service", name, "err", err)
		t.say(text(msgUnknownService), c.menu(s.CurrentPage))
		return nil
	}

	if e.QuoteOnRequest() {
		items, _, err := s.Items.Append(e, 1)
		if err != nil {
			return err
		}
		s.Items = items
		s.State = dialog.StateSelecting
		s.PendingItem = ""
		t.changed = true
		t.say(text(fmt.Sprintf(msgQuoteAdded, e.Name)), c.menu(s.CurrentPage))
		return nil
	}

	s.State = dialog.StateQuantityInput
	s.PendingItem = e.Name
	t.changed = true
	t.say(text(fmt.Sprintf(msgAskQuantity, e.Name, e.Unit)))
	return nil
}

func (c *Controller) turnPage(t *turn, s *dialog.Session, page int) {
	if !editable(s.State) {
		t.say(Message{Text: msgPickLocked, Buttons: modifyButton()})
		return
	}
	p := c.catalog.ClampPage(page, c.pageSize)
	if p != s.CurrentPage || s.State == dialog.StateStart {
		s.CurrentPage = p
		if s.State == dialog.StateStart {
			s.State = dialog.StateSelecting
		}
		t.changed = true
	}
	t.say(c.menu(p))
}

func (c *Controller) finishSelection(t *turn, s *dialog.Session) {
	if !editable(s.State) {
		t.say(Message{Text: msgPickLocked, Buttons: modifyButton()})
		return
	}
	if s.Items.Len() == 0 {
		t.say(text(msgSelectFirst))
		return
	}
	if s.State != dialog.StateSelecting {
		s.State = dialog.StateSelecting
		s.PendingItem = ""
		t.changed = true
	}
	t.say(Message{
		Sections: []Section{Summary(s.Items), {Lines: []string{msgFinishHints}}},
	}, confirmAffordance())
}

func (c *Controller) confirmEstimate(t *turn, s *dialog.Session) error {
	switch s.State {
	case dialog.StateContactInfo:
		t.say(text(c.contactPrompt(s)))
		return nil
	case dialog.StateCompleted:
		if s.BookingRef != "" {
			t.say(text(fmt.Sprintf(msgAlreadyBooked, s.BookingRef)))
			return nil
		}
		est, err := estimates.Build(s, c.now())
		if err != nil {
			return fmt.Errorf("build preview: %w", err)
		}
		t.say(preview(est))
		return nil
	}

	if s.Items.Len() == 0 {
		t.say(text(msgSelectFirst), c.menu(s.CurrentPage))
		return nil
	}
	s.State = dialog.StateContactInfo
	s.ContactStep = dialog.ContactName
	s.PendingItem = ""
	t.changed = true
	t.say(text(contactPrompts[dialog.ContactName]))
	return nil
}

func (c *Controller) confirmBooking(t *turn, s *dialog.Session) error {
	if s.State != dialog.StateCompleted {
		t.say(text(msgBookingNotReady))
		return nil
	}
	if s.BookingRef != "" {
		t.say(text(fmt.Sprintf(msgAlreadyBooked, s.BookingRef)))
		return nil
	}
	est, err := estimates.Build(s, c.now())
	if err != nil {
		c.log.Error("estimate build failed", "user_id", s.UserID, "err", err)
		return fmt.Errorf("build estimate: %w", err)
	}
	est = estimates.Confirm(est)
	s.BookingRef = est.Ref
	t.changed = true
	t.booking = &est
	t.say(text(fmt.Sprintf(msgBooked, est.Ref)))
	return nil
}

func (c *Controller) modifyEstimate(t *turn, s *dialog.Session) {
	s.State = dialog.StateSelecting
	s.CurrentPage = 1
	s.PendingItem = ""
	s.BookingRef = ""
	t.changed = true
	t.say(c.menu(1))
}

func (c *Controller) contactPrompt(s *dialog.Session) string {
	if s.ContactStep < dialog.ContactName || s.ContactStep > dialog.ContactVisitTime {
		return contactPrompts[dialog.ContactName]
	}
	return contactPrompts[s.ContactStep]
}

func (c *Controller) onParseError(t *turn, s *dialog.Session, pe *command.ParseError) {
	switch pe.Kind {
	case command.KindDelete, command.KindModify:
		if !editable(s.State) {
			t.say(Message{Text: msgEditLocked, Buttons: modifyButton()})
			return
		}
		if errors.Is(pe, command.ErrMalformed) {
			if pe.Kind == command.KindDelete {
				t.say(text(msgDeleteFormat))
			} else {
				t.say(text(msgModifyFormat))
			}
			return
		}
		t.say(text(c.ledgerErrorText(s, pe.Index, pe.Err)))
	case command.KindQuantity:
		t.say(text(msgInvalidQuantity))
	case command.KindContact:
		t.say(text(c.contactPrompt(s)))
	case command.KindSelectService:
		t.say(text(msgUnknownService), c.menu(s.CurrentPage))
	default:
		c.log.Warn("malformed action", "user_id", s.UserID, "input", pe.Input, "err", pe.Err)
		t.say(c.menu(s.CurrentPage))
	}
}

// ledgerErrorText подсказка по ошибке операции над списком; n номер позиции с единицы.
func (c *Controller) ledgerErrorText(s *dialog.Session, n int, err error) string {
	switch {
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		if s.Items.Len() == 0 {
			return msgNothingSelected
		}
		return fmt.Sprintf(msgNoSuchItem, n, s.Items.Len())
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return msgModifyQuantity
	case errors.Is(err, ledger.ErrUnsupportedOperation):
		return msgModifyQuote
	}
	return msgModifyFormat
}

// deliver сохраняет смету и уведомляет оператора. Ошибки только логируются.
func (c *Controller) deliver(ctx context.Context, e estimates.Estimate) {
	saved, err := c.estimates.Create(ctx, e)
	if err != nil {
		metrics.SideEffectFailures.WithLabelValues("persist").Inc()
		c.log.Error("persist estimate failed", "user_id", e.UserID, "estimate_ref", e.Ref, "err", err)
	} else {
		e = saved
		metrics.Estimates.WithLabelValues(string(e.Source)).Inc()
		c.log.Info("estimate booked", "user_id", e.UserID, "estimate_ref", e.Ref, "id", e.ID)
	}
	c.notify(ctx, e)
}

func (c *Controller) notify(ctx context.Context, e estimates.Estimate) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.NotifyEstimate(ctx, e); err != nil {
		metrics.SideEffectFailures.WithLabelValues("notify").Inc()
		c.log.Error("notify operator failed", "estimate_ref", e.Ref, "err", err)
	}
}

// SubmitForm принимает смету из веб-формы в обход диалога. Ошибка
// сохранения возвращается вызывающему, уведомление best-effort.
func (c *Controller) SubmitForm(ctx context.Context, values url.Values) (estimates.Estimate, error) {
	e, err := estimates.FromForm(c.catalog, values, c.now())
	if err != nil {
		return estimates.Estimate{}, err
	}
	saved, err := c.estimates.Create(ctx, e)
	if err != nil {
		return estimates.Estimate{}, fmt.Errorf("save form estimate: %w", err)
	}
	metrics.Estimates.WithLabelValues(string(saved.Source)).Inc()
	c.log.Info("form estimate received", "user_id", saved.UserID, "estimate_ref", saved.Ref, "items", saved.Items.Len())
	c.notify(ctx, saved)
	return saved, nil
}
