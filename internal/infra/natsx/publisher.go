package natsx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"
	"github.com/nats-io/nats.go"
)

// Publisher публикует подтверждённые сметы в NATS.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

func Connect(url, name, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

// Event тело сообщения.
type Event struct {
	ID        int64         `json:"id,omitempty"`
	Ref       string        `json:"ref"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Address   string        `json:"address"`
	VisitTime string        `json:"visit_time"`
	Items     ledger.Ledger `json:"items"`
	TotalLow  int64         `json:"total_low"`
	TotalHigh int64         `json:"total_high"`
	Status    string        `json:"status"`
	Source    string        `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewEvent(e estimates.Estimate) Event {
	items := e.Items
	if items == nil {
		items = ledger.Ledger{}
	}
	return Event{
		ID: e.ID, Ref: e.Ref, UserID: e.UserID,
		Name: e.Name, Phone: e.Phone, Address: e.Address, VisitTime: e.VisitTime,
		Items: items, TotalLow: e.TotalLow, TotalHigh: e.TotalHigh,
		Status: string(e.Status), Source: string(e.Source), CreatedAt: e.CreatedAt,
	}
}

func (p *Publisher) NotifyEstimate(ctx context.Context, e estimates.Estimate) error {
	data, err := json.Marshal(NewEvent(e))
	if err != nil {
		return fmt.Errorf("marshal estimate: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set("Nats-Msg-Id", e.Ref)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
