package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo сессии в Postgres (таблица sessions).
type Repo struct {
	pool *pgxpool.Pool
}

var _ Store = (*Repo)(nil)

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const sessionColumns = `user_id, state, selected_items, current_page, pending_item, contact_step,
	name, phone, address, visit_time, booking_ref, version, updated_at`

func (r *Repo) Get(ctx context.Context, userID string) (*Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1`, userID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// строки нет: сессия ещё не создавалась
		return NewSession(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update блокирует строку пользователя (SELECT ... FOR UPDATE) на время хода,
// поэтому параллельные события одного пользователя выполняются по очереди.
func (r *Repo) Update(ctx context.Context, userID string, fn func(s *Session) error) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 FOR UPDATE`, userID)
		s, err := scanSession(row)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if err := fn(s); err != nil {
			return err
		}
		raw, err := s.Items.Marshal()
		if err != nil {
			return err
		}
		var pending *string
		if s.PendingItem != "" {
			pending = &s.PendingItem
		}
		_, err = tx.Exec(ctx, `
			UPDATE sessions SET
			  state=$2, selected_items=$3, current_page=$4, pending_item=$5, contact_step=$6,
			  name=$7, phone=$8, address=$9, visit_time=$10, booking_ref=$11,
			  version=version+1, updated_at=now()
			WHERE user_id = $1
		`, userID, string(s.State), raw, s.CurrentPage, pending, s.ContactStep,
			s.Name, s.Phone, s.Address, s.VisitTime, s.BookingRef)
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrUnchanged) {
		return nil
	}
	return err
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		s       Session
		state   string
		raw     []byte
		pending *string
		updated time.Time
	)
	if err := row.Scan(&s.UserID, &state, &raw, &s.CurrentPage, &pending, &s.ContactStep,
		&s.Name, &s.Phone, &s.Address, &s.VisitTime, &s.BookingRef, &s.Version, &updated); err != nil {
		return nil, err
	}
	items, err := ledger.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	s.Items = items
	s.State = State(state)
	if !s.State.Valid() {
		s.State = StateStart
	}
	if pending != nil {
		s.PendingItem = *pending
	}
	if s.CurrentPage < 1 {
		s.CurrentPage = 1
	}
	s.UpdatedAt = updated
	return &s, nil
}
