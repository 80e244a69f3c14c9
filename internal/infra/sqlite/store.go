package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Spok95/estimate-bot/internal/dialog"
	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"

	_ "modernc.org/sqlite"
)

// Store сессии и сметы в одном файле SQLite. Одно соединение: каждый ход
// выполняется в своей транзакции, и ходы не пересекаются.
type Store struct {
	db *sql.DB
}

var _ dialog.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id        TEXT PRIMARY KEY,
		state          TEXT    NOT NULL DEFAULT 'start',
		selected_items TEXT    NOT NULL DEFAULT '[]',
		current_page   INTEGER NOT NULL DEFAULT 1,
		pending_item   TEXT    NOT NULL DEFAULT '',
		contact_step   INTEGER NOT NULL DEFAULT 0,
		name           TEXT,
		phone          TEXT,
		address        TEXT,
		visit_time     TEXT,
		booking_ref    TEXT    NOT NULL DEFAULT '',
		version        INTEGER NOT NULL DEFAULT 0,
		updated_at     INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS estimates (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		ref        TEXT    NOT NULL UNIQUE,
		user_id    TEXT    NOT NULL DEFAULT '',
		name       TEXT    NOT NULL,
		phone      TEXT    NOT NULL,
		address    TEXT    NOT NULL,
		visit_time TEXT    NOT NULL,
		items      TEXT    NOT NULL,
		total_low  INTEGER NOT NULL,
		total_high INTEGER NOT NULL,
		status     TEXT    NOT NULL,
		source     TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

const sessionColumns = `user_id, state, selected_items, current_page, pending_item, contact_step,
	name, phone, address, visit_time, booking_ref, version, updated_at`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) Get(ctx context.Context, userID string) (*dialog.Session, error) {
	return getSession(ctx, s.db, userID)
}

func getSession(ctx context.Context, q queryer, userID string) (*dialog.Session, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = ?`, userID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dialog.NewSession(userID), nil
	}
	return sess, err
}

func (s *Store) Update(ctx context.Context, userID string, fn func(s *dialog.Session) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sess, err := getSession(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := fn(sess); err != nil {
		if errors.Is(err, dialog.ErrUnchanged) {
			return nil
		}
		return err
	}
	raw, err := sess.Items.Marshal()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (user_id) DO UPDATE SET
		  state=excluded.state, selected_items=excluded.selected_items,
		  current_page=excluded.current_page, pending_item=excluded.pending_item,
		  contact_step=excluded.contact_step, name=excluded.name, phone=excluded.phone,
		  address=excluded.address, visit_time=excluded.visit_time,
		  booking_ref=excluded.booking_ref, version=sessions.version+1,
		  updated_at=excluded.updated_at
	`, userID, string(sess.State), string(raw), sess.CurrentPage, sess.PendingItem, sess.ContactStep,
		sess.Name, sess.Phone, sess.Address, sess.VisitTime, sess.BookingRef, time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return tx.Commit()
}

func scanSession(row *sql.Row) (*dialog.Session, error) {
	var (
		sess    dialog.Session
		state   string
		raw     string
		name    sql.NullString
		phone   sql.NullString
		address sql.NullString
		visit   sql.NullString
		updated int64
	)
	if err := row.Scan(&sess.UserID, &state, &raw, &sess.CurrentPage, &sess.PendingItem, &sess.ContactStep,
		&name, &phone, &address, &visit, &sess.BookingRef, &sess.Version, &updated); err != nil {
		return nil, err
	}
	items, err := ledger.Unmarshal([]byte(raw))
	if err != nil {
		return nil, err
	}
	sess.Items = items
	sess.State = dialog.State(state)
	if !sess.State.Valid() {
		sess.State = dialog.StateStart
	}
	if sess.CurrentPage < 1 {
		sess.CurrentPage = 1
	}
	sess.Name = nullable(name)
	sess.Phone = nullable(phone)
	sess.Address = nullable(address)
	sess.VisitTime = nullable(visit)
	sess.UpdatedAt = time.Unix(0, updated).UTC()
	return &sess, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Create сохраняет смету, ID выдаёт база.
func (s *Store) Create(ctx context.Context, e estimates.Estimate) (estimates.Estimate, error) {
	raw, err := e.Items.Marshal()
	if err != nil {
		return estimates.Estimate{}, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO estimates
		(ref, user_id, name, phone, address, visit_time, items, total_low, total_high, status, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Ref, e.UserID, e.Name, e.Phone, e.Address, e.VisitTime, string(raw),
		e.TotalLow, e.TotalHigh, string(e.Status), string(e.Source), e.CreatedAt.UTC().UnixNano())
	if err != nil {
		return estimates.Estimate{}, fmt.Errorf("insert estimate: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return estimates.Estimate{}, err
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, from, to time.Time) ([]estimates.Estimate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ref, user_id, name, phone, address, visit_time, items,
		       total_low, total_high, status, source, created_at
		FROM estimates
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at, id
	`, from.UTC().UnixNano(), to.UTC().UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []estimates.Estimate
	for rows.Next() {
		var (
			e       estimates.Estimate
			raw     string
			status  string
			source  string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Ref, &e.UserID, &e.Name, &e.Phone, &e.Address, &e.VisitTime, &raw,
			&e.TotalLow, &e.TotalHigh, &status, &source, &created); err != nil {
			return nil, err
		}
		if e.Items, err = ledger.Unmarshal([]byte(raw)); err != nil {
			return nil, err
		}
		e.Status = estimates.Status(status)
		e.Source = estimates.Source(source)
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
