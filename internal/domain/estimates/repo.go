package estimates

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/estimate-bot/internal/domain/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo сметы в Postgres (таблица estimates, только вставка).
type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, e Estimate) (Estimate, error) {
	raw, err := e.Items.Marshal()
	if err != nil {
		return Estimate{}, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO estimates
		(ref, user_id, name, phone, address, visit_time, items, total_low, total_high, status, source, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id
	`, e.Ref, e.UserID, e.Name, e.Phone, e.Address, e.VisitTime, raw,
		e.TotalLow, e.TotalHigh, string(e.Status), string(e.Source), e.CreatedAt)
	if err := row.Scan(&e.ID); err != nil {
		return Estimate{}, fmt.Errorf("insert estimate: %w", err)
	}
	return e, nil
}

// List сметы за период [from; to), по времени создания.
func (r *Repo) List(ctx context.Context, from, to time.Time) ([]Estimate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ref, user_id, name, phone, address, visit_time, items,
		       total_low, total_high, status, source, created_at
		FROM estimates
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Estimate
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEstimate(row pgx.Row) (Estimate, error) {
	var (
		e      Estimate
		raw    []byte
		status string
		source string
	)
	if err := row.Scan(&e.ID, &e.Ref, &e.UserID, &e.Name, &e.Phone, &e.Address, &e.VisitTime, &raw,
		&e.TotalLow, &e.TotalHigh, &status, &source, &e.CreatedAt); err != nil {
		return Estimate{}, err
	}
	items, err := ledger.Unmarshal(raw)
	if err != nil {
		return Estimate{}, err
	}
	e.Items = items
	e.Status = Status(status)
	e.Source = Source(source)
	return e, nil
}
