package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
	"github.com/claimdesk/claimdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Provider Repository ===========

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository { return &providerRepoPG{pool: pool} }

func (r *providerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const providerCols = `id, name, specialty, is_active, created_at`

func (r *providerRepoPG) scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	if err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO provider (id, name, specialty, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		p.ID, p.Name, p.Specialty, p.IsActive).Scan(&p.CreatedAt)
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	p, err := r.scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM provider WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("provider", id)
	}
	return p, err
}

func (r *providerRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Provider, int, error) {
	where := ""
	if activeOnly {
		where = " WHERE is_active"
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM provider`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count providers: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+providerCols+` FROM provider`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()
	var items []*Provider
	for rows.Next() {
		p, err := r.scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *providerRepoPG) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return existingIDs(ctx, r.conn(ctx), `SELECT id FROM provider WHERE id = ANY($1)`, ids)
}

// =========== Barrier Option Repository ===========

type barrierOptionRepoPG struct{ pool *pgxpool.Pool }

func NewBarrierOptionRepoPG(pool *pgxpool.Pool) BarrierOptionRepository {
	return &barrierOptionRepoPG{pool: pool}
}

func (r *barrierOptionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const barrierCols = `id, category, label, sort_order, is_active`

func (r *barrierOptionRepoPG) scanBarrier(row pgx.Row) (*BarrierOption, error) {
	var b BarrierOption
	if err := row.Scan(&b.ID, &b.Category, &b.Label, &b.SortOrder, &b.IsActive); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *barrierOptionRepoPG) Create(ctx context.Context, b *BarrierOption) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO barrier_option (id, category, label, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.Category, b.Label, b.SortOrder, b.IsActive)
	return err
}

func (r *barrierOptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BarrierOption, error) {
	b, err := r.scanBarrier(r.conn(ctx).QueryRow(ctx, `SELECT `+barrierCols+` FROM barrier_option WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("barrier option", id)
	}
	return b, err
}

func (r *barrierOptionRepoPG) List(ctx context.Context, activeOnly bool) ([]*BarrierOption, error) {
	where := ""
	if activeOnly {
		where = " WHERE is_active"
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+barrierCols+` FROM barrier_option`+where+` ORDER BY sort_order, label`)
	if err != nil {
		return nil, fmt.Errorf("list barrier options: %w", err)
	}
	defer rows.Close()
	var items []*BarrierOption
	for rows.Next() {
		b, err := r.scanBarrier(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *barrierOptionRepoPG) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return existingIDs(ctx, r.conn(ctx), `SELECT id FROM barrier_option WHERE id = ANY($1)`, ids)
}

func existingIDs(ctx context.Context, q queryable, sql string, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, sql, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup catalog ids: %w", err)
	}
	defer rows.Close()
	var found []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}
