package claim

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

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const claimCols = `id, claimant_name, claim_number, referral_date, status,
	employer_id, carrier_id, pcp_provider_id, created_at, updated_at`

func (r *claimRepoPG) scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.ClaimantName, &c.ClaimNumber, &c.ReferralDate, &c.Status,
		&c.EmployerID, &c.CarrierID, &c.PCPProviderID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO claim (id, claimant_name, claim_number, referral_date, status,
			employer_id, carrier_id, pcp_provider_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		c.ID, c.ClaimantName, c.ClaimNumber, c.ReferralDate, c.Status,
		c.EmployerID, c.CarrierID, c.PCPProviderID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := r.scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("claim", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get claim %s: %w", id, err)
	}
	return c, nil
}

// Update writes the descriptive fields. Status is left to UpdateStatus.
func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim SET claimant_name=$2, claim_number=$3, referral_date=$4,
			employer_id=$5, carrier_id=$6, pcp_provider_id=$7, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.ClaimantName, c.ClaimNumber, c.ReferralDate,
		c.EmployerID, c.CarrierID, c.PCPProviderID)
	if err != nil {
		return fmt.Errorf("update claim %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("claim", c.ID)
	}
	return nil
}

func (r *claimRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE claim SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update claim %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("claim", id)
	}
	return nil
}

func (r *claimRepoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Claim, int, error) {
	where, args := "", []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count claims: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM claim%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		claimCols, where, len(args)-1, len(args))
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()
	var items []*Claim
	for rows.Next() {
		c, err := r.scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
