package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
	"github.com/claimdesk/claimdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// -- BillableItem --

type billableRepoPG struct{ pool *pgxpool.Pool }

func NewBillableItemRepoPG(pool *pgxpool.Pool) BillableItemRepository {
	return &billableRepoPG{pool: pool}
}

func (r *billableRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const billableCols = `id, claim_id, report_id, invoice_id, service_date, description,
	activity_code, hours, rate, is_complete, created_at`

func (r *billableRepoPG) scanItem(row pgx.Row) (*BillableItem, error) {
	var b BillableItem
	err := row.Scan(&b.ID, &b.ClaimID, &b.ReportID, &b.InvoiceID, &b.ServiceDate, &b.Description,
		&b.ActivityCode, &b.Hours, &b.Rate, &b.IsComplete, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billableRepoPG) collect(rows pgx.Rows) ([]*BillableItem, error) {
	defer rows.Close()
	var items []*BillableItem
	for rows.Next() {
		b, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *billableRepoPG) Create(ctx context.Context, b *BillableItem) error {
	b.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO billable_item (id, claim_id, report_id, invoice_id, service_date, description,
			activity_code, hours, rate, is_complete)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		b.ID, b.ClaimID, b.ReportID, b.InvoiceID, b.ServiceDate, b.Description,
		b.ActivityCode, b.Hours, b.Rate, b.IsComplete).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert billable item: %w", err)
	}
	return nil
}

func (r *billableRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BillableItem, error) {
	b, err := r.scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+billableCols+` FROM billable_item WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("billable item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get billable item %s: %w", id, err)
	}
	return b, nil
}

func (r *billableRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID, limit, offset int) ([]*BillableItem, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM billable_item WHERE claim_id = $1`, claimID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count billable items: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+billableCols+` FROM billable_item WHERE claim_id = $1
		ORDER BY service_date DESC, created_at DESC LIMIT $2 OFFSET $3`, claimID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list billable items: %w", err)
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *billableRepoPG) ListUninvoiced(ctx context.Context, claimID uuid.UUID) ([]*BillableItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+billableCols+` FROM billable_item
		WHERE claim_id = $1 AND invoice_id IS NULL
		ORDER BY service_date, created_at`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list uninvoiced items: %w", err)
	}
	return r.collect(rows)
}

func (r *billableRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*BillableItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+billableCols+` FROM billable_item WHERE invoice_id = $1
		ORDER BY service_date, created_at`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	return r.collect(rows)
}

func (r *billableRepoPG) MarkInvoiced(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE billable_item SET invoice_id = $2
		WHERE id = ANY($1) AND invoice_id IS NULL`, ids, invoiceID)
	if err != nil {
		return 0, fmt.Errorf("mark items invoiced: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *billableRepoPG) Release(ctx context.Context, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	q := `UPDATE billable_item SET invoice_id = NULL WHERE invoice_id = $1`
	args := []interface{}{invoiceID}
	if len(ids) > 0 {
		q += ` AND id = ANY($2)`
		args = append(args, ids)
	}
	tag, err := r.conn(ctx).Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("release items of invoice %s: %w", invoiceID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *billableRepoPG) Update(ctx context.Context, b *BillableItem) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE billable_item SET service_date = $2, description = $3, activity_code = $4,
			hours = $5, rate = $6, is_complete = $7
		WHERE id = $1`,
		b.ID, b.ServiceDate, b.Description, b.ActivityCode, b.Hours, b.Rate, b.IsComplete)
	if err != nil {
		return fmt.Errorf("update billable item %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("billable item", b.ID)
	}
	return nil
}

func (r *billableRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM billable_item WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete billable item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("billable item", id)
	}
	return nil
}

// -- Invoice --

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

func (r *invoiceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const invoiceCols = `id, claim_id, invoice_number, status, dos_start, dos_end,
	total_amount, invoice_date, created_at`

func (r *invoiceRepoPG) scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.ClaimID, &inv.InvoiceNumber, &inv.Status, &inv.DOSStart, &inv.DOSEnd,
		&inv.TotalAmount, &inv.InvoiceDate, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoice (id, claim_id, invoice_number, status, dos_start, dos_end, total_amount, invoice_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		inv.ID, inv.ClaimID, inv.InvoiceNumber, inv.Status, inv.DOSStart, inv.DOSEnd,
		inv.TotalAmount, inv.InvoiceDate).Scan(&inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := r.scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("invoice", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return inv, nil
}

func (r *invoiceRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Invoice, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+invoiceCols+` FROM invoice WHERE claim_id = $1 ORDER BY created_at DESC`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var items []*Invoice
	for rows.Next() {
		inv, err := r.scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

// NextSequence bumps the per-year counter. The row lock taken by the upsert
// serializes concurrent invoice creation across claims.
func (r *invoiceRepoPG) NextSequence(ctx context.Context, year int) (int, error) {
	var next int
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoice_sequence (year, last_value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = invoice_sequence.last_value + 1
		RETURNING last_value`, year).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next invoice sequence for %d: %w", year, err)
	}
	return next, nil
}

func (r *invoiceRepoPG) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE invoice SET total_amount = $2 WHERE id = $1`, id, total)
	if err != nil {
		return fmt.Errorf("update invoice total %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("invoice", id)
	}
	return nil
}

func (r *invoiceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM invoice WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("invoice", id)
	}
	return nil
}
