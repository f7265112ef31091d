package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BillableItemRepository interface {
	Create(ctx context.Context, b *BillableItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*BillableItem, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID, limit, offset int) ([]*BillableItem, int, error)
	// ListUninvoiced returns every uninvoiced item of the claim, complete or
	// not; Select narrows it for invoicing.
	ListUninvoiced(ctx context.Context, claimID uuid.UUID) ([]*BillableItem, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*BillableItem, error)
	// MarkInvoiced links items to an invoice. Items already invoiced are
	// left alone; the count of items linked is returned.
	MarkInvoiced(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error)
	// Release unlinks items from an invoice. With no ids every item of the
	// invoice is released.
	Release(ctx context.Context, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error)
	Update(ctx context.Context, b *BillableItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Invoice, error)
	// NextSequence allocates the next invoice sequence value for year.
	NextSequence(ctx context.Context, year int) (int, error)
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
}
