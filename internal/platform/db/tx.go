package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const DBTxKey contextKey = "db_tx"

// TxFromContext returns the transaction carried by ctx, if any. Repositories
// prefer it over the pool so every write of a claim operation lands in the
// same transaction.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// ContextWithTx returns a copy of ctx carrying tx.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, DBTxKey, tx)
}

// ClaimTx serializes work on a single claim. Each call runs in its own
// transaction holding a transaction-scoped advisory lock derived from the
// claim id, so concurrent create/delete on the same claim queue up while
// different claims proceed in parallel.
type ClaimTx struct {
	pool *pgxpool.Pool
}

func NewClaimTx(pool *pgxpool.Pool) *ClaimTx {
	return &ClaimTx{pool: pool}
}

// WithinClaim runs fn inside a claim-locked transaction. The transaction is
// committed when fn returns nil and rolled back otherwise. When ctx already
// carries a transaction, the lock is taken on it and fn joins it.
func (t *ClaimTx) WithinClaim(ctx context.Context, claimID uuid.UUID, fn func(ctx context.Context) error) error {
	if tx := TxFromContext(ctx); tx != nil {
		if err := lockClaim(ctx, tx, claimID); err != nil {
			return err
		}
		return fn(ctx)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockClaim(ctx, tx, claimID); err != nil {
		return err
	}
	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit claim transaction: %w", err)
	}
	return nil
}

// Savepoint runs fn inside a savepoint of the transaction carried by ctx.
// A failure rolls back only the work done by fn; the outer transaction stays
// usable. Without a transaction in ctx, fn runs directly.
func (t *ClaimTx) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	return Savepoint(ctx, fn)
}

// Savepoint is the package-level form of ClaimTx.Savepoint.
func Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return fn(ctx)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := fn(ContextWithTx(ctx, sp)); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback savepoint after %v: %w", err, rbErr)
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func lockClaim(ctx context.Context, tx pgx.Tx, claimID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, claimID.String()); err != nil {
		return fmt.Errorf("lock claim %s: %w", claimID, err)
	}
	return nil
}
