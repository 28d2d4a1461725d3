package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ inventory.TxRunner     = (*TxRunner)(nil)
	_ inventory.ReadTxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL READ COMMITTED.
// La serialización por producto la dan los bloqueos de fila (SELECT ... FOR UPDATE) del snapshot.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout <= 0 no fija lock_timeout.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Cualquier error de fn provoca Rollback: no quedan escrituras parciales.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	snapRepo repository.StockSnapshotRepository,
) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classifyTxError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET LOCAL no acepta parámetros; el valor es un entero controlado por configuración.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return classifyTxError("set lock_timeout", err)
		}
	}

	if err := fn(NewMovementRepository(tx), NewSnapshotRepository(tx)); err != nil {
		if isDomainError(err) {
			return err
		}
		return classifyTxError("transaction", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyTxError("commit transaction", err)
	}
	return nil
}

// ReadOnly ejecuta fn en una transacción REPEATABLE READ de solo lectura: todas las
// consultas de fn ven la misma instantánea aunque otras transacciones confirmen entretanto.
func (r *TxRunner) ReadOnly(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	snapRepo repository.StockSnapshotRepository,
) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return classifyTxError("begin read transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewMovementRepository(tx), NewSnapshotRepository(tx)); err != nil {
		if isDomainError(err) {
			return err
		}
		return classifyTxError("read transaction", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyTxError("commit read transaction", err)
	}
	return nil
}

func isDomainError(err error) bool {
	for _, known := range []error{
		domain.ErrInvalidQuantity,
		domain.ErrInvalidMovementType,
		domain.ErrProductNotFound,
		domain.ErrInsufficientStock,
		domain.ErrConcurrencyConflict,
		domain.ErrInternal,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
