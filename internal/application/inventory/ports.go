package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y no queda ninguna escritura parcial.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		snapRepo repository.StockSnapshotRepository,
	) error) error
}

// ReadTxRunner ejecuta lecturas sobre una única instantánea consistente de la BD
// (REPEATABLE READ, solo lectura). Las escrituras confirmadas durante fn no son visibles.
type ReadTxRunner interface {
	ReadOnly(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		snapRepo repository.StockSnapshotRepository,
	) error) error
}

// EventPublisher publica movimientos ya confirmados.
type EventPublisher interface {
	PublishMovementRecorded(ctx context.Context, movement *entity.Movement, snapshot *entity.StockSnapshot) error
}

// NoopPublisher descarta los eventos (publicación deshabilitada).
type NoopPublisher struct{}

func (NoopPublisher) PublishMovementRecorded(context.Context, *entity.Movement, *entity.StockSnapshot) error {
	return nil
}

// StockReportGenerator genera el reporte de stock de una organización.
type StockReportGenerator interface {
	GenerateStockReport(
		ctx context.Context,
		organizationID string,
		generatedAt time.Time,
		stats dto.StatisticsResponse,
		items []dto.SnapshotResponse,
	) ([]byte, error)
}
