package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SnapshotView snapshot con datos de catálogo para listados y reportes.
type SnapshotView struct {
	entity.StockSnapshot
	ProductName string
	Category    string
}

// StockStatistics conteos agregados de snapshots de una organización.
type StockStatistics struct {
	TotalProducts int
	InStock       int // cantidad > 0
	ZeroStock     int // cantidad = 0
	LowStock      int // 0 < cantidad < umbral
}

// StockSnapshotRepository puerto para la cantidad materializada por organización+producto.
type StockSnapshotRepository interface {
	// Get devuelve nil, nil si el producto aún no tiene snapshot.
	Get(ctx context.Context, organizationID, productID string) (*entity.StockSnapshot, error)
	// GetForUpdate bloquea la fila del snapshot hasta el fin de la transacción.
	// Si no existe, devuelve un snapshot en cero (la fila se crea al hacer Upsert).
	GetForUpdate(ctx context.Context, organizationID, productID string) (*entity.StockSnapshot, error)
	Upsert(ctx context.Context, snapshot *entity.StockSnapshot) error
	List(ctx context.Context, filter SnapshotFilter) ([]SnapshotView, int, error)
	Statistics(ctx context.Context, organizationID string, threshold decimal.Decimal) (StockStatistics, error)
	ListOrganizationIDs(ctx context.Context) ([]string, error)
}
