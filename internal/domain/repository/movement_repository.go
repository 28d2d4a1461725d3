package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementView movimiento con datos de catálogo para listados.
type MovementView struct {
	entity.Movement
	ProductName string
}

// MovementRepository puerto de persistencia del registro de movimientos (solo inserción).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, organizationID, id string) (*MovementView, error)
	List(ctx context.Context, filter MovementFilter) ([]MovementView, int, error)
	// SumByProduct suma con signo (+ENTRY, -EXIT) por producto de la organización.
	SumByProduct(ctx context.Context, organizationID string) (map[string]decimal.Decimal, error)
	ListOrganizationIDs(ctx context.Context) ([]string, error)
}
