package repository

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementFilter filtros tipados para listar movimientos. Los campos nil no filtran.
// OrganizationID es obligatorio: ninguna consulta cruza organizaciones.
type MovementFilter struct {
	OrganizationID string
	ProductID      *string
	UserID         *string
	Type           *entity.MovementType
	DateFrom       *time.Time
	DateTo         *time.Time
	ProductName    *string // subcadena, sin distinguir mayúsculas
	Limit          int
	Offset         int
}

// SnapshotFilter filtros para listar snapshots.
// ZeroStock y LowStock se combinan con OR cuando ambos están activos.
type SnapshotFilter struct {
	OrganizationID string
	ZeroStock      bool
	LowStock       bool
	Threshold      decimal.Decimal // umbral de stock bajo
	ProductName    *string
	Limit          int
	Offset         int
}
