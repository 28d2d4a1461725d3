package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RecordMovementRequest body para POST /api/stock/movements.
// Quantity se recibe crudo para distinguir ausente/no numérico de cero o negativo.
type RecordMovementRequest struct {
	ProductID     string          `json:"productId"`
	Type          string          `json:"type"`
	Quantity      json.RawMessage `json:"quantity"`
	UnitOfMeasure string          `json:"unitOfMeasure,omitempty"`
	Observation   string          `json:"observation,omitempty"`
	OccurredAt    *time.Time      `json:"occurredAt,omitempty"`
}

// QuickMovementRequest body para POST /api/stock/quick-entry y /quick-exit.
type QuickMovementRequest struct {
	ProductID     string          `json:"productId"`
	Quantity      json.RawMessage `json:"quantity"`
	UnitOfMeasure string          `json:"unitOfMeasure,omitempty"`
	Observation   string          `json:"observation,omitempty"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organizationId"`
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName,omitempty"`
	UserID         string          `json:"userId"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitOfMeasure  string          `json:"unitOfMeasure"`
	Observation    string          `json:"observation,omitempty"`
	OccurredAt     time.Time       `json:"occurredAt"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// SnapshotResponse salida de un snapshot de stock.
type SnapshotResponse struct {
	OrganizationID  string          `json:"organizationId"`
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName,omitempty"`
	Category        string          `json:"category,omitempty"`
	CurrentQuantity decimal.Decimal `json:"currentQuantity"`
	UnitOfMeasure   string          `json:"unitOfMeasure"`
	Status          string          `json:"status,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// RecordMovementResponse resultado de registrar un movimiento.
type RecordMovementResponse struct {
	Movement MovementResponse `json:"movement"`
	Snapshot SnapshotResponse `json:"snapshot"`
}

// MovementQuery filtros de GET /api/stock/movements (nil = sin filtro).
type MovementQuery struct {
	PageRequest
	ProductID   *string
	UserID      *string
	Type        *string
	DateFrom    *time.Time
	DateTo      *time.Time
	ProductName *string
}

// SnapshotQuery filtros de GET /api/stock/snapshots.
type SnapshotQuery struct {
	PageRequest
	ZeroStock   bool
	LowStock    bool
	Threshold   *decimal.Decimal
	ProductName *string
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	PageResponse
}

// SnapshotListResponse lista paginada de snapshots.
type SnapshotListResponse struct {
	Items []SnapshotResponse `json:"items"`
	PageResponse
}

// StatisticsResponse conteos de GET /api/stock/statistics.
type StatisticsResponse struct {
	OrganizationID string          `json:"organizationId"`
	TotalProducts  int             `json:"totalProducts"`
	InStock        int             `json:"inStock"`
	ZeroStock      int             `json:"zeroStock"`
	LowStock       int             `json:"lowStock"`
	Threshold      decimal.Decimal `json:"threshold"`
}

// Discrepancy diferencia entre el snapshot y la suma de movimientos de un producto.
type Discrepancy struct {
	ProductID        string          `json:"productId"`
	SnapshotQuantity decimal.Decimal `json:"snapshotQuantity"`
	MovementSum      decimal.Decimal `json:"movementSum"`
	Difference       decimal.Decimal `json:"difference"`
	MissingSnapshot  bool            `json:"missingSnapshot,omitempty"`
}

// ReconcileReport resultado de auditar el invariante de una organización.
type ReconcileReport struct {
	OrganizationID  string        `json:"organizationId"`
	CheckedProducts int           `json:"checkedProducts"`
	Discrepancies   []Discrepancy `json:"discrepancies"`
	CheckedAt       time.Time     `json:"checkedAt"`
}

// Consistent indica si no se encontraron diferencias.
func (r ReconcileReport) Consistent() bool {
	return len(r.Discrepancies) == 0
}
