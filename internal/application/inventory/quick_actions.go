package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Observaciones por defecto de las acciones rápidas.
const (
	QuickEntryObservation = "Entrada rápida"
	QuickExitObservation  = "Salida rápida"
)

// MovementRecorder contrato mínimo que las acciones rápidas necesitan del libro.
type MovementRecorder interface {
	RecordMovement(ctx context.Context, in RecordMovementInput) (*MovementResult, error)
}

// QuickActions fachada de entrada/salida rápida para formularios de un solo ítem.
// No agrega reglas: fija el tipo y completa la observación.
type QuickActions struct {
	ledger MovementRecorder
}

// NewQuickActions construye la fachada.
func NewQuickActions(ledger MovementRecorder) *QuickActions {
	return &QuickActions{ledger: ledger}
}

// QuickMovementInput entrada común de QuickEntry y QuickExit.
type QuickMovementInput struct {
	OrganizationID string
	ProductID      string
	UserID         string
	Quantity       decimal.Decimal
	UnitOfMeasure  string
	Observation    string
}

// QuickEntry registra una entrada (ENTRY).
func (q *QuickActions) QuickEntry(ctx context.Context, in QuickMovementInput) (*MovementResult, error) {
	return q.record(ctx, entity.MovementTypeEntry, QuickEntryObservation, in)
}

// QuickExit registra una salida (EXIT).
func (q *QuickActions) QuickExit(ctx context.Context, in QuickMovementInput) (*MovementResult, error) {
	return q.record(ctx, entity.MovementTypeExit, QuickExitObservation, in)
}

func (q *QuickActions) record(ctx context.Context, t entity.MovementType, defaultObs string, in QuickMovementInput) (*MovementResult, error) {
	obs := in.Observation
	if obs == "" {
		obs = defaultObs
	}
	return q.ledger.RecordMovement(ctx, RecordMovementInput{
		OrganizationID: in.OrganizationID,
		ProductID:      in.ProductID,
		UserID:         in.UserID,
		Type:           t,
		Quantity:       in.Quantity,
		UnitOfMeasure:  in.UnitOfMeasure,
		Observation:    obs,
	})
}
