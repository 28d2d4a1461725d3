package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType dirección de un movimiento de stock. La cantidad siempre es positiva;
// el signo lo aporta el tipo.
type MovementType string

const (
	MovementTypeEntry MovementType = "ENTRY" // entrada
	MovementTypeExit  MovementType = "EXIT"  // salida
)

// ParseMovementType normaliza y valida el tipo recibido de un cliente.
func ParseMovementType(s string) (MovementType, bool) {
	t := MovementType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid indica si el tipo es ENTRY o EXIT.
func (t MovementType) Valid() bool {
	return t == MovementTypeEntry || t == MovementTypeExit
}

// Signed devuelve +q para ENTRY y -q para EXIT.
func (t MovementType) Signed(q decimal.Decimal) decimal.Decimal {
	if t == MovementTypeExit {
		return q.Neg()
	}
	return q
}

// Movement registro inmutable de stock que entra o sale para un producto de una organización.
// Las correcciones se hacen con un movimiento opuesto, nunca editando.
type Movement struct {
	ID             string
	OrganizationID string
	ProductID      string
	UserID         string
	Type           MovementType
	Quantity       decimal.Decimal // siempre > 0
	UnitOfMeasure  string
	Observation    string
	OccurredAt     time.Time
	CreatedAt      time.Time
}

// SignedQuantity cantidad con signo según el tipo.
func (m *Movement) SignedQuantity() decimal.Decimal {
	return m.Type.Signed(m.Quantity)
}
