package inventory

import (
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// QuantityScale decimales admitidos en cantidades. Coincide con NUMERIC(18,4) de
// stock_movements.quantity y stock_snapshots.current_quantity.
const QuantityScale = 4

// ValidateQuantity exige una cantidad estrictamente positiva y representable con
// QuantityScale decimales; así lo confirmado en la base es exactamente lo recibido.
func ValidateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	if !q.Equal(q.Truncate(QuantityScale)) {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// ApplyMovement implementa la regla de saldo (servicio de dominio).
// NuevoSaldo = SaldoActual + q (ENTRY) | SaldoActual - q (EXIT); una salida mayor al saldo se rechaza.
func ApplyMovement(current decimal.Decimal, t entity.MovementType, q decimal.Decimal) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Zero, domain.ErrInvalidMovementType
	}
	if err := ValidateQuantity(q); err != nil {
		return decimal.Zero, err
	}
	if t == entity.MovementTypeExit && q.GreaterThan(current) {
		return decimal.Zero, &domain.InsufficientStockError{Available: current, Requested: q}
	}
	return current.Add(t.Signed(q)), nil
}
