package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio del libro de stock.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	ErrInvalidQuantity     = errors.New("cantidad inválida: debe ser mayor que cero")
	ErrInvalidMovementType = errors.New("tipo de movimiento inválido: use ENTRY o EXIT")
	ErrProductNotFound     = errors.New("producto no encontrado o inactivo")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia, reintente la operación")
	ErrInternal            = errors.New("error interno")
)

// InsufficientStockError detalla una salida rechazada por falta de stock.
// errors.Is(err, ErrInsufficientStock) es verdadero para este tipo.
type InsufficientStockError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente, disponible: %s", e.Available.String())
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// AvailableFrom extrae la cantidad disponible de un error de stock insuficiente.
func AvailableFrom(err error) (decimal.Decimal, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise.Available, true
	}
	return decimal.Zero, false
}
