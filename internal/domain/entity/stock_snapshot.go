package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockSnapshot cantidad materializada de un producto en una organización.
// CurrentQuantity es la suma con signo de todos sus movimientos y nunca es negativa.
type StockSnapshot struct {
	OrganizationID  string
	ProductID       string
	CurrentQuantity decimal.Decimal
	UnitOfMeasure   string
	UpdatedAt       time.Time
}

// StockStatus clasificación de un snapshot frente al umbral de stock bajo.
type StockStatus string

const (
	StockStatusEmpty StockStatus = "SIN_STOCK"
	StockStatusLow   StockStatus = "BAJO"
	StockStatusOK    StockStatus = "OK"
)

// Status clasifica la cantidad: cero, bajo (0 < q < umbral) u OK.
func (s *StockSnapshot) Status(threshold decimal.Decimal) StockStatus {
	switch {
	case !s.CurrentQuantity.IsPositive():
		return StockStatusEmpty
	case s.CurrentQuantity.LessThan(threshold):
		return StockStatusLow
	default:
		return StockStatusOK
	}
}
