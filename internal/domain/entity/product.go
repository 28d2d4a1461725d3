package entity

import "time"

// Product referencia de catálogo. El catálogo es dueño del producto; el libro de stock
// solo lo consulta por ID para validar existencia, estado y unidad por defecto.
type Product struct {
	ID             string
	OrganizationID string
	Name           string
	Category       string
	UnitMeasure    string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
