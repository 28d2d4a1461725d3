package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductCatalog = (*ProductCatalog)(nil)

// ProductCatalog lectura de la tabla products, propiedad del servicio de catálogo.
type ProductCatalog struct {
	q Querier
}

// NewProductCatalog construye el adaptador.
func NewProductCatalog(q Querier) *ProductCatalog {
	return &ProductCatalog{q: q}
}

// GetByID devuelve el producto solo si pertenece a la organización; nil, nil si no.
func (c *ProductCatalog) GetByID(ctx context.Context, organizationID, productID string) (*entity.Product, error) {
	query := `
		SELECT id, organization_id, name, COALESCE(category, ''), COALESCE(unit_measure, ''), active, created_at, updated_at
		FROM products WHERE organization_id = $1 AND id = $2`
	var p entity.Product
	err := c.q.QueryRow(ctx, query, organizationID, productID).Scan(
		&p.ID, &p.OrganizationID, &p.Name, &p.Category, &p.UnitMeasure, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}
