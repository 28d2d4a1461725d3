package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductCatalog colaborador externo dueño de los productos.
type ProductCatalog interface {
	// GetByID devuelve el producto solo si pertenece a la organización; nil, nil si no.
	GetByID(ctx context.Context, organizationID, productID string) (*entity.Product, error)
}
