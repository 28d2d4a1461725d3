package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.StockSnapshotRepository = (*SnapshotRepo)(nil)

// SnapshotRepo snapshots de stock sobre PostgreSQL (usable con pool o tx).
type SnapshotRepo struct {
	q Querier
}

// NewSnapshotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSnapshotRepository(q Querier) *SnapshotRepo {
	return &SnapshotRepo{q: q}
}

// Get obtiene el snapshot; nil, nil si el producto aún no tiene movimientos.
func (r *SnapshotRepo) Get(ctx context.Context, organizationID, productID string) (*entity.StockSnapshot, error) {
	query := `
		SELECT organization_id, product_id, current_quantity, unit_of_measure, updated_at
		FROM stock_snapshots WHERE organization_id = $1 AND product_id = $2`
	s, err := scanSnapshot(r.q.QueryRow(ctx, query, organizationID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock snapshot: %w", err)
	}
	return s, nil
}

// GetForUpdate bloquea la fila del snapshot hasta el fin de la transacción (SELECT FOR UPDATE).
// Si no existe se inserta una fila en cero antes de bloquear, así el primer movimiento de un
// producto también queda serializado. Debe llamarse dentro de una tx.
func (r *SnapshotRepo) GetForUpdate(ctx context.Context, organizationID, productID string) (*entity.StockSnapshot, error) {
	insert := `
		INSERT INTO stock_snapshots (organization_id, product_id, current_quantity, unit_of_measure, updated_at)
		VALUES ($1, $2, 0, '', now())
		ON CONFLICT (organization_id, product_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, organizationID, productID); err != nil {
		return nil, fmt.Errorf("ensure stock snapshot: %w", err)
	}
	query := `
		SELECT organization_id, product_id, current_quantity, unit_of_measure, updated_at
		FROM stock_snapshots WHERE organization_id = $1 AND product_id = $2
		FOR UPDATE`
	s, err := scanSnapshot(r.q.QueryRow(ctx, query, organizationID, productID))
	if err != nil {
		return nil, fmt.Errorf("get stock snapshot for update: %w", err)
	}
	return s, nil
}

// Upsert inserta o actualiza la cantidad materializada.
func (r *SnapshotRepo) Upsert(ctx context.Context, s *entity.StockSnapshot) error {
	query := `
		INSERT INTO stock_snapshots (organization_id, product_id, current_quantity, unit_of_measure, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, product_id)
		DO UPDATE SET current_quantity = EXCLUDED.current_quantity,
		              unit_of_measure = EXCLUDED.unit_of_measure,
		              updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, s.OrganizationID, s.ProductID, s.CurrentQuantity, s.UnitOfMeasure, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert stock snapshot: %w", err)
	}
	return nil
}

// List snapshots con nombre y categoría del catálogo, ordenados por nombre.
func (r *SnapshotRepo) List(ctx context.Context, f repository.SnapshotFilter) ([]repository.SnapshotView, int, error) {
	where, args := buildSnapshotWhere(f)
	from := `
		FROM stock_snapshots s
		LEFT JOIN products p ON p.id = s.product_id AND p.organization_id = s.organization_id
		WHERE ` + where

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock snapshots: %w", err)
	}

	query := `SELECT s.organization_id, s.product_id, s.current_quantity, s.unit_of_measure, s.updated_at,
		COALESCE(p.name, ''), COALESCE(p.category, '')` + from + ` ORDER BY p.name NULLS LAST, s.product_id`
	query, args = appendLimitOffset(query, args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]repository.SnapshotView, 0)
	for rows.Next() {
		var v repository.SnapshotView
		if err := rows.Scan(&v.OrganizationID, &v.ProductID, &v.CurrentQuantity, &v.UnitOfMeasure, &v.UpdatedAt,
			&v.ProductName, &v.Category); err != nil {
			return nil, 0, fmt.Errorf("scan stock snapshot: %w", err)
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// Statistics conteos en una sola consulta con FILTER.
func (r *SnapshotRepo) Statistics(ctx context.Context, organizationID string, threshold decimal.Decimal) (repository.StockStatistics, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE current_quantity > 0),
		       COUNT(*) FILTER (WHERE current_quantity <= 0),
		       COUNT(*) FILTER (WHERE current_quantity > 0 AND current_quantity < $2)
		FROM stock_snapshots
		WHERE organization_id = $1`
	var st repository.StockStatistics
	if err := r.q.QueryRow(ctx, query, organizationID, threshold).Scan(
		&st.TotalProducts, &st.InStock, &st.ZeroStock, &st.LowStock,
	); err != nil {
		return repository.StockStatistics{}, fmt.Errorf("stock statistics: %w", err)
	}
	return st, nil
}

// ListOrganizationIDs organizaciones con al menos un snapshot.
func (r *SnapshotRepo) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	return listStrings(ctx, r.q, `SELECT DISTINCT organization_id FROM stock_snapshots ORDER BY 1`)
}

func scanSnapshot(row pgx.Row) (*entity.StockSnapshot, error) {
	var s entity.StockSnapshot
	if err := row.Scan(&s.OrganizationID, &s.ProductID, &s.CurrentQuantity, &s.UnitOfMeasure, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// buildSnapshotWhere arma el WHERE; cero y bajo se combinan con OR.
func buildSnapshotWhere(f repository.SnapshotFilter) (string, []any) {
	conds := []string{"s.organization_id = $1"}
	args := []any{f.OrganizationID}

	var stock []string
	if f.ZeroStock {
		stock = append(stock, "s.current_quantity <= 0")
	}
	if f.LowStock {
		args = append(args, f.Threshold)
		stock = append(stock, fmt.Sprintf("(s.current_quantity > 0 AND s.current_quantity < $%d)", len(args)))
	}
	if len(stock) > 0 {
		conds = append(conds, "("+strings.Join(stock, " OR ")+")")
	}
	if f.ProductName != nil {
		args = append(args, "%"+escapeLike(*f.ProductName)+"%")
		conds = append(conds, fmt.Sprintf(`p.name ILIKE $%d ESCAPE '\'`, len(args)))
	}
	return strings.Join(conds, " AND "), args
}
