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

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo registro de movimientos sobre PostgreSQL (usable con pool o tx). Solo inserta.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `m.id, m.organization_id, m.product_id, m.user_id, m.type, m.quantity,
	m.unit_of_measure, COALESCE(m.observation, ''), m.occurred_at, m.created_at, COALESCE(p.name, '')`

// Create persiste un movimiento.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO stock_movements (id, organization_id, product_id, user_id, type, quantity,
			unit_of_measure, observation, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.OrganizationID, m.ProductID, m.UserID, string(m.Type), m.Quantity,
		m.UnitOfMeasure, m.Observation, m.OccurredAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento de la organización; nil, nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, organizationID, id string) (*repository.MovementView, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements m
		LEFT JOIN products p ON p.id = m.product_id AND p.organization_id = m.organization_id
		WHERE m.organization_id = $1 AND m.id = $2`
	v, err := scanMovement(r.q.QueryRow(ctx, query, organizationID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return v, nil
}

// List movimientos filtrados, ordenados por occurred_at descendente, con el total sin paginar.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]repository.MovementView, int, error) {
	where, args := buildMovementWhere(f)
	from := `
		FROM stock_movements m
		LEFT JOIN products p ON p.id = m.product_id AND p.organization_id = m.organization_id
		WHERE ` + where

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock movements: %w", err)
	}

	query := `SELECT ` + movementColumns + from + ` ORDER BY m.occurred_at DESC, m.created_at DESC`
	query, args = appendLimitOffset(query, args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	out := make([]repository.MovementView, 0)
	for rows.Next() {
		v, err := scanMovement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan stock movement: %w", err)
		}
		out = append(out, *v)
	}
	return out, total, rows.Err()
}

// SumByProduct suma con signo por producto de la organización.
func (r *MovementRepo) SumByProduct(ctx context.Context, organizationID string) (map[string]decimal.Decimal, error) {
	query := `
		SELECT product_id,
		       SUM(CASE WHEN type = 'ENTRY' THEN quantity ELSE -quantity END)
		FROM stock_movements
		WHERE organization_id = $1
		GROUP BY product_id`
	rows, err := r.q.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("sum stock movements: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var productID string
		var sum decimal.Decimal
		if err := rows.Scan(&productID, &sum); err != nil {
			return nil, fmt.Errorf("scan movement sum: %w", err)
		}
		sums[productID] = sum
	}
	return sums, rows.Err()
}

// ListOrganizationIDs organizaciones con al menos un movimiento.
func (r *MovementRepo) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	return listStrings(ctx, r.q, `SELECT DISTINCT organization_id FROM stock_movements ORDER BY 1`)
}

func scanMovement(row pgx.Row) (*repository.MovementView, error) {
	var v repository.MovementView
	var typ string
	err := row.Scan(
		&v.ID, &v.OrganizationID, &v.ProductID, &v.UserID, &typ, &v.Quantity,
		&v.UnitOfMeasure, &v.Observation, &v.OccurredAt, &v.CreatedAt, &v.ProductName,
	)
	if err != nil {
		return nil, err
	}
	v.Type = entity.MovementType(typ)
	return &v, nil
}

// buildMovementWhere arma la cláusula WHERE y sus argumentos posicionales.
func buildMovementWhere(f repository.MovementFilter) (string, []any) {
	conds := []string{"m.organization_id = $1"}
	args := []any{f.OrganizationID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID != nil {
		add("m.product_id = $%d", *f.ProductID)
	}
	if f.UserID != nil {
		add("m.user_id = $%d", *f.UserID)
	}
	if f.Type != nil {
		add("m.type = $%d", string(*f.Type))
	}
	if f.DateFrom != nil {
		add("m.occurred_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("m.occurred_at <= $%d", *f.DateTo)
	}
	if f.ProductName != nil {
		add(`p.name ILIKE $%d ESCAPE '\'`, "%"+escapeLike(*f.ProductName)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func appendLimitOffset(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func listStrings(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
