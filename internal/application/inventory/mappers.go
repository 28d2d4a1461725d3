package inventory

import (
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

func toMovementResponse(m *entity.Movement, productName string) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		ProductID:      m.ProductID,
		ProductName:    productName,
		UserID:         m.UserID,
		Type:           string(m.Type),
		Quantity:       m.Quantity,
		UnitOfMeasure:  m.UnitOfMeasure,
		Observation:    m.Observation,
		OccurredAt:     m.OccurredAt,
		CreatedAt:      m.CreatedAt,
	}
}

func toSnapshotResponse(s *entity.StockSnapshot, threshold decimal.Decimal) dto.SnapshotResponse {
	return dto.SnapshotResponse{
		OrganizationID:  s.OrganizationID,
		ProductID:       s.ProductID,
		CurrentQuantity: s.CurrentQuantity,
		UnitOfMeasure:   s.UnitOfMeasure,
		Status:          string(s.Status(threshold)),
		UpdatedAt:       s.UpdatedAt,
	}
}

func toSnapshotViewResponse(v *repository.SnapshotView, threshold decimal.Decimal) dto.SnapshotResponse {
	out := toSnapshotResponse(&v.StockSnapshot, threshold)
	out.ProductName = v.ProductName
	out.Category = v.Category
	return out
}

// ToRecordMovementResponse adapta el resultado del libro al cuerpo HTTP.
func ToRecordMovementResponse(res *MovementResult, threshold decimal.Decimal) dto.RecordMovementResponse {
	return dto.RecordMovementResponse{
		Movement: toMovementResponse(res.Movement, res.ProductName),
		Snapshot: toSnapshotResponse(res.Snapshot, threshold),
	}
}
