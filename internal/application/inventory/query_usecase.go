package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// QueryUseCase lecturas paginadas de movimientos y snapshots. No modifica nada.
type QueryUseCase struct {
	movRepo   repository.MovementRepository
	snapRepo  repository.StockSnapshotRepository
	threshold decimal.Decimal
}

// NewQueryUseCase construye el caso de uso con el umbral de stock bajo canónico.
func NewQueryUseCase(
	movRepo repository.MovementRepository,
	snapRepo repository.StockSnapshotRepository,
	lowStockThreshold decimal.Decimal,
) *QueryUseCase {
	return &QueryUseCase{movRepo: movRepo, snapRepo: snapRepo, threshold: lowStockThreshold}
}

// Threshold umbral de stock bajo por defecto.
func (uc *QueryUseCase) Threshold() decimal.Decimal { return uc.threshold }

// ListMovements lista movimientos de la organización ordenados por occurredAt descendente.
func (uc *QueryUseCase) ListMovements(ctx context.Context, organizationID string, q dto.MovementQuery) (*dto.MovementListResponse, error) {
	if organizationID == "" {
		return nil, domain.ErrInvalidInput
	}
	q.Normalize()
	filter := repository.MovementFilter{
		OrganizationID: organizationID,
		ProductID:      nonBlank(q.ProductID),
		UserID:         nonBlank(q.UserID),
		DateFrom:       q.DateFrom,
		DateTo:         q.DateTo,
		ProductName:    nonBlank(q.ProductName),
		Limit:          q.PageSize,
		Offset:         q.Offset(),
	}
	if t := nonBlank(q.Type); t != nil {
		mt, ok := entity.ParseMovementType(*t)
		if !ok {
			return nil, domain.ErrInvalidMovementType
		}
		filter.Type = &mt
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, domain.ErrInvalidInput
	}

	views, total, err := uc.movRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(views))
	for i := range views {
		items = append(items, toMovementResponse(&views[i].Movement, views[i].ProductName))
	}
	return &dto.MovementListResponse{Items: items, PageResponse: dto.NewPageResponse(q.PageRequest, total)}, nil
}

// GetMovement obtiene un movimiento de la organización por ID.
func (uc *QueryUseCase) GetMovement(ctx context.Context, organizationID, id string) (*dto.MovementResponse, error) {
	if organizationID == "" || id == "" {
		return nil, domain.ErrInvalidInput
	}
	v, err := uc.movRepo.GetByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrNotFound
	}
	out := toMovementResponse(&v.Movement, v.ProductName)
	return &out, nil
}

// ListSnapshots lista snapshots con filtros de stock cero / bajo / nombre.
func (uc *QueryUseCase) ListSnapshots(ctx context.Context, organizationID string, q dto.SnapshotQuery) (*dto.SnapshotListResponse, error) {
	if organizationID == "" {
		return nil, domain.ErrInvalidInput
	}
	threshold, err := uc.resolveThreshold(q.Threshold)
	if err != nil {
		return nil, err
	}
	q.Normalize()
	views, total, err := uc.snapRepo.List(ctx, repository.SnapshotFilter{
		OrganizationID: organizationID,
		ZeroStock:      q.ZeroStock,
		LowStock:       q.LowStock,
		Threshold:      threshold,
		ProductName:    nonBlank(q.ProductName),
		Limit:          q.PageSize,
		Offset:         q.Offset(),
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.SnapshotResponse, 0, len(views))
	for i := range views {
		items = append(items, toSnapshotViewResponse(&views[i], threshold))
	}
	return &dto.SnapshotListResponse{Items: items, PageResponse: dto.NewPageResponse(q.PageRequest, total)}, nil
}

// GetStatistics conteos de productos con stock, en cero y bajo el umbral.
func (uc *QueryUseCase) GetStatistics(ctx context.Context, organizationID string, threshold *decimal.Decimal) (*dto.StatisticsResponse, error) {
	if organizationID == "" {
		return nil, domain.ErrInvalidInput
	}
	th, err := uc.resolveThreshold(threshold)
	if err != nil {
		return nil, err
	}
	st, err := uc.snapRepo.Statistics(ctx, organizationID, th)
	if err != nil {
		return nil, err
	}
	return &dto.StatisticsResponse{
		OrganizationID: organizationID,
		TotalProducts:  st.TotalProducts,
		InStock:        st.InStock,
		ZeroStock:      st.ZeroStock,
		LowStock:       st.LowStock,
		Threshold:      th,
	}, nil
}

func (uc *QueryUseCase) resolveThreshold(th *decimal.Decimal) (decimal.Decimal, error) {
	if th == nil {
		return uc.threshold, nil
	}
	if th.IsNegative() {
		return decimal.Zero, domain.ErrInvalidInput
	}
	return *th, nil
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
