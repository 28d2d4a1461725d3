package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

const reconcileBatchSize = 500

// ReconcileUseCase audita el invariante: snapshot = suma con signo de los movimientos.
// Solo lee; nunca corrige. Cada organización se audita dentro de una sola transacción de
// lectura, así los movimientos que se confirmen durante la auditoría no generan diferencias.
type ReconcileUseCase struct {
	reader ReadTxRunner
	now    func() time.Time
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(reader ReadTxRunner) *ReconcileUseCase {
	return &ReconcileUseCase{reader: reader, now: time.Now}
}

// Reconcile compara cada snapshot de la organización con la suma de sus movimientos.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, organizationID string) (*dto.ReconcileReport, error) {
	if organizationID == "" {
		return nil, domain.ErrInvalidInput
	}
	var report *dto.ReconcileReport
	err := uc.reader.ReadOnly(ctx, func(
		movRepo repository.MovementRepository,
		snapRepo repository.StockSnapshotRepository,
	) error {
		r, err := uc.reconcile(ctx, organizationID, movRepo, snapRepo)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (uc *ReconcileUseCase) reconcile(
	ctx context.Context,
	organizationID string,
	movRepo repository.MovementRepository,
	snapRepo repository.StockSnapshotRepository,
) (*dto.ReconcileReport, error) {
	sums, err := movRepo.SumByProduct(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	report := &dto.ReconcileReport{
		OrganizationID: organizationID,
		Discrepancies:  []dto.Discrepancy{},
		CheckedAt:      uc.now().UTC(),
	}
	for offset := 0; ; offset += reconcileBatchSize {
		views, _, err := snapRepo.List(ctx, repository.SnapshotFilter{
			OrganizationID: organizationID,
			Limit:          reconcileBatchSize,
			Offset:         offset,
		})
		if err != nil {
			return nil, err
		}
		for _, v := range views {
			report.CheckedProducts++
			sum, ok := sums[v.ProductID]
			if !ok {
				sum = decimal.Zero
			}
			delete(sums, v.ProductID)
			if !sum.Equal(v.CurrentQuantity) {
				report.Discrepancies = append(report.Discrepancies, dto.Discrepancy{
					ProductID:        v.ProductID,
					SnapshotQuantity: v.CurrentQuantity,
					MovementSum:      sum,
					Difference:       v.CurrentQuantity.Sub(sum),
				})
			}
		}
		if len(views) < reconcileBatchSize {
			break
		}
	}

	// Movimientos sin snapshot: todo movimiento confirmado debe haber creado uno.
	orphans := make([]string, 0, len(sums))
	for productID := range sums {
		orphans = append(orphans, productID)
	}
	sort.Strings(orphans)
	for _, productID := range orphans {
		report.CheckedProducts++
		report.Discrepancies = append(report.Discrepancies, dto.Discrepancy{
			ProductID:        productID,
			SnapshotQuantity: decimal.Zero,
			MovementSum:      sums[productID],
			Difference:       sums[productID].Neg(),
			MissingSnapshot:  true,
		})
	}
	return report, nil
}

// ReconcileAll audita todas las organizaciones con snapshots o movimientos.
func (uc *ReconcileUseCase) ReconcileAll(ctx context.Context) ([]dto.ReconcileReport, error) {
	var fromSnapshots, fromMovements []string
	err := uc.reader.ReadOnly(ctx, func(
		movRepo repository.MovementRepository,
		snapRepo repository.StockSnapshotRepository,
	) error {
		var err error
		if fromSnapshots, err = snapRepo.ListOrganizationIDs(ctx); err != nil {
			return err
		}
		fromMovements, err = movRepo.ListOrganizationIDs(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(fromSnapshots)+len(fromMovements))
	var orgs []string
	for _, id := range append(fromSnapshots, fromMovements...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		orgs = append(orgs, id)
	}
	sort.Strings(orgs)

	reports := make([]dto.ReconcileReport, 0, len(orgs))
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := uc.Reconcile(ctx, org)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}
