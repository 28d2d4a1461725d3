package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/shopspring/decimal"
)

const reportPageSize = dto.MaxPageSize

// StockReportUseCase genera el reporte PDF de stock de una organización.
type StockReportUseCase struct {
	query     *QueryUseCase
	generator StockReportGenerator
	now       func() time.Time
}

// NewStockReportUseCase construye el caso de uso.
func NewStockReportUseCase(query *QueryUseCase, generator StockReportGenerator) *StockReportUseCase {
	return &StockReportUseCase{query: query, generator: generator, now: time.Now}
}

// DownloadStockReport recorre todas las páginas de snapshots y devuelve (pdfBytes, filename).
func (uc *StockReportUseCase) DownloadStockReport(
	ctx context.Context,
	organizationID string,
	threshold *decimal.Decimal,
	productName *string,
) ([]byte, string, error) {
	stats, err := uc.query.GetStatistics(ctx, organizationID, threshold)
	if err != nil {
		return nil, "", err
	}

	var items []dto.SnapshotResponse
	q := dto.SnapshotQuery{
		PageRequest: dto.PageRequest{Page: 1, PageSize: reportPageSize},
		Threshold:   &stats.Threshold,
		ProductName: productName,
	}
	for {
		page, err := uc.query.ListSnapshots(ctx, organizationID, q)
		if err != nil {
			return nil, "", err
		}
		items = append(items, page.Items...)
		if q.Page >= page.TotalPages {
			break
		}
		q.Page++
	}

	generatedAt := uc.now()
	pdf, err := uc.generator.GenerateStockReport(ctx, organizationID, generatedAt, *stats, items)
	if err != nil {
		return nil, "", fmt.Errorf("reporte de stock: %w", err)
	}
	return pdf, fmt.Sprintf("stock-%s.pdf", generatedAt.Format("20060102-1504")), nil
}
