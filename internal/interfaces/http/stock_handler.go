package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StockHandler maneja las peticiones HTTP del libro de stock (protegido).
type StockHandler struct {
	ledger    *inventory.LedgerUseCase
	quick     *inventory.QuickActions
	query     *inventory.QueryUseCase
	report    *inventory.StockReportUseCase
	reconcile *inventory.ReconcileUseCase
	log       zerolog.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(
	ledger *inventory.LedgerUseCase,
	quick *inventory.QuickActions,
	query *inventory.QueryUseCase,
	report *inventory.StockReportUseCase,
	reconcile *inventory.ReconcileUseCase,
	log zerolog.Logger,
) *StockHandler {
	return &StockHandler{ledger: ledger, quick: quick, query: query, report: report, reconcile: reconcile, log: log}
}

// RecordMovement godoc
// @Summary      Registrar movimiento de stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordMovementRequest  true  "productId, type (ENTRY|EXIT), quantity > 0"
// @Success      201   {object}  dto.RecordMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) RecordMovement(c *fiber.Ctx) error {
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.ledger.RecordMovementFromRequest(c.UserContext(), GetOrganizationID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToRecordMovementResponse(res, h.query.Threshold()))
}

// QuickEntry godoc
// @Summary      Entrada rápida
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.QuickMovementRequest  true  "productId, quantity"
// @Success      201   {object}  dto.RecordMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/quick-entry [post]
func (h *StockHandler) QuickEntry(c *fiber.Ctx) error {
	var in dto.QuickMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.quick.QuickEntryFromRequest(c.UserContext(), GetOrganizationID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToRecordMovementResponse(res, h.query.Threshold()))
}

// QuickExit godoc
// @Summary      Salida rápida
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.QuickMovementRequest  true  "productId, quantity"
// @Success      201   {object}  dto.RecordMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/quick-exit [post]
func (h *StockHandler) QuickExit(c *fiber.Ctx) error {
	var in dto.QuickMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.quick.QuickExitFromRequest(c.UserContext(), GetOrganizationID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToRecordMovementResponse(res, h.query.Threshold()))
}

// ListMovements godoc
// @Summary      Listar movimientos
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId    query  string  false  "producto"
// @Param        userId       query  string  false  "usuario"
// @Param        type         query  string  false  "ENTRY | EXIT"
// @Param        dateFrom     query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        dateTo       query  string  false  "RFC3339 o YYYY-MM-DD (inclusive)"
// @Param        productName  query  string  false  "subcadena del nombre"
// @Param        page         query  int     false  "página (desde 1)"
// @Param        pageSize     query  int     false  "tamaño (máx 100)"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	q := dto.MovementQuery{
		PageRequest: pageRequest(c),
		ProductID:   optionalQuery(c, "productId"),
		UserID:      optionalQuery(c, "userId"),
		Type:        optionalQuery(c, "type"),
		ProductName: optionalQuery(c, "productName"),
	}
	var err error
	if q.DateFrom, err = parseDate(c.Query("dateFrom"), false); err != nil {
		return writeError(c, h.log, err)
	}
	if q.DateTo, err = parseDate(c.Query("dateTo"), true); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.query.ListMovements(c.UserContext(), GetOrganizationID(c), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// GetMovement godoc
// @Summary      Obtener movimiento
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/{id} [get]
func (h *StockHandler) GetMovement(c *fiber.Ctx) error {
	res, err := h.query.GetMovement(c.UserContext(), GetOrganizationID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// ListSnapshots godoc
// @Summary      Listar snapshots de stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        zeroStock    query  bool    false  "solo sin stock"
// @Param        lowStock     query  bool    false  "solo bajo el umbral"
// @Param        threshold    query  number  false  "umbral de stock bajo"
// @Param        productName  query  string  false  "subcadena del nombre"
// @Param        page         query  int     false  "página"
// @Param        pageSize     query  int     false  "tamaño"
// @Success      200  {object}  dto.SnapshotListResponse
// @Router       /api/stock/snapshots [get]
func (h *StockHandler) ListSnapshots(c *fiber.Ctx) error {
	threshold, err := parseThreshold(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.query.ListSnapshots(c.UserContext(), GetOrganizationID(c), dto.SnapshotQuery{
		PageRequest: pageRequest(c),
		ZeroStock:   c.QueryBool("zeroStock"),
		LowStock:    c.QueryBool("lowStock"),
		Threshold:   threshold,
		ProductName: optionalQuery(c, "productName"),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// GetStatistics godoc
// @Summary      Estadísticas de stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        threshold  query  number  false  "umbral de stock bajo"
// @Success      200  {object}  dto.StatisticsResponse
// @Router       /api/stock/statistics [get]
func (h *StockHandler) GetStatistics(c *fiber.Ctx) error {
	threshold, err := parseThreshold(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.query.GetStatistics(c.UserContext(), GetOrganizationID(c), threshold)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// DownloadReport godoc
// @Summary      Reporte PDF de stock
// @Tags         stock
// @Security     Bearer
// @Produce      application/pdf
// @Param        threshold    query  number  false  "umbral de stock bajo"
// @Param        productName  query  string  false  "subcadena del nombre"
// @Success      200  {file}  binary
// @Router       /api/stock/snapshots/report.pdf [get]
func (h *StockHandler) DownloadReport(c *fiber.Ctx) error {
	threshold, err := parseThreshold(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	pdf, filename, err := h.report.DownloadStockReport(c.UserContext(), GetOrganizationID(c), threshold, optionalQuery(c, "productName"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

// Reconcile godoc
// @Summary      Conciliar snapshots contra movimientos (solo admin)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReconcileReport
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/stock/reconcile [get]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	res, err := h.reconcile.Reconcile(c.UserContext(), GetOrganizationID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// ── helpers de query string ──────────────────────────────────────────────────

func pageRequest(c *fiber.Ctx) dto.PageRequest {
	return dto.PageRequest{Page: c.QueryInt("page", 1), PageSize: c.QueryInt("pageSize", dto.DefaultPageSize)}
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func parseThreshold(c *fiber.Ctx) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query("threshold"))
	if raw == "" {
		return nil, nil
	}
	th, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	return &th, nil
}

// parseDate acepta RFC3339 o YYYY-MM-DD; con endOfDay una fecha sin hora cubre el día completo.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

