package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *inventory.LedgerUseCase
	Quick     *inventory.QuickActions
	Query     *inventory.QueryUseCase
	Report    *inventory.StockReportUseCase
	Reconcile *inventory.ReconcileUseCase
	JWTSecret string
	Log       zerolog.Logger
}

// Router registra las rutas de la API. Todo /api/stock exige Bearer Token;
// la organización y el usuario salen del token, nunca del body.
func Router(app *fiber.App, deps RouterDeps) {
	h := NewStockHandler(deps.Ledger, deps.Quick, deps.Query, deps.Report, deps.Reconcile, deps.Log)

	stock := app.Group("/api/stock", AuthMiddleware(deps.JWTSecret))

	// Escrituras: roles operativos.
	writers := RequireRole(RoleAdmin, RoleBodeguero, RoleCocina)
	stock.Post("/movements", writers, h.RecordMovement)
	stock.Post("/quick-entry", writers, h.QuickEntry)
	stock.Post("/quick-exit", writers, h.QuickExit)

	// Lecturas: cualquier usuario autenticado de la organización.
	stock.Get("/movements", h.ListMovements)
	stock.Get("/movements/:id", h.GetMovement)
	stock.Get("/snapshots", h.ListSnapshots)
	stock.Get("/snapshots/report.pdf", h.DownloadReport)
	stock.Get("/statistics", h.GetStatistics)

	stock.Get("/reconcile", RequireRole(RoleAdmin), h.Reconcile)
}
