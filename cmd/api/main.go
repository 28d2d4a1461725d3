package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jhoicas/stock-ledger/docs"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/events"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/scheduler"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// @title        Stock Ledger API
// @version      1.0
// @description  Libro de movimientos de stock por organización.
// @BasePath     /
// @securityDefinitions.apikey Bearer
// @in           header
// @name         Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.StorageDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Almacenamiento: postgres (row locks) o memoria (desarrollo local).
	var (
		txRunner inventory.TxRunner
		reader   inventory.ReadTxRunner
		catalog  repository.ProductCatalog
		movRepo  repository.MovementRepository
		snapRepo repository.StockSnapshotRepository
	)
	switch cfg.App.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		txRunner, reader, catalog = store, store, store
		movRepo, snapRepo = store.MovementRepository(), store.SnapshotRepository()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		runner := postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)
		txRunner, reader = runner, runner
		catalog = postgres.NewProductCatalog(pool)
		movRepo = postgres.NewMovementRepository(pool)
		snapRepo = postgres.NewSnapshotRepository(pool)
	}

	// Eventos: publicación best-effort tras el commit.
	var publisher inventory.EventPublisher = inventory.NoopPublisher{}
	if cfg.AMQP.Enabled() {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.App.Name, log.Component("events"))
		if err != nil {
			log.Error().Err(err).Msg("RabbitMQ no disponible, eventos deshabilitados")
		} else {
			defer amqpPub.Close()
			publisher = amqpPub
		}
	}

	ledgerUC := inventory.NewLedgerUseCase(txRunner, catalog, publisher, inventory.LedgerConfig{
		MaxAttempts:  cfg.Ledger.MaxAttempts,
		RetryBackoff: cfg.Ledger.RetryBackoff,
		DefaultUnit:  cfg.Ledger.DefaultUnit,
	}, log.Component("ledger"))
	queryUC := inventory.NewQueryUseCase(movRepo, snapRepo, cfg.Ledger.LowStockThreshold)
	reconcileUC := inventory.NewReconcileUseCase(reader)
	reportUC := inventory.NewStockReportUseCase(queryUC, infrapdf.NewStockReportGenerator(cfg.App.Name))

	var reconcileJob *scheduler.ReconcileJob
	if cfg.Reconcile.Schedule != "" {
		reconcileJob = scheduler.NewReconcileJob(reconcileUC, log.Component("reconcile"), 5*time.Minute)
		if err := reconcileJob.Start(cfg.Reconcile.Schedule); err != nil {
			log.Fatal().Err(err).Msg("programar conciliación")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.App.StorageDriver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledgerUC,
		Quick:     inventory.NewQuickActions(ledgerUC),
		Query:     queryUC,
		Report:    reportUC,
		Reconcile: reconcileUC,
		JWTSecret: cfg.JWT.Secret,
		Log:       log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if reconcileJob != nil {
		reconcileJob.Stop(shutdownCtx)
	}

	log.Info().Msg("aplicación detenida")
}
