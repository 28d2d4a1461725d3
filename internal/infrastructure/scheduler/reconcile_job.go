package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Reconciler contrato mínimo del caso de uso de conciliación.
type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]dto.ReconcileReport, error)
}

// ReconcileJob ejecuta la conciliación de todas las organizaciones según un cron.
// Solo reporta: las diferencias se registran en el log, nunca se corrigen.
type ReconcileJob struct {
	reconciler Reconciler
	log        zerolog.Logger
	timeout    time.Duration

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// NewReconcileJob construye el job. timeout acota cada ejecución.
func NewReconcileJob(reconciler Reconciler, log zerolog.Logger, timeout time.Duration) *ReconcileJob {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ReconcileJob{reconciler: reconciler, log: log, timeout: timeout}
}

// Start registra el job con la expresión cron (admite descriptores como "@every 1h") y arranca el scheduler.
func (j *ReconcileJob) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("reconcile: expresión cron inválida %q: %w", schedule, err)
	}
	j.cron = c
	c.Start()
	j.log.Info().Str("schedule", schedule).Msg("job de conciliación programado")
	return nil
}

// Stop detiene el scheduler y espera la ejecución en curso o el fin de ctx.
func (j *ReconcileJob) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	done := j.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// RunOnce ejecuta una conciliación completa. Si ya hay una en curso, no hace nada.
// Devuelve la cantidad de diferencias encontradas.
func (j *ReconcileJob) RunOnce(ctx context.Context) int {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		j.log.Warn().Msg("conciliación anterior aún en curso, se omite esta ejecución")
		return 0
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	reports, err := j.reconciler.ReconcileAll(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("conciliación fallida")
	}

	found := 0
	for _, r := range reports {
		for _, d := range r.Discrepancies {
			found++
			j.log.Error().
				Str("organization_id", r.OrganizationID).
				Str("product_id", d.ProductID).
				Str("snapshot_quantity", d.SnapshotQuantity.String()).
				Str("movement_sum", d.MovementSum.String()).
				Bool("missing_snapshot", d.MissingSnapshot).
				Msg("snapshot distinto de la suma de movimientos")
		}
	}
	j.log.Info().
		Int("organizations", len(reports)).
		Int("discrepancies", found).
		Dur("elapsed", time.Since(start)).
		Msg("conciliación terminada")
	return found
}
