package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerConfig parámetros del libro de stock.
type LedgerConfig struct {
	MaxAttempts  int           // intentos ante ErrConcurrencyConflict (mínimo 1)
	RetryBackoff time.Duration // espera base entre intentos, crece linealmente
	DefaultUnit  string        // unidad si ni el caller ni el catálogo la informan
}

// LedgerUseCase registra movimientos de stock de forma transaccional: bloquea la fila del
// snapshot (SELECT FOR UPDATE), valida el saldo y escribe movimiento + snapshot juntos.
type LedgerUseCase struct {
	txRunner  TxRunner
	catalog   repository.ProductCatalog
	publisher EventPublisher
	cfg       LedgerConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewLedgerUseCase construye el caso de uso. publisher puede ser nil.
func NewLedgerUseCase(
	txRunner TxRunner,
	catalog repository.ProductCatalog,
	publisher EventPublisher,
	cfg LedgerConfig,
	log zerolog.Logger,
) *LedgerUseCase {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.DefaultUnit == "" {
		cfg.DefaultUnit = "UN"
	}
	return &LedgerUseCase{
		txRunner:  txRunner,
		catalog:   catalog,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// RecordMovementInput entrada de RecordMovement. OccurredAt nil = ahora.
type RecordMovementInput struct {
	OrganizationID string
	ProductID      string
	UserID         string
	Type           entity.MovementType
	Quantity       decimal.Decimal
	UnitOfMeasure  string
	Observation    string
	OccurredAt     *time.Time
}

// MovementResult movimiento creado y snapshot resultante.
type MovementResult struct {
	Movement    *entity.Movement
	Snapshot    *entity.StockSnapshot
	ProductName string
}

// RecordMovement valida la entrada, aplica el movimiento en una única transacción y devuelve
// el movimiento creado con el snapshot resultante.
//
// Errores:
//   - domain.ErrInvalidQuantity, domain.ErrInvalidMovementType, domain.ErrInvalidInput: antes de persistir.
//   - domain.ErrProductNotFound: el producto no existe en la organización o está inactivo.
//   - *domain.InsufficientStockError (errors.Is ErrInsufficientStock): salida mayor al saldo.
//   - domain.ErrConcurrencyConflict: se agotaron los intentos; nada quedó confirmado.
//   - domain.ErrInternal: fallo inesperado de persistencia.
func (uc *LedgerUseCase) RecordMovement(ctx context.Context, in RecordMovementInput) (*MovementResult, error) {
	if in.OrganizationID == "" || in.ProductID == "" || in.UserID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := inventory.ValidateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, domain.ErrInvalidMovementType
	}

	product, err := uc.catalog.GetByID(ctx, in.OrganizationID, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: consultar catálogo: %v", domain.ErrInternal, err)
	}
	if product == nil || !product.Active {
		return nil, domain.ErrProductNotFound
	}

	now := uc.now().UTC()
	occurredAt := now
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		occurredAt = in.OccurredAt.UTC()
	}
	unit := in.UnitOfMeasure
	if unit == "" {
		unit = product.UnitMeasure
	}
	if unit == "" {
		unit = uc.cfg.DefaultUnit
	}
	mov := &entity.Movement{
		ID:             uuid.New().String(),
		OrganizationID: in.OrganizationID,
		ProductID:      in.ProductID,
		UserID:         in.UserID,
		Type:           in.Type,
		Quantity:       in.Quantity,
		UnitOfMeasure:  unit,
		Observation:    in.Observation,
		OccurredAt:     occurredAt,
		CreatedAt:      now,
	}

	var snapshot *entity.StockSnapshot
	for attempt := 1; ; attempt++ {
		snapshot, err = uc.apply(ctx, mov)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return nil, classify(err)
		}
		if attempt >= uc.cfg.MaxAttempts {
			uc.log.Warn().Err(err).
				Str("organization_id", mov.OrganizationID).
				Str("product_id", mov.ProductID).
				Int("attempts", attempt).
				Msg("movimiento abortado por conflicto de concurrencia")
			return nil, domain.ErrConcurrencyConflict
		}
		uc.log.Warn().Err(err).
			Str("product_id", mov.ProductID).
			Int("attempt", attempt).
			Msg("conflicto de concurrencia, reintentando movimiento")
		if err := uc.wait(ctx, attempt); err != nil {
			return nil, domain.ErrConcurrencyConflict
		}
	}

	uc.log.Debug().
		Str("movement_id", mov.ID).
		Str("organization_id", mov.OrganizationID).
		Str("product_id", mov.ProductID).
		Str("type", string(mov.Type)).
		Str("quantity", mov.Quantity.String()).
		Str("balance", snapshot.CurrentQuantity.String()).
		Msg("movimiento registrado")

	// El movimiento ya está confirmado: un fallo al publicar no revierte nada.
	if err := uc.publisher.PublishMovementRecorded(ctx, mov, snapshot); err != nil {
		uc.log.Error().Err(err).Str("movement_id", mov.ID).Msg("publicar evento de movimiento")
	}

	return &MovementResult{Movement: mov, Snapshot: snapshot, ProductName: product.Name}, nil
}

// apply es la sección crítica: bloquea el snapshot, valida el saldo e inserta movimiento + snapshot.
func (uc *LedgerUseCase) apply(ctx context.Context, mov *entity.Movement) (*entity.StockSnapshot, error) {
	var result *entity.StockSnapshot
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		snapRepo repository.StockSnapshotRepository,
	) error {
		snap, err := snapRepo.GetForUpdate(ctx, mov.OrganizationID, mov.ProductID)
		if err != nil {
			return err
		}
		newQty, err := inventory.ApplyMovement(snap.CurrentQuantity, mov.Type, mov.Quantity)
		if err != nil {
			return err
		}
		snap.OrganizationID = mov.OrganizationID
		snap.ProductID = mov.ProductID
		snap.CurrentQuantity = newQty
		if snap.UnitOfMeasure == "" {
			snap.UnitOfMeasure = mov.UnitOfMeasure
		}
		snap.UpdatedAt = mov.CreatedAt

		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		if err := snapRepo.Upsert(ctx, snap); err != nil {
			return err
		}
		result = snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *LedgerUseCase) wait(ctx context.Context, attempt int) error {
	if uc.cfg.RetryBackoff <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(uc.cfg.RetryBackoff * time.Duration(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// classify deja pasar los errores de dominio y envuelve el resto como ErrInternal.
func classify(err error) error {
	for _, known := range []error{
		domain.ErrInvalidQuantity,
		domain.ErrInvalidMovementType,
		domain.ErrInvalidInput,
		domain.ErrProductNotFound,
		domain.ErrInsufficientStock,
		domain.ErrConcurrencyConflict,
		domain.ErrInternal,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrInternal, err)
}
