package inventory_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

const (
	orgID     = "org-1"
	userID    = "user-1"
	productID = "prod-P"
)

func q(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── mocks ────────────────────────────────────────────────────────────────────

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishMovementRecorded(ctx context.Context, mov *entity.Movement, snap *entity.StockSnapshot) error {
	return m.Called(ctx, mov, snap).Error(0)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) GetByID(ctx context.Context, organizationID, productID string) (*entity.Product, error) {
	args := m.Called(ctx, organizationID, productID)
	p, _ := args.Get(0).(*entity.Product)
	return p, args.Error(1)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func newStore() *memory.Store {
	s := memory.NewStore()
	s.AddProduct(entity.Product{ID: productID, OrganizationID: orgID, Name: "Papa", UnitMeasure: "KG", Active: true})
	s.AddProduct(entity.Product{ID: "prod-inactivo", OrganizationID: orgID, Name: "Viejo", Active: false})
	return s
}

func newLedger(s *memory.Store, pub inventory.EventPublisher) *inventory.LedgerUseCase {
	return inventory.NewLedgerUseCase(s, s, pub, inventory.LedgerConfig{MaxAttempts: 3}, zerolog.Nop())
}

func record(t *testing.T, l *inventory.LedgerUseCase, typ entity.MovementType, quantity string) (*inventory.MovementResult, error) {
	t.Helper()
	return l.RecordMovement(context.Background(), inventory.RecordMovementInput{
		OrganizationID: orgID,
		ProductID:      productID,
		UserID:         userID,
		Type:           typ,
		Quantity:       q(quantity),
	})
}

// ── escenarios del libro ─────────────────────────────────────────────────────

func TestRecordMovement_Escenarios(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)

	// 1. ENTRY 50 sobre snapshot vacío.
	res, err := record(t, l, entity.MovementTypeEntry, "50")
	require.NoError(t, err)
	assert.True(t, res.Snapshot.CurrentQuantity.Equal(q("50")))
	assert.Equal(t, "KG", res.Movement.UnitOfMeasure, "unidad por defecto del catálogo")
	assert.Equal(t, "Papa", res.ProductName)

	// 2. EXIT 20 → 30, dos movimientos.
	res, err = record(t, l, entity.MovementTypeExit, "20")
	require.NoError(t, err)
	assert.True(t, res.Snapshot.CurrentQuantity.Equal(q("30")))
	require.Len(t, s.Movements(), 2)
	assert.Equal(t, entity.MovementTypeEntry, s.Movements()[0].Type)
	assert.Equal(t, entity.MovementTypeExit, s.Movements()[1].Type)

	// 3. EXIT 31 con 30 disponibles: falla y no cambia nada.
	_, err = record(t, l, entity.MovementTypeExit, "31")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	available, ok := domain.AvailableFrom(err)
	require.True(t, ok)
	assert.True(t, available.Equal(q("30")))
	assert.True(t, s.Snapshot(orgID, productID).CurrentQuantity.Equal(q("30")))
	assert.Len(t, s.Movements(), 2)

	// 4. EXIT exacto hasta cero.
	res, err = record(t, l, entity.MovementTypeExit, "30")
	require.NoError(t, err)
	assert.True(t, res.Snapshot.CurrentQuantity.IsZero())
	assert.Equal(t, entity.StockStatusEmpty, res.Snapshot.Status(q("10")))
}

func TestRecordMovement_SalidaSinSnapshot(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)

	_, err := record(t, l, entity.MovementTypeExit, "1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	available, ok := domain.AvailableFrom(err)
	require.True(t, ok)
	assert.True(t, available.IsZero())
	assert.Nil(t, s.Snapshot(orgID, productID))
	assert.Empty(t, s.Movements())
}

func TestRecordMovement_Validaciones(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   inventory.RecordMovementInput
		want error
	}{
		{"cantidad cero", inventory.RecordMovementInput{OrganizationID: orgID, ProductID: productID, UserID: userID, Type: entity.MovementTypeEntry, Quantity: decimal.Zero}, domain.ErrInvalidQuantity},
		{"cantidad negativa", inventory.RecordMovementInput{OrganizationID: orgID, ProductID: productID, UserID: userID, Type: entity.MovementTypeEntry, Quantity: q("-1")}, domain.ErrInvalidQuantity},
		{"más de cuatro decimales", inventory.RecordMovementInput{OrganizationID: orgID, ProductID: productID, UserID: userID, Type: entity.MovementTypeEntry, Quantity: q("0.00001")}, domain.ErrInvalidQuantity},
		{"tipo inválido", inventory.RecordMovementInput{OrganizationID: orgID, ProductID: productID, UserID: userID, Type: "TRANSFER", Quantity: q("1")}, domain.ErrInvalidMovementType},
		{"producto inexistente", inventory.RecordMovementInput{OrganizationID: orgID, ProductID: "nope", UserID: userID, Type: entity.MovementTypeEntry, Quantity: q("1")}, domain.ErrProductNotFound},
		{"producto inactivo", inventory.RecordMovementInput{OrganizationID: orgID, ProductID: "prod-inactivo", UserID: userID, Type: entity.MovementTypeEntry, Quantity: q("1")}, domain.ErrProductNotFound},
		{"producto de otra organización", inventory.RecordMovementInput{OrganizationID: "org-2", ProductID: productID, UserID: userID, Type: entity.MovementTypeEntry, Quantity: q("1")}, domain.ErrProductNotFound},
		{"sin usuario", inventory.RecordMovementInput{OrganizationID: orgID, ProductID: productID, Type: entity.MovementTypeEntry, Quantity: q("1")}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.RecordMovement(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, s.Movements())
}

func TestRecordMovement_UnidadYFechaExplicitas(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)
	when := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

	res, err := l.RecordMovement(context.Background(), inventory.RecordMovementInput{
		OrganizationID: orgID, ProductID: productID, UserID: userID,
		Type: entity.MovementTypeEntry, Quantity: q("2.5"),
		UnitOfMeasure: "LB", Observation: "compra", OccurredAt: &when,
	})
	require.NoError(t, err)
	assert.Equal(t, "LB", res.Movement.UnitOfMeasure)
	assert.Equal(t, when, res.Movement.OccurredAt)
	assert.Equal(t, userID, res.Movement.UserID)
	assert.NotEmpty(t, res.Movement.ID)
	assert.Equal(t, "LB", res.Snapshot.UnitOfMeasure)
}

func TestRecordMovement_ReintentaConflictos(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)

	s.InjectConflicts(2)
	res, err := record(t, l, entity.MovementTypeEntry, "5")
	require.NoError(t, err)
	assert.True(t, res.Snapshot.CurrentQuantity.Equal(q("5")))
	assert.Len(t, s.Movements(), 1, "el movimiento se escribe una sola vez")
}

func TestRecordMovement_AgotaReintentos(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)

	s.InjectConflicts(3)
	_, err := record(t, l, entity.MovementTypeEntry, "5")
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Empty(t, s.Movements())
	assert.Nil(t, s.Snapshot(orgID, productID))
}

func TestRecordMovement_SalidasConcurrentes(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)
	_, err := record(t, l, entity.MovementTypeEntry, "10")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.RecordMovement(context.Background(), inventory.RecordMovementInput{
				OrganizationID: orgID, ProductID: productID, UserID: userID,
				Type: entity.MovementTypeExit, Quantity: q("6"),
			})
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.True(t, s.Snapshot(orgID, productID).CurrentQuantity.Equal(q("4")))
	assert.Len(t, s.Movements(), 2)
}

func TestRecordMovement_SnapshotIgualASumaDeMovimientos(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)
	steps := []struct {
		typ entity.MovementType
		qty string
	}{
		{entity.MovementTypeEntry, "12.5"},
		{entity.MovementTypeExit, "2.25"},
		{entity.MovementTypeExit, "100"},
		{entity.MovementTypeEntry, "0.75"},
		{entity.MovementTypeExit, "11"},
	}
	for _, st := range steps {
		_, _ = record(t, l, st.typ, st.qty)
	}
	sum := decimal.Zero
	for _, m := range s.Movements() {
		sum = sum.Add(m.SignedQuantity())
	}
	snap := s.Snapshot(orgID, productID)
	require.NotNil(t, snap)
	assert.True(t, snap.CurrentQuantity.Equal(sum), "snapshot %s, suma %s", snap.CurrentQuantity, sum)
	assert.False(t, snap.CurrentQuantity.IsNegative())
}

func TestRecordMovement_PublicaTrasConfirmar(t *testing.T) {
	s := newStore()
	pub := new(mockPublisher)
	pub.On("PublishMovementRecorded", mock.Anything, mock.AnythingOfType("*entity.Movement"), mock.AnythingOfType("*entity.StockSnapshot")).
		Return(errors.New("broker caído")).Once()
	l := newLedger(s, pub)

	res, err := record(t, l, entity.MovementTypeEntry, "3")
	require.NoError(t, err, "un fallo del broker no afecta el movimiento confirmado")
	assert.NotNil(t, res)
	assert.Len(t, s.Movements(), 1)
	pub.AssertExpectations(t)
}

func TestRecordMovement_NoPublicaSiFalla(t *testing.T) {
	s := newStore()
	pub := new(mockPublisher)
	l := newLedger(s, pub)

	_, err := record(t, l, entity.MovementTypeExit, "3")
	require.Error(t, err)
	pub.AssertNotCalled(t, "PublishMovementRecorded", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordMovement_ErrorDeCatalogo(t *testing.T) {
	s := newStore()
	cat := new(mockCatalog)
	cat.On("GetByID", mock.Anything, orgID, productID).Return(nil, errors.New("timeout")).Once()
	l := inventory.NewLedgerUseCase(s, cat, nil, inventory.LedgerConfig{}, zerolog.Nop())

	_, err := record(t, l, entity.MovementTypeEntry, "1")
	assert.ErrorIs(t, err, domain.ErrInternal)
	cat.AssertExpectations(t)
}

// ── adaptadores de request ───────────────────────────────────────────────────

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{`5`, "5", false},
		{`2.75`, "2.75", false},
		{`"3.5"`, "3.5", false},
		{`-1`, "-1", false},
		{`"abc"`, "", true},
		{`null`, "", true},
		{``, "", true},
		{`true`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := inventory.ParseQuantity(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(q(tt.want)))
		})
	}
}

func TestRecordMovementFromRequest(t *testing.T) {
	s := newStore()
	l := newLedger(s, nil)
	ctx := context.Background()

	_, err := l.RecordMovementFromRequest(ctx, orgID, userID, dto.RecordMovementRequest{
		ProductID: productID, Type: "entry", Quantity: json.RawMessage(`"abc"`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = l.RecordMovementFromRequest(ctx, orgID, userID, dto.RecordMovementRequest{
		ProductID: productID, Type: "ajuste", Quantity: json.RawMessage(`1`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMovementType)

	res, err := l.RecordMovementFromRequest(ctx, orgID, userID, dto.RecordMovementRequest{
		ProductID: " " + productID + " ", Type: "entry", Quantity: json.RawMessage(`7`),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeEntry, res.Movement.Type)
	assert.True(t, res.Snapshot.CurrentQuantity.Equal(q("7")))
}
