// Package memory implementa los puertos del libro de stock en memoria.
// Se usa con STORAGE_DRIVER=memory y en las pruebas.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

var (
	_ inventory.TxRunner                 = (*Store)(nil)
	_ inventory.ReadTxRunner             = (*Store)(nil)
	_ repository.ProductCatalog          = (*Store)(nil)
	_ repository.MovementRepository      = (*movementRepo)(nil)
	_ repository.StockSnapshotRepository = (*snapshotRepo)(nil)
)

type snapshotKey struct {
	org     string
	product string
}

// Store guarda productos, movimientos y snapshots en mapas protegidos por un único mutex.
// Run mantiene el mutex durante toda la transacción, así que las transacciones son serializables.
type Store struct {
	mu        sync.Mutex
	products  map[snapshotKey]entity.Product
	movements []entity.Movement
	snapshots map[snapshotKey]entity.StockSnapshot

	conflicts int
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[snapshotKey]entity.Product),
		snapshots: make(map[snapshotKey]entity.StockSnapshot),
	}
}

// AddProduct registra un producto en el catálogo en memoria.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[snapshotKey{p.OrganizationID, p.ID}] = p
}

// InjectConflicts hace que las próximas n transacciones fallen con ErrConcurrencyConflict
// antes de ejecutar fn.
func (s *Store) InjectConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

// Movements copia de todos los movimientos confirmados.
func (s *Store) Movements() []entity.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Movement, len(s.movements))
	copy(out, s.movements)
	return out
}

// Snapshot devuelve el snapshot confirmado o nil.
func (s *Store) Snapshot(organizationID, productID string) *entity.StockSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[snapshotKey{organizationID, productID}]
	if !ok {
		return nil
	}
	return &snap
}

// SetSnapshot sobrescribe un snapshot sin movimiento asociado. Solo para pruebas de conciliación.
func (s *Store) SetSnapshot(snap entity.StockSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey{snap.OrganizationID, snap.ProductID}] = snap
}

// GetByID implementa repository.ProductCatalog.
func (s *Store) GetByID(ctx context.Context, organizationID, productID string) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[snapshotKey{organizationID, productID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Run ejecuta fn con repos que escriben en un área temporal; solo se aplica si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	snapRepo repository.StockSnapshotRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.ErrConcurrencyConflict
	}
	if s.conflicts > 0 {
		s.conflicts--
		return domain.ErrConcurrencyConflict
	}

	tx := &txState{store: s, snapshots: make(map[snapshotKey]entity.StockSnapshot)}
	if err := fn(&movementRepo{store: s, tx: tx}, &snapshotRepo{store: s, tx: tx}); err != nil {
		return err
	}
	s.movements = append(s.movements, tx.movements...)
	for k, v := range tx.snapshots {
		s.snapshots[k] = v
	}
	return nil
}

// ReadOnly ejecuta fn con el mutex tomado: ninguna transacción confirma mientras fn lee.
// Las escrituras que fn intente se descartan.
func (s *Store) ReadOnly(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	snapRepo repository.StockSnapshotRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &txState{store: s, snapshots: make(map[snapshotKey]entity.StockSnapshot)}
	return fn(&movementRepo{store: s, tx: tx}, &snapshotRepo{store: s, tx: tx})
}

// MovementRepository repo de movimientos sobre el estado confirmado.
func (s *Store) MovementRepository() repository.MovementRepository {
	return &movementRepo{store: s}
}

// SnapshotRepository repos de snapshots sobre el estado confirmado.
func (s *Store) SnapshotRepository() repository.StockSnapshotRepository {
	return &snapshotRepo{store: s}
}

// txState escrituras pendientes de una transacción.
type txState struct {
	store     *Store
	movements []entity.Movement
	snapshots map[snapshotKey]entity.StockSnapshot
}

// lock toma el mutex solo fuera de transacción (dentro de Run ya está tomado).
func lock(s *Store, tx *txState) func() {
	if tx != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func nameMatches(name string, filter *string) bool {
	if filter == nil {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(name), fold.String(*filter))
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ---------- movimientos ----------

type movementRepo struct {
	store *Store
	tx    *txState
}

func (r *movementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if r.tx == nil {
		defer lock(r.store, nil)()
		r.store.movements = append(r.store.movements, *m)
		return nil
	}
	r.tx.movements = append(r.tx.movements, *m)
	return nil
}

func (r *movementRepo) GetByID(ctx context.Context, organizationID, id string) (*repository.MovementView, error) {
	defer lock(r.store, r.tx)()
	for _, m := range r.store.movements {
		if m.ID == id && m.OrganizationID == organizationID {
			return &repository.MovementView{Movement: m, ProductName: r.store.productName(m.OrganizationID, m.ProductID)}, nil
		}
	}
	return nil, nil
}

func (r *movementRepo) List(ctx context.Context, f repository.MovementFilter) ([]repository.MovementView, int, error) {
	defer lock(r.store, r.tx)()
	var out []repository.MovementView
	for _, m := range r.store.movements {
		if m.OrganizationID != f.OrganizationID {
			continue
		}
		if f.ProductID != nil && m.ProductID != *f.ProductID {
			continue
		}
		if f.UserID != nil && m.UserID != *f.UserID {
			continue
		}
		if f.Type != nil && m.Type != *f.Type {
			continue
		}
		if f.DateFrom != nil && m.OccurredAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && m.OccurredAt.After(*f.DateTo) {
			continue
		}
		name := r.store.productName(m.OrganizationID, m.ProductID)
		if !nameMatches(name, f.ProductName) {
			continue
		}
		out = append(out, repository.MovementView{Movement: m, ProductName: name})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *movementRepo) SumByProduct(ctx context.Context, organizationID string) (map[string]decimal.Decimal, error) {
	defer lock(r.store, r.tx)()
	sums := make(map[string]decimal.Decimal)
	for _, m := range r.store.movements {
		if m.OrganizationID != organizationID {
			continue
		}
		sums[m.ProductID] = sums[m.ProductID].Add(m.SignedQuantity())
	}
	return sums, nil
}

func (r *movementRepo) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	defer lock(r.store, r.tx)()
	seen := map[string]struct{}{}
	var ids []string
	for _, m := range r.store.movements {
		if _, ok := seen[m.OrganizationID]; !ok {
			seen[m.OrganizationID] = struct{}{}
			ids = append(ids, m.OrganizationID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ---------- snapshots ----------

type snapshotRepo struct {
	store *Store
	tx    *txState
}

func (r *snapshotRepo) Get(ctx context.Context, organizationID, productID string) (*entity.StockSnapshot, error) {
	defer lock(r.store, r.tx)()
	k := snapshotKey{organizationID, productID}
	if r.tx != nil {
		if snap, ok := r.tx.snapshots[k]; ok {
			return &snap, nil
		}
	}
	snap, ok := r.store.snapshots[k]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// GetForUpdate no necesita bloqueo adicional: la transacción ya tiene el mutex global.
func (r *snapshotRepo) GetForUpdate(ctx context.Context, organizationID, productID string) (*entity.StockSnapshot, error) {
	snap, err := r.Get(ctx, organizationID, productID)
	if err != nil || snap != nil {
		return snap, err
	}
	return &entity.StockSnapshot{
		OrganizationID:  organizationID,
		ProductID:       productID,
		CurrentQuantity: decimal.Zero,
	}, nil
}

func (r *snapshotRepo) Upsert(ctx context.Context, snap *entity.StockSnapshot) error {
	k := snapshotKey{snap.OrganizationID, snap.ProductID}
	if r.tx != nil {
		r.tx.snapshots[k] = *snap
		return nil
	}
	defer lock(r.store, nil)()
	r.store.snapshots[k] = *snap
	return nil
}

func (r *snapshotRepo) List(ctx context.Context, f repository.SnapshotFilter) ([]repository.SnapshotView, int, error) {
	defer lock(r.store, r.tx)()
	var out []repository.SnapshotView
	for k, snap := range r.store.snapshots {
		if k.org != f.OrganizationID {
			continue
		}
		if f.ZeroStock || f.LowStock {
			zero := f.ZeroStock && !snap.CurrentQuantity.IsPositive()
			low := f.LowStock && snap.CurrentQuantity.IsPositive() && snap.CurrentQuantity.LessThan(f.Threshold)
			if !zero && !low {
				continue
			}
		}
		p := r.store.products[k]
		if !nameMatches(p.Name, f.ProductName) {
			continue
		}
		out = append(out, repository.SnapshotView{StockSnapshot: snap, ProductName: p.Name, Category: p.Category})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName == out[j].ProductName {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].ProductName < out[j].ProductName
	})
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *snapshotRepo) Statistics(ctx context.Context, organizationID string, threshold decimal.Decimal) (repository.StockStatistics, error) {
	defer lock(r.store, r.tx)()
	var st repository.StockStatistics
	for k, snap := range r.store.snapshots {
		if k.org != organizationID {
			continue
		}
		st.TotalProducts++
		switch {
		case !snap.CurrentQuantity.IsPositive():
			st.ZeroStock++
		case snap.CurrentQuantity.LessThan(threshold):
			st.InStock++
			st.LowStock++
		default:
			st.InStock++
		}
	}
	return st, nil
}

func (r *snapshotRepo) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	defer lock(r.store, r.tx)()
	seen := map[string]struct{}{}
	var ids []string
	for k := range r.store.snapshots {
		if _, ok := seen[k.org]; !ok {
			seen[k.org] = struct{}{}
			ids = append(ids, k.org)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) productName(organizationID, productID string) string {
	return s.products[snapshotKey{organizationID, productID}].Name
}
