package transfer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/authz"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

const (
	prodP = "prod-p"
	whA   = "wh-a"
	whB   = "wh-b"
	whC   = "wh-c"
)

var (
	admin      = entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}
	managerA   = entity.Actor{ID: "mgr-a", Role: entity.RoleManager, AssignedWarehouseIDs: []string{whA}}
	managerB   = entity.Actor{ID: "mgr-b", Role: entity.RoleManager, PrimaryWarehouseID: whB}
	managerC   = entity.Actor{ID: "mgr-c", Role: entity.RoleManager, AssignedWarehouseIDs: []string{whC}}
	managerNil = entity.Actor{ID: "mgr-0", Role: entity.RoleManager}
	cashierB   = entity.Actor{ID: "cash-b", Role: entity.RoleCashier, PrimaryWarehouseID: whB}
)

type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, ev.Type)
}

func q(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func setup(t *testing.T, stockA int64) (*transfer.UseCase, *memory.Store, *recorder) {
	t.Helper()
	s := memory.NewStore()
	s.AddProduct(entity.Product{ID: prodP, SKU: "P", Name: "P", Active: true})
	for _, id := range []string{whA, whB, whC} {
		s.AddWarehouse(entity.Warehouse{ID: id, Code: id, Type: entity.WarehouseTypeSale, Active: true})
	}
	if stockA > 0 {
		require.NoError(t, s.SeedStock(prodP, whA, q(stockA), decimal.Zero))
	}
	rec := &recorder{}
	return transfer.NewUseCase(s, authz.NewPolicy(), rec, logger.Nop()), s, rec
}

func create(t *testing.T, uc *transfer.UseCase, actor entity.Actor) *entity.TransferRequest {
	t.Helper()
	tr, err := uc.Create(context.Background(), actor, transfer.CreateInput{ProductID: prodP, FromWarehouseID: whA, ToWarehouseID: whB, Notes: "reponer tienda"})
	require.NoError(t, err)
	return tr
}

func TestFlujoCompleto_AprobarNoMueveStockRecibirSi(t *testing.T) {
	uc, s, rec := setup(t, 10)
	ctx := context.Background()

	tr := create(t, uc, managerB)
	assert.Equal(t, entity.TransferStatusPending, tr.Status)
	assert.Nil(t, tr.Quantity)
	assert.Equal(t, managerB.ID, tr.RequestedBy)

	approved, err := uc.Approve(ctx, managerA, tr.ID, q(5), "ok")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusApproved, approved.Status)
	require.NotNil(t, approved.Quantity)
	assert.True(t, approved.Quantity.Equal(q(5)))
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, managerA.ID, *approved.ApprovedBy)
	assert.True(t, s.Quantity(prodP, whA).Equal(q(10)), "aprobar no reserva ni mueve stock")
	assert.True(t, s.Quantity(prodP, whB).IsZero())

	done, err := uc.MarkReceived(ctx, managerB, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, s.Quantity(prodP, whA).Equal(q(5)))
	assert.True(t, s.Quantity(prodP, whB).Equal(q(5)))
	assert.True(t, s.MovementSum(prodP, whA).Equal(q(5)))
	assert.True(t, s.MovementSum(prodP, whB).Equal(q(5)))

	var refs int
	for _, m := range s.Movements() {
		if m.ReferenceType == entity.ReferenceTransfer && m.ReferenceID == tr.ID {
			refs++
		}
	}
	assert.Equal(t, 2, refs, "OUT + IN correlacionados a la solicitud")
	assert.Equal(t, []string{events.TypeTransferRequested, events.TypeTransferApproved, events.TypeTransferReceived}, rec.types)
}

func TestCreate_Validaciones(t *testing.T) {
	uc, _, _ := setup(t, 10)
	ctx := context.Background()

	_, err := uc.Create(ctx, admin, transfer.CreateInput{ProductID: prodP, FromWarehouseID: whA, ToWarehouseID: whA})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, admin, transfer.CreateInput{ProductID: prodP, FromWarehouseID: whB, ToWarehouseID: whA})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "origen sin existencias")

	_, err = uc.Create(ctx, managerC, transfer.CreateInput{ProductID: prodP, FromWarehouseID: whA, ToWarehouseID: whB})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Create(ctx, admin, transfer.CreateInput{ProductID: "nada", FromWarehouseID: whA, ToWarehouseID: whB})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	tr, err := uc.Create(ctx, cashierB, transfer.CreateInput{ProductID: prodP, FromWarehouseID: whA, ToWarehouseID: whB})
	require.NoError(t, err, "un cajero del destino puede solicitar")
	assert.Equal(t, cashierB.ID, tr.RequestedBy)
}

func TestApprove_Autorizacion(t *testing.T) {
	uc, _, _ := setup(t, 10)
	ctx := context.Background()
	tr := create(t, uc, admin)

	_, err := uc.Approve(ctx, managerC, tr.ID, q(1), "")
	assert.ErrorIs(t, err, domain.ErrForbidden, "gerente sin origen ni destino")

	_, err = uc.Approve(ctx, cashierB, tr.ID, q(1), "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Approve(ctx, managerB, tr.ID, q(1), "")
	assert.NoError(t, err, "gerente del destino puede aprobar")
}

func TestApprove_CantidadYStock(t *testing.T) {
	uc, _, _ := setup(t, 10)
	ctx := context.Background()
	tr := create(t, uc, admin)

	_, err := uc.Approve(ctx, admin, tr.ID, decimal.Zero, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Approve(ctx, admin, tr.ID, q(11), "")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := uc.Get(ctx, admin, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPending, got.Status, "estado sin cambios")

	_, err = uc.Approve(ctx, admin, "no-existe", q(1), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransiciones_Invalidas(t *testing.T) {
	uc, _, _ := setup(t, 10)
	ctx := context.Background()

	pending := create(t, uc, admin)
	_, err := uc.MarkReceived(ctx, admin, pending.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, entity.TransferStatusPending, ise.Current)
	assert.Equal(t, entity.TransferStatusCompleted, ise.Requested)

	rejected := create(t, uc, admin)
	_, err = uc.Reject(ctx, managerA, rejected.ID, "no hay transporte")
	require.NoError(t, err)
	_, err = uc.Approve(ctx, admin, rejected.ID, q(1), "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = uc.Reject(ctx, admin, rejected.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	approved := create(t, uc, admin)
	_, err = uc.Approve(ctx, admin, approved.ID, q(2), "")
	require.NoError(t, err)
	_, err = uc.Reject(ctx, admin, approved.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = uc.MarkReceived(ctx, admin, approved.ID)
	require.NoError(t, err)
	_, err = uc.MarkReceived(ctx, admin, approved.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "completed es terminal")
}

func TestMarkReceived_SoloGerenteDelDestino(t *testing.T) {
	uc, s, _ := setup(t, 10)
	ctx := context.Background()
	tr := create(t, uc, admin)
	_, err := uc.Approve(ctx, managerA, tr.ID, q(3), "")
	require.NoError(t, err)

	_, err = uc.MarkReceived(ctx, managerA, tr.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden, "gerente del origen no recibe")
	assert.True(t, s.Quantity(prodP, whA).Equal(q(10)))

	_, err = uc.MarkReceived(ctx, managerB, tr.ID)
	assert.NoError(t, err)
}

func TestMarkReceived_RevalidaStockDelOrigen(t *testing.T) {
	uc, s, _ := setup(t, 10)
	ctx := context.Background()
	tr := create(t, uc, admin)
	_, err := uc.Approve(ctx, admin, tr.ID, q(8), "")
	require.NoError(t, err)

	// el stock aprobado sigue disponible para otras operaciones
	ledger := inventory.NewLedgerUseCase(s, authz.NewPolicy(), nil, logger.Nop())
	_, err = ledger.Adjust(ctx, admin, inventory.AdjustInput{ProductID: prodP, WarehouseID: whA, Delta: q(-6), Reason: "merma"})
	require.NoError(t, err)

	_, err = uc.MarkReceived(ctx, managerB, tr.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var se *domain.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Available.Equal(q(4)))
	assert.True(t, se.Requested.Equal(q(8)))

	got, err := uc.Get(ctx, admin, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusApproved, got.Status)
	assert.True(t, s.Quantity(prodP, whB).IsZero())
}

func TestList_Visibilidad(t *testing.T) {
	uc, s, _ := setup(t, 10)
	ctx := context.Background()
	require.NoError(t, s.SeedStock(prodP, whC, q(5), decimal.Zero))

	ab := create(t, uc, cashierB)
	cb, err := uc.Create(ctx, admin, transfer.CreateInput{ProductID: prodP, FromWarehouseID: whC, ToWarehouseID: whB})
	require.NoError(t, err)

	items, total, err := uc.List(ctx, admin, repository.TransferFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = uc.List(ctx, managerA, repository.TransferFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, ab.ID, items[0].ID)

	items, _, err = uc.List(ctx, managerB, repository.TransferFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, _, err = uc.List(ctx, managerB, repository.TransferFilter{WarehouseID: whC})
	require.NoError(t, err)
	assert.Empty(t, items, "filtro de bodega no asignada")

	items, _, err = uc.List(ctx, managerC, repository.TransferFilter{WarehouseID: whC})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, cb.ID, items[0].ID)

	items, _, err = uc.List(ctx, managerNil, repository.TransferFilter{})
	require.NoError(t, err)
	assert.Empty(t, items, "gerente sin asignaciones")

	items, _, err = uc.List(ctx, cashierB, repository.TransferFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1, "solo las propias")
	assert.Equal(t, ab.ID, items[0].ID)

	items, _, err = uc.List(ctx, admin, repository.TransferFilter{Status: entity.TransferStatusApproved})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, _, err = uc.List(ctx, admin, repository.TransferFilter{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGet_InvisibleEsNotFound(t *testing.T) {
	uc, _, _ := setup(t, 10)
	tr := create(t, uc, admin)

	_, err := uc.Get(context.Background(), managerC, tr.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := uc.Get(context.Background(), managerA, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
}
