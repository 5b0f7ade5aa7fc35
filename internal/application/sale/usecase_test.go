package sale

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/authz"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

const (
	prodP    = "prod-p"
	prodQ    = "prod-q"
	whW      = "wh-w"
	whY      = "wh-y"
	whStore  = "wh-storage"
	customer = "cust-1"
)

var (
	admin   = entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}
	manager = entity.Actor{ID: "mgr-1", Role: entity.RoleManager, AssignedWarehouseIDs: []string{whW}}
	cashier = entity.Actor{ID: "cash-1", Role: entity.RoleCashier, PrimaryWarehouseID: whW}
)

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// conflictRunner falla las primeras n transacciones con ErrConflict.
type conflictRunner struct {
	inner repository.TxRunner
	fails int32
	calls int32
}

func (c *conflictRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	n := atomic.AddInt32(&c.calls, 1)
	if n <= c.fails {
		return domain.ErrConflict
	}
	return c.inner.Run(ctx, fn)
}

func newStore(t *testing.T, stockP int64) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	s.AddProduct(entity.Product{ID: prodP, SKU: "P", Name: "P", Price: decimal.NewFromInt(1000), Active: true})
	s.AddProduct(entity.Product{ID: prodQ, SKU: "Q", Name: "Q", Price: decimal.NewFromInt(500), Active: true})
	s.AddWarehouse(entity.Warehouse{ID: whW, Code: "W", Type: entity.WarehouseTypeSale, Active: true, IsDefault: true})
	s.AddWarehouse(entity.Warehouse{ID: whY, Code: "Y", Type: entity.WarehouseTypeSale, Active: true})
	s.AddWarehouse(entity.Warehouse{ID: whStore, Code: "S", Type: entity.WarehouseTypeStorage, Active: true})
	s.AddCustomer(entity.Customer{ID: customer, Name: "Cliente", LoyaltyPoints: 5000})
	if stockP > 0 {
		require.NoError(t, s.SeedStock(prodP, whW, decimal.NewFromInt(stockP), decimal.Zero))
	}
	return s
}

func newUseCase(runner repository.TxRunner, pub events.Publisher) *UseCase {
	return NewUseCase(runner, authz.NewPolicy(), pub, Config{
		Pricing: PricingConfig{
			TaxRate:            dec("0.18"),
			LoyaltyPointValue:  dec("1"),
			LoyaltyAccrualRate: dec("0.01"),
		},
		InvoicePrefix: "INV",
	}, logger.Nop())
}

func cashFor(amount string) []PaymentInput {
	return []PaymentInput{{Method: entity.PaymentMethodCash, Amount: dec(amount)}}
}

func TestCreateSale_TotalesStockYMovimiento(t *testing.T) {
	s := newStore(t, 10)
	rec := &recorder{}
	uc := newUseCase(s, rec)

	sale, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		Items:    []LineInput{{ProductID: prodP, Quantity: dec("2")}},
		Payments: cashFor("2360"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2000.00", sale.Subtotal.StringFixed(2))
	assert.Equal(t, "360.00", sale.TaxAmount.StringFixed(2))
	assert.Equal(t, "2360.00", sale.Total.StringFixed(2))
	assert.Equal(t, whW, sale.WarehouseID, "bodega primaria del actor")
	assert.Equal(t, entity.SaleStatusCompleted, sale.Status)
	assert.True(t, strings.HasPrefix(sale.InvoiceNumber, "INV-"))
	assert.True(t, strings.HasSuffix(sale.InvoiceNumber, "-0001"))
	require.Len(t, sale.Items, 1)
	require.Len(t, sale.Payments, 1)
	assert.True(t, sale.Payments[0].ChangeGiven.IsZero())

	assert.True(t, s.Quantity(prodP, whW).Equal(decimal.NewFromInt(8)))
	movs := s.Movements()
	last := movs[len(movs)-1]
	assert.Equal(t, entity.MovementTypeOUT, last.Type)
	assert.True(t, last.Quantity.Equal(decimal.NewFromInt(-2)))
	assert.Equal(t, entity.ReferenceSale, last.ReferenceType)
	assert.Equal(t, sale.ID, last.ReferenceID)
	assert.True(t, s.MovementSum(prodP, whW).Equal(s.Quantity(prodP, whW)))

	assert.Contains(t, rec.types(), events.TypeSaleCompleted)
}

func TestCreateSale_SinDecrementoParcial(t *testing.T) {
	s := newStore(t, 10)
	require.NoError(t, s.SeedStock(prodQ, whW, decimal.NewFromInt(1), decimal.Zero))
	uc := newUseCase(s, nil)

	_, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		Items: []LineInput{
			{ProductID: prodP, Quantity: dec("2")},
			{ProductID: prodQ, Quantity: dec("3")},
		},
		Payments: cashFor("5000"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var se *domain.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, prodQ, se.ProductID)
	assert.True(t, se.Available.Equal(decimal.NewFromInt(1)))
	assert.True(t, se.Requested.Equal(decimal.NewFromInt(3)))

	assert.True(t, s.Quantity(prodP, whW).Equal(decimal.NewFromInt(10)))
	assert.True(t, s.Quantity(prodQ, whW).Equal(decimal.NewFromInt(1)))
	assert.Zero(t, s.SaleCount())
}

func TestCreateSale_DemandaAgregadaPorProducto(t *testing.T) {
	s := newStore(t, 3)
	uc := newUseCase(s, nil)

	_, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		Items:    []LineInput{{ProductID: prodP, Quantity: dec("2")}, {ProductID: prodP, Quantity: dec("2")}},
		Payments: cashFor("10000"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, s.Quantity(prodP, whW).Equal(decimal.NewFromInt(3)))
}

func TestCreateSale_ProductosInexistentesListaTodos(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)

	_, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		Items: []LineInput{
			{ProductID: "zz", Quantity: dec("1")},
			{ProductID: prodP, Quantity: dec("1")},
			{ProductID: "aa", Quantity: dec("1")},
		},
		Payments: cashFor("5000"),
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"aa", "zz"}, nf.IDs)
}

func TestCreateSale_PagoInsuficiente(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)

	_, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		Items:    []LineInput{{ProductID: prodP, Quantity: dec("2")}},
		Payments: cashFor("2000"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)
	assert.True(t, s.Quantity(prodP, whW).Equal(decimal.NewFromInt(10)))
}

func TestCreateSale_Bodega(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)
	ctx := context.Background()
	in := CreateSaleInput{Items: []LineInput{{ProductID: prodP, Quantity: dec("1")}}, Payments: cashFor("1180")}

	in.WarehouseID = whStore
	_, err := uc.CreateSale(ctx, cashier, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "bodega de almacenamiento")

	in.WarehouseID = "no-existe"
	_, err = uc.CreateSale(ctx, cashier, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in.WarehouseID = whY
	_, err = uc.CreateSale(ctx, cashier, in)
	assert.ErrorIs(t, err, domain.ErrForbidden, "cajero sin asignación")

	// admin sin bodega asignada: usa la default
	in.WarehouseID = ""
	sale, err := uc.CreateSale(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, whW, sale.WarehouseID)
}

func TestCreateSale_CambioEnEfectivo(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)

	sale, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		Items:    []LineInput{{ProductID: prodP, Quantity: dec("2")}},
		Payments: cashFor("3000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "640.00", sale.Payments[0].ChangeGiven.StringFixed(2))
	assert.Equal(t, "2360.00", sale.Payments[0].Amount.StringFixed(2))
}

func TestCreateSale_FidelizacionAcumula(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)

	sale, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		CustomerID: customer,
		Items:      []LineInput{{ProductID: prodP, Quantity: dec("2")}},
		Payments:   cashFor("2360"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(23), sale.LoyaltyPointsEarned)
	assert.Zero(t, sale.LoyaltyPointsUsed)
	assert.Equal(t, int64(5023), s.LoyaltyPoints(customer))
}

func TestCreateSale_FidelizacionRedimeConTope(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)

	sale, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		CustomerID:    customer,
		Items:         []LineInput{{ProductID: prodP, Quantity: dec("1")}},
		Discount:      &DiscountInput{Type: DiscountFixed, Value: dec("200")},
		LoyaltyPoints: 3000,
		Payments:      cashFor("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(800), sale.LoyaltyPointsUsed, "tope 1000 − 200")
	assert.Zero(t, sale.LoyaltyPointsEarned)
	assert.True(t, sale.Total.IsZero())
	assert.Equal(t, int64(4200), s.LoyaltyPoints(customer))
}

func TestCreateSale_PuntosSinClienteOExcedidos(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)
	ctx := context.Background()

	_, err := uc.CreateSale(ctx, cashier, CreateSaleInput{
		Items: []LineInput{{ProductID: prodP, Quantity: dec("1")}}, LoyaltyPoints: 10, Payments: cashFor("1180"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.CreateSale(ctx, cashier, CreateSaleInput{
		CustomerID: customer, Items: []LineInput{{ProductID: prodP, Quantity: dec("1")}}, LoyaltyPoints: 6000, Payments: cashFor("1180"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(5000), s.LoyaltyPoints(customer))
}

func TestCreateSale_ConsecutivoDeFactura(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)
	ctx := context.Background()
	in := CreateSaleInput{Items: []LineInput{{ProductID: prodP, Quantity: dec("1")}}, Payments: cashFor("1180")}

	first, err := uc.CreateSale(ctx, cashier, in)
	require.NoError(t, err)
	second, err := uc.CreateSale(ctx, cashier, in)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first.InvoiceNumber, "-0001"))
	assert.True(t, strings.HasSuffix(second.InvoiceNumber, "-0002"))
}

func TestCreateSale_ReintentaColisionDeFactura(t *testing.T) {
	s := newStore(t, 10)
	runner := &conflictRunner{inner: s, fails: 2}
	uc := newUseCase(runner, nil)
	in := CreateSaleInput{Items: []LineInput{{ProductID: prodP, Quantity: dec("1")}}, Payments: cashFor("1180")}

	_, err := uc.CreateSale(context.Background(), cashier, in)
	require.NoError(t, err)
	assert.Equal(t, int32(3), runner.calls)

	runner = &conflictRunner{inner: s, fails: 10}
	uc = newUseCase(runner, nil)
	_, err = uc.CreateSale(context.Background(), cashier, in)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int32(maxInvoiceRetries+1), runner.calls)
}

// decrementSpy registra el orden de los descuentos y falla el primero con ErrConflict (deadlock en Postgres).
type decrementSpy struct {
	repository.InventoryRepository
	order  *[]string
	failed *bool
}

func (d decrementSpy) DecrementIfAvailable(ctx context.Context, productID, warehouseID string, qty decimal.Decimal, now time.Time) (decimal.Decimal, bool, error) {
	*d.order = append(*d.order, productID)
	if !*d.failed {
		*d.failed = true
		return decimal.Zero, false, fmt.Errorf("decrement inventory: %w", domain.ErrConflict)
	}
	return d.InventoryRepository.DecrementIfAvailable(ctx, productID, warehouseID, qty, now)
}

type spyRunner struct {
	inner  repository.TxRunner
	order  []string
	failed bool
}

func (r *spyRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		repos.Inventory = decrementSpy{InventoryRepository: repos.Inventory, order: &r.order, failed: &r.failed}
		return fn(ctx, repos)
	})
}

func TestCreateSale_DescuentaEnOrdenDeProductoYReintentaDeadlock(t *testing.T) {
	s := newStore(t, 10)
	require.NoError(t, s.SeedStock(prodQ, whW, decimal.NewFromInt(10), decimal.Zero))
	runner := &spyRunner{inner: s}
	uc := newUseCase(runner, nil)

	sale, err := uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		Items: []LineInput{
			{ProductID: prodQ, Quantity: dec("1")},
			{ProductID: prodP, Quantity: dec("1")},
		},
		Payments: cashFor("1770"),
	})
	require.NoError(t, err)

	// primer intento aborta en la primera fila; el reintento bloquea en orden de producto
	assert.Equal(t, []string{prodP, prodP, prodQ}, runner.order)
	assert.Equal(t, prodQ, sale.Items[0].ProductID, "las líneas conservan el orden del carrito")
	assert.True(t, s.Quantity(prodP, whW).Equal(dec("9")))
	assert.True(t, s.Quantity(prodQ, whW).Equal(dec("9")))
	assert.True(t, s.MovementSum(prodQ, whW).Equal(dec("9")))
	assert.Equal(t, 1, s.SaleCount())
}

func TestCreateSale_PrecioManualSoloGerente(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)
	price := dec("800")
	in := CreateSaleInput{
		Items:    []LineInput{{ProductID: prodP, Quantity: dec("1"), UnitPrice: &price}},
		Payments: cashFor("944"),
	}

	_, err := uc.CreateSale(context.Background(), cashier, in)
	assert.ErrorIs(t, err, domain.ErrForbidden, "cajero no cambia el precio de catálogo")
	assert.True(t, s.Quantity(prodP, whW).Equal(dec("10")))

	// el mismo precio del catálogo no es un cambio
	same := dec("1000")
	_, err = uc.CreateSale(context.Background(), cashier, CreateSaleInput{
		Items:    []LineInput{{ProductID: prodP, Quantity: dec("1"), UnitPrice: &same}},
		Payments: cashFor("1180"),
	})
	require.NoError(t, err)

	sale, err := uc.CreateSale(context.Background(), manager, in)
	require.NoError(t, err)
	assert.Equal(t, "800.00", sale.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "944.00", sale.Total.StringFixed(2))
}

func TestCreateSale_ConcurrenciaNoSobrevende(t *testing.T) {
	s := newStore(t, 5)
	uc := newUseCase(s, nil)
	in := CreateSaleInput{Items: []LineInput{{ProductID: prodP, Quantity: dec("1")}}, Payments: cashFor("1180")}

	var (
		wg sync.WaitGroup
		ok int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.CreateSale(context.Background(), cashier, in); err == nil {
				atomic.AddInt32(&ok, 1)
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), ok)
	assert.True(t, s.Quantity(prodP, whW).IsZero())
	assert.True(t, s.MovementSum(prodP, whW).IsZero())
}

func TestVoidSale_RestauraStockYNoSePuedeRepetir(t *testing.T) {
	s := newStore(t, 10)
	rec := &recorder{}
	uc := newUseCase(s, rec)
	ctx := context.Background()

	sale, err := uc.CreateSale(ctx, cashier, CreateSaleInput{
		Items: []LineInput{{ProductID: prodP, Quantity: dec("2")}}, Payments: cashFor("2360"),
	})
	require.NoError(t, err)
	require.True(t, s.Quantity(prodP, whW).Equal(decimal.NewFromInt(8)))

	_, err = uc.VoidSale(ctx, cashier, sale.ID, "error de digitación")
	assert.ErrorIs(t, err, domain.ErrForbidden, "cajero no anula")

	voided, err := uc.VoidSale(ctx, manager, sale.ID, "error de digitación")
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusVoided, voided.Status)
	assert.Equal(t, "error de digitación", voided.StatusReason)
	assert.True(t, s.Quantity(prodP, whW).Equal(decimal.NewFromInt(10)))

	movs := s.Movements()
	last := movs[len(movs)-1]
	assert.Equal(t, entity.MovementTypeIN, last.Type)
	assert.True(t, last.Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, entity.ReferenceVoid, last.ReferenceType)
	assert.Equal(t, sale.ID, last.ReferenceID)

	audit := s.AuditEntries()
	require.Len(t, audit, 1)
	assert.Equal(t, sale.ID, audit[0].EntityID)

	_, err = uc.VoidSale(ctx, manager, sale.ID, "otra vez")
	require.ErrorIs(t, err, domain.ErrInvalidState)
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, entity.SaleStatusVoided, ise.Current)
	assert.Equal(t, entity.SaleStatusVoided, ise.Requested)
	assert.True(t, s.Quantity(prodP, whW).Equal(decimal.NewFromInt(10)))
	assert.Contains(t, rec.types(), events.TypeSaleVoided)
}

func TestRefundSale_MarcaPagosReembolsados(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)
	ctx := context.Background()

	sale, err := uc.CreateSale(ctx, cashier, CreateSaleInput{
		Items: []LineInput{{ProductID: prodP, Quantity: dec("1")}},
		Payments: []PaymentInput{
			{Method: entity.PaymentMethodCard, Amount: dec("1000")},
			{Method: entity.PaymentMethodCash, Amount: dec("180")},
		},
	})
	require.NoError(t, err)

	refunded, err := uc.RefundSale(ctx, admin, sale.ID, "cliente insatisfecho")
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusRefunded, refunded.Status)
	for _, p := range refunded.Payments {
		assert.Equal(t, entity.PaymentStatusRefunded, p.Status)
	}
	assert.True(t, s.Quantity(prodP, whW).Equal(decimal.NewFromInt(10)))

	_, err = uc.VoidSale(ctx, admin, sale.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "terminal tras devolución")

	_, err = uc.RefundSale(ctx, admin, "no-existe", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetSale_Visibilidad(t *testing.T) {
	s := newStore(t, 10)
	uc := newUseCase(s, nil)
	ctx := context.Background()

	sale, err := uc.CreateSale(ctx, cashier, CreateSaleInput{
		Items: []LineInput{{ProductID: prodP, Quantity: dec("1")}}, Payments: cashFor("1180"),
	})
	require.NoError(t, err)

	got, err := uc.GetSale(ctx, cashier, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.InvoiceNumber, got.InvoiceNumber)
	assert.Len(t, got.Items, 1)

	other := entity.Actor{ID: "cash-2", Role: entity.RoleCashier, PrimaryWarehouseID: whY}
	_, err = uc.GetSale(ctx, other, sale.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
