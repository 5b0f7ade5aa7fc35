package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

func TestStore_RollbackRestauraEstado(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SeedStock("p1", "w1", decimal.NewFromInt(10), decimal.Zero))

	boom := errors.New("boom")
	err := s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		require.NoError(t, repos.Inventory.UpdateQuantity(ctx, "p1", "w1", decimal.NewFromInt(3), time.Now()))
		require.NoError(t, repos.Movements.Create(ctx, &entity.StockMovement{ID: "m", ProductID: "p1", WarehouseID: "w1", Quantity: decimal.NewFromInt(-7)}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.True(t, s.Quantity("p1", "w1").Equal(decimal.NewFromInt(10)))
	assert.Len(t, s.Movements(), 1)
}

func TestStore_PanicRestauraYPropaga(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SeedStock("p1", "w1", decimal.NewFromInt(5), decimal.Zero))

	assert.Panics(t, func() {
		_ = s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
			_ = repos.Inventory.UpdateQuantity(ctx, "p1", "w1", decimal.Zero, time.Now())
			panic("fallo")
		})
	})
	assert.True(t, s.Quantity("p1", "w1").Equal(decimal.NewFromInt(5)))
}

func TestInventoryRepo_DecrementIfAvailable(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SeedStock("p1", "w1", decimal.NewFromInt(2), decimal.Zero))

	err := s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		remaining, ok, err := repos.Inventory.DecrementIfAvailable(ctx, "p1", "w1", decimal.NewFromInt(3), time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, remaining.Equal(decimal.NewFromInt(2)))

		remaining, ok, err = repos.Inventory.DecrementIfAvailable(ctx, "p1", "w1", decimal.NewFromInt(2), time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, remaining.IsZero())

		_, ok, err = repos.Inventory.DecrementIfAvailable(ctx, "p1", "otra", decimal.NewFromInt(1), time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestInventoryRepo_InsertDuplicadoEsConflicto(t *testing.T) {
	s := NewStore()
	err := s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		rec := &entity.InventoryRecord{ProductID: "p1", WarehouseID: "w1", Quantity: decimal.NewFromInt(1)}
		require.NoError(t, repos.Inventory.Insert(ctx, rec))
		return repos.Inventory.Insert(ctx, rec)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, s.Quantity("p1", "w1").IsZero(), "la transacción fallida no deja el registro")
}

func TestTransferRepo_ListVisibilidad(t *testing.T) {
	s := NewStore()
	now := time.Now()
	err := s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		for i, tr := range []entity.TransferRequest{
			{ID: "t1", FromWarehouseID: "a", ToWarehouseID: "b", Status: entity.TransferStatusPending, RequestedBy: "u1"},
			{ID: "t2", FromWarehouseID: "c", ToWarehouseID: "d", Status: entity.TransferStatusPending, RequestedBy: "u2"},
		} {
			tr.CreatedAt = now.Add(time.Duration(i) * time.Second)
			require.NoError(t, repos.Transfers.Create(ctx, &tr))
		}

		items, total, err := repos.Transfers.List(ctx, repository.TransferFilter{VisibleWarehouseIDs: []string{"b"}})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "t1", items[0].ID)

		items, _, err = repos.Transfers.List(ctx, repository.TransferFilter{VisibleWarehouseIDs: []string{}})
		require.NoError(t, err)
		assert.Empty(t, items, "lista vacía de bodegas no ve nada")

		items, total, err = repos.Transfers.List(ctx, repository.TransferFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, "t2", items[0].ID, "más reciente primero")
		return nil
	})
	require.NoError(t, err)
}

func TestSaleRepo_NumeroFacturaDuplicado(t *testing.T) {
	s := NewStore()
	now := time.Now()
	err := s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		seq, err := repos.Sales.NextInvoiceSequence(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, seq)

		require.NoError(t, repos.Sales.Create(ctx, &entity.Sale{ID: "s1", InvoiceNumber: "INV-1", CreatedAt: now}))
		seq, err = repos.Sales.NextInvoiceSequence(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 2, seq)

		err = repos.Sales.Create(ctx, &entity.Sale{ID: "s2", InvoiceNumber: "INV-1", CreatedAt: now})
		assert.ErrorIs(t, err, domain.ErrConflict)
		return nil
	})
	require.NoError(t, err)
}
