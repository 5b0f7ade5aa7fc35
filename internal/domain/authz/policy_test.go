package authz_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/authz"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

const (
	whA = "wh-a"
	whB = "wh-b"
	whC = "wh-c"
)

func TestHasAccess_AdminSiempre(t *testing.T) {
	admin := entity.Actor{ID: "u1", Role: entity.RoleAdmin}
	assert.True(t, authz.HasAccess(admin, whA))
	assert.True(t, authz.HasAccess(admin, ""))
}

func TestHasAccess_AsignadasYPrimaria(t *testing.T) {
	m := entity.Actor{ID: "u2", Role: entity.RoleManager, PrimaryWarehouseID: whA, AssignedWarehouseIDs: []string{whB}}
	assert.True(t, authz.HasAccess(m, whA), "la bodega primaria legacy otorga acceso")
	assert.True(t, authz.HasAccess(m, whB))
	assert.False(t, authz.HasAccess(m, whC))
	assert.False(t, authz.HasAccess(m, ""))
}

func TestPolicy_GerenteDecideConOrigenODestino(t *testing.T) {
	p := authz.NewPolicy()
	m := entity.Actor{ID: "u2", Role: entity.RoleManager, AssignedWarehouseIDs: []string{whB}}

	assert.True(t, p.Allowed(m, authz.ActionTransferDecide, authz.Warehouses(whA, whB)), "destino asignado")
	assert.True(t, p.Allowed(m, authz.ActionTransferDecide, authz.Warehouses(whB, whC)), "origen asignado")
	assert.False(t, p.Allowed(m, authz.ActionTransferDecide, authz.Warehouses(whA, whC)))
}

func TestPolicy_RecepcionSoloDestino(t *testing.T) {
	p := authz.NewPolicy()
	m := entity.Actor{ID: "u2", Role: entity.RoleManager, AssignedWarehouseIDs: []string{whA}}

	// el gerente del origen puede aprobar pero no recibir
	assert.True(t, p.Allowed(m, authz.ActionTransferDecide, authz.Warehouses(whA, whB)))
	assert.False(t, p.Allowed(m, authz.ActionTransferReceive, authz.Warehouses(whB)))
	assert.True(t, p.Allowed(m, authz.ActionTransferReceive, authz.Warehouses(whA)))
}

func TestPolicy_CajeroNoAjustaNiAprueba(t *testing.T) {
	p := authz.NewPolicy()
	c := entity.Actor{ID: "u3", Role: entity.RoleCashier, PrimaryWarehouseID: whA}

	assert.True(t, p.Allowed(c, authz.ActionSaleCreate, authz.Warehouses(whA)))
	assert.False(t, p.Allowed(c, authz.ActionSaleCreate, authz.Warehouses(whB)))
	assert.False(t, p.Allowed(c, authz.ActionStockAdjust, authz.Warehouses(whA)))
	assert.False(t, p.Allowed(c, authz.ActionTransferDecide, authz.Warehouses(whA)))
	assert.False(t, p.Allowed(c, authz.ActionSaleVoid, authz.Warehouses(whA)))
	assert.False(t, p.Allowed(c, authz.ActionSalePrice, authz.Warehouses(whA)), "cajero no cambia precios")
}

func TestPolicy_ActorSinID(t *testing.T) {
	p := authz.NewPolicy()
	assert.False(t, p.Allowed(entity.Actor{Role: entity.RoleAdmin}, authz.ActionSaleCreate, authz.Warehouses(whA)))
}

func TestPolicy_AuthorizeDevuelveForbidden(t *testing.T) {
	p := authz.NewPolicy()
	c := entity.Actor{ID: "u3", Role: entity.RoleCashier, PrimaryWarehouseID: whA}

	err := p.Authorize(c, authz.ActionStockAdjust, authz.Warehouses(whA))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	var fe *domain.ForbiddenError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "u3", fe.ActorID)
	assert.Equal(t, string(authz.ActionStockAdjust), fe.Action)
	assert.Equal(t, whA, fe.WarehouseID)

	assert.NoError(t, p.Authorize(entity.Actor{ID: "u1", Role: entity.RoleAdmin}, authz.ActionStockAdjust, authz.Warehouses(whA)))
}
