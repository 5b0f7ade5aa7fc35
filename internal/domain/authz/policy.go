// Package authz concentra la autorización por rol y asignación de bodegas.
// Todos los casos de uso consultan el mismo predicado en lugar de ramificar por rol.
package authz

import (
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// Action operación que se quiere autorizar.
type Action string

// Acciones conocidas.
const (
	ActionSaleCreate      Action = "sale:create"
	ActionSalePrice       Action = "sale:price_override"
	ActionSaleVoid        Action = "sale:void"
	ActionSaleRefund      Action = "sale:refund"
	ActionStockAdjust     Action = "stock:adjust"
	ActionStockTransfer   Action = "stock:transfer"
	ActionStockLevels     Action = "stock:levels"
	ActionTransferCreate  Action = "transfer:create"
	ActionTransferDecide  Action = "transfer:decide"
	ActionTransferReceive Action = "transfer:receive"
	ActionInventoryRead   Action = "inventory:read"
)

// Target bodegas sobre las que actúa la operación.
// AnyOf: basta con acceso a una de ellas. Para recepción solo se pasa el destino.
type Target struct {
	AnyOf []string
}

// Warehouses construye un Target.
func Warehouses(ids ...string) Target { return Target{AnyOf: ids} }

// rule roles admitidos además de admin; todos exigen acceso a alguna bodega del target.
type rule struct {
	roles []string
}

var rules = map[Action]rule{
	ActionSaleCreate:      {roles: []string{entity.RoleManager, entity.RoleCashier}},
	ActionSalePrice:       {roles: []string{entity.RoleManager}},
	ActionSaleVoid:        {roles: []string{entity.RoleManager}},
	ActionSaleRefund:      {roles: []string{entity.RoleManager}},
	ActionStockAdjust:     {roles: []string{entity.RoleManager}},
	ActionStockTransfer:   {roles: []string{entity.RoleManager}},
	ActionStockLevels:     {roles: []string{entity.RoleManager}},
	ActionTransferCreate:  {roles: []string{entity.RoleManager, entity.RoleCashier}},
	ActionTransferDecide:  {roles: []string{entity.RoleManager}},
	ActionTransferReceive: {roles: []string{entity.RoleManager}},
	ActionInventoryRead:   {roles: []string{entity.RoleManager, entity.RoleCashier}},
}

// HasAccess: admin, o bodega entre las asignadas, o igual a la primaria (compatibilidad legacy).
func HasAccess(actor entity.Actor, warehouseID string) bool {
	if actor.IsAdmin() {
		return true
	}
	if warehouseID == "" {
		return false
	}
	if actor.PrimaryWarehouseID == warehouseID {
		return true
	}
	for _, id := range actor.AssignedWarehouseIDs {
		if id == warehouseID {
			return true
		}
	}
	return false
}

// Policy predicado único de autorización.
type Policy struct{}

// NewPolicy construye la política por defecto.
func NewPolicy() Policy { return Policy{} }

// Allowed indica si el actor puede ejecutar la acción sobre el target.
func (Policy) Allowed(actor entity.Actor, action Action, target Target) bool {
	if actor.ID == "" {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	r, ok := rules[action]
	if !ok || !hasRole(actor.Role, r.roles) {
		return false
	}
	for _, id := range target.AnyOf {
		if HasAccess(actor, id) {
			return true
		}
	}
	return false
}

// Authorize devuelve ForbiddenError si la acción no está permitida.
func (p Policy) Authorize(actor entity.Actor, action Action, target Target) error {
	if p.Allowed(actor, action, target) {
		return nil
	}
	wh := ""
	if len(target.AnyOf) > 0 {
		wh = target.AnyOf[0]
	}
	return &domain.ForbiddenError{ActorID: actor.ID, Action: string(action), WarehouseID: wh}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
