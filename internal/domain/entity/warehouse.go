package entity

import "time"

// Tipos de bodega.
const (
	WarehouseTypeStorage = "storage" // solo almacenamiento
	WarehouseTypeSale    = "sale"    // habilitada para ventas
)

// Warehouse representa una bodega o sucursal. A lo sumo una marcada como default.
type Warehouse struct {
	ID        string
	Code      string // único
	Name      string
	Type      string
	Active    bool
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaleEnabled indica si se pueden registrar ventas contra la bodega.
func (w *Warehouse) SaleEnabled() bool {
	return w != nil && w.Active && w.Type == WarehouseTypeSale
}
