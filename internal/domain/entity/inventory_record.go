package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRecord es el stock actual de un producto en una bodega.
// Se crea al primer movimiento hacia el par (producto, bodega) y nunca se borra implícitamente.
type InventoryRecord struct {
	ProductID     string
	WarehouseID   string
	Quantity      decimal.Decimal // nunca negativo tras una operación exitosa
	MinStockLevel decimal.Decimal
	MaxStockLevel decimal.Decimal
	UpdatedAt     time.Time

	// Datos de solo lectura para listados (join con products).
	SKU         string
	ProductName string
}

// IsLowStock: cantidad en o por debajo del mínimo configurado.
func (r *InventoryRecord) IsLowStock() bool {
	return r.Quantity.LessThanOrEqual(r.MinStockLevel)
}

// StockRatio cantidad/mínimo; 0 cuando no hay umbral configurado.
func (r *InventoryRecord) StockRatio() decimal.Decimal {
	if !r.MinStockLevel.IsPositive() {
		return decimal.Zero
	}
	return r.Quantity.DivRound(r.MinStockLevel, 6)
}

// RecordLookup resultado de buscar un InventoryRecord: Found(record) o Absent.
// El caller decide si inserta con cantidad cero o actualiza en sitio.
type RecordLookup struct {
	record *InventoryRecord
}

// Found construye la variante con registro existente.
func Found(r *InventoryRecord) RecordLookup { return RecordLookup{record: r} }

// Absent construye la variante sin registro.
func Absent() RecordLookup { return RecordLookup{} }

// Record devuelve el registro y si existe.
func (l RecordLookup) Record() (*InventoryRecord, bool) {
	return l.record, l.record != nil
}

// Quantity devuelve la cantidad actual, cero si el registro no existe.
func (l RecordLookup) Quantity() decimal.Decimal {
	if l.record == nil {
		return decimal.Zero
	}
	return l.record.Quantity
}
