package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo. El subsistema de inventario solo lo lee.
type Product struct {
	ID        string
	SKU       string // único
	Name      string
	Cost      decimal.Decimal
	Price     decimal.Decimal // precio de venta
	Unit      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
