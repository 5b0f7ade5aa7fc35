package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// IDs fijos del catálogo de demostración.
const (
	DemoWarehouseMain  = "00000000-0000-0000-0000-0000000000a1"
	DemoWarehouseStore = "00000000-0000-0000-0000-0000000000a2"
	DemoProductCoffee  = "00000000-0000-0000-0000-0000000000b1"
	DemoProductMug     = "00000000-0000-0000-0000-0000000000b2"
	DemoCustomer       = "00000000-0000-0000-0000-0000000000c1"
)

// NewDemoStore store con dos bodegas, dos productos y un cliente para desarrollo local.
func NewDemoStore() *Store {
	s := NewStore()
	now := time.Now()

	s.AddWarehouse(entity.Warehouse{ID: DemoWarehouseMain, Code: "BOD-01", Name: "Bodega central",
		Type: entity.WarehouseTypeStorage, Active: true, CreatedAt: now, UpdatedAt: now})
	s.AddWarehouse(entity.Warehouse{ID: DemoWarehouseStore, Code: "TDA-01", Name: "Tienda principal",
		Type: entity.WarehouseTypeSale, Active: true, IsDefault: true, CreatedAt: now, UpdatedAt: now})

	s.AddProduct(entity.Product{ID: DemoProductCoffee, SKU: "CAF-500", Name: "Café molido 500g",
		Cost: decimal.NewFromInt(600), Price: decimal.NewFromInt(1000), Unit: "UND", Active: true})
	s.AddProduct(entity.Product{ID: DemoProductMug, SKU: "TAZ-001", Name: "Taza cerámica",
		Cost: decimal.NewFromInt(300), Price: decimal.NewFromInt(550), Unit: "UND", Active: true})

	s.AddCustomer(entity.Customer{ID: DemoCustomer, Name: "Cliente frecuente", LoyaltyPoints: 500, CreatedAt: now, UpdatedAt: now})

	_ = s.SeedStock(DemoProductCoffee, DemoWarehouseMain, decimal.NewFromInt(200), decimal.NewFromInt(20))
	_ = s.SeedStock(DemoProductCoffee, DemoWarehouseStore, decimal.NewFromInt(15), decimal.NewFromInt(10))
	_ = s.SeedStock(DemoProductMug, DemoWarehouseStore, decimal.NewFromInt(40), decimal.NewFromInt(5))
	return s
}
