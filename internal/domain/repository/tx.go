package repository

import "context"

// Repos agrupa los repositorios atados a una misma conexión o transacción.
type Repos struct {
	Products   ProductRepository
	Warehouses WarehouseRepository
	Inventory  InventoryRepository
	Movements  StockMovementRepository
	Transfers  TransferRequestRepository
	Sales      SaleRepository
	Customers  CustomerRepository
	Audit      AuditLogRepository
}

// TxRunner ejecuta fn dentro de una transacción, con repos atados a ella.
// Commit si fn retorna nil; Rollback en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
