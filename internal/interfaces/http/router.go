package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/application/sale"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *inventory.LedgerUseCase
	Transfers *transfer.UseCase
	Sales     *sale.UseCase
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin, entity.RoleManager, entity.RoleCashier))

	// Inventario
	invGroup := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger)
	invGroup.Get("/", inventoryHandler.List)
	invGroup.Get("/low-stock", inventoryHandler.LowStock)
	invGroup.Get("/movements", inventoryHandler.Movements)
	invGroup.Post("/adjustments", inventoryHandler.Adjust)
	invGroup.Post("/transfers", inventoryHandler.Transfer)
	invGroup.Put("/levels", inventoryHandler.SetLevels)

	// Solicitudes de traslado
	trGroup := api.Group("/transfer-requests")
	transferHandler := NewTransferHandler(deps.Transfers)
	trGroup.Post("/", transferHandler.Create)
	trGroup.Get("/", transferHandler.List)
	trGroup.Get("/:id", transferHandler.Get)
	trGroup.Post("/:id/approve", transferHandler.Approve)
	trGroup.Post("/:id/reject", transferHandler.Reject)
	trGroup.Post("/:id/receive", transferHandler.Receive)

	// Ventas
	sales := api.Group("/sales")
	saleHandler := NewSaleHandler(deps.Sales)
	sales.Post("/", saleHandler.Create)
	sales.Get("/:id", saleHandler.Get)
	sales.Post("/:id/void", saleHandler.Void)
	sales.Post("/:id/refund", saleHandler.Refund)
}
