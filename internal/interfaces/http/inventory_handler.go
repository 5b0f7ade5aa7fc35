package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// InventoryHandler maneja las peticiones HTTP del libro de inventario (protegido).
type InventoryHandler struct {
	ledger *inventory.LedgerUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// List godoc
// @Summary      Listar inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        product_id    query  string  false  "Filtrar por producto"
// @Param        search        query  string  false  "SKU o nombre"
// @Param        low_stock     query  bool    false  "Solo registros en o bajo el mínimo"
// @Param        limit         query  int     false  "Máximo 100"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.ListResponse[dto.InventoryRecordDTO]
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.DefaultPage()
	list, total, err := h.ledger.ListInventory(c.UserContext(), actor, repository.InventoryFilter{
		WarehouseID: c.Query("warehouse_id"),
		ProductID:   c.Query("product_id"),
		Search:      c.Query("search"),
		LowStock:    c.QueryBool("low_stock"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.InventoryRecordDTO]{
		Items: dto.InventoryRecordsFrom(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

// LowStock godoc
// @Summary      Reporte de bajo stock
// @Description  Registros con cantidad en o bajo el mínimo, el más crítico primero.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Vacío = todas las bodegas visibles"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.ledger.LowStockReport(c.UserContext(), actor, c.Query("warehouse_id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.LowStockItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LowStockItemDTO{
			InventoryRecordDTO: dto.InventoryRecordFrom(it.Record),
			StockRatio:         it.StockRatio,
			SuggestedOrderQty:  it.SuggestedOrderQty,
			Priority:           it.Priority,
		})
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// Movements godoc
// @Summary      Historial de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        product_id    query  string  false  "Filtrar por producto"
// @Param        type          query  string  false  "IN | OUT | ADJUSTMENT | TRANSFER"
// @Success      200  {object}  dto.ListResponse[dto.StockMovementDTO]
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.DefaultPage()
	list, total, err := h.ledger.ListMovements(c.UserContext(), actor, repository.MovementFilter{
		WarehouseID: c.Query("warehouse_id"),
		ProductID:   c.Query("product_id"),
		Type:        c.Query("type"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.StockMovementDTO]{
		Items: dto.StockMovementsFrom(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

// Adjust godoc
// @Summary      Ajustar stock
// @Description  Aplica un delta con signo; el resultado no puede quedar negativo.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "product_id, warehouse_id, delta, reason"
// @Success      201   {object}  dto.AdjustStockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.ledger.Adjust(c.UserContext(), actor, inventory.AdjustInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Delta:       in.Delta,
		Reason:      in.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AdjustStockResponse{
		Record:   dto.InventoryRecordFrom(res.Record),
		Movement: dto.StockMovementFrom(res.Movement),
	})
}

// Transfer godoc
// @Summary      Traslado directo entre bodegas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DirectTransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  dto.DirectTransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.DirectTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.ledger.Transfer(c.UserContext(), actor, inventory.TransferInput{
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		Notes:           in.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DirectTransferResponse{
		TransferID:  res.TransferID,
		Source:      dto.InventoryRecordFrom(res.Source),
		Destination: dto.InventoryRecordFrom(res.Destination),
		Movements:   dto.StockMovementsFrom(res.Movements),
	})
}

// SetLevels godoc
// @Summary      Configurar mínimo y máximo de stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockLevelsRequest  true  "product_id, warehouse_id, min_stock_level, max_stock_level"
// @Success      200   {object}  dto.InventoryRecordDTO
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/levels [put]
func (h *InventoryHandler) SetLevels(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.StockLevelsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rec, err := h.ledger.SetStockLevels(c.UserContext(), actor, inventory.LevelsInput{
		ProductID:     in.ProductID,
		WarehouseID:   in.WarehouseID,
		MinStockLevel: in.MinStockLevel,
		MaxStockLevel: in.MaxStockLevel,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.InventoryRecordFrom(rec))
}
