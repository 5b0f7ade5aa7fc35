package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// TransferHandler solicitudes de traslado: crear, decidir, recibir y consultar.
type TransferHandler struct {
	uc *transfer.UseCase
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *transfer.UseCase) *TransferHandler {
	return &TransferHandler{uc: uc}
}

// Create godoc
// @Summary      Solicitar traslado
// @Tags         transfer-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id"
// @Success      201   {object}  dto.TransferRequestDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfer-requests [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	tr, err := h.uc.Create(c.UserContext(), actor, transfer.CreateInput{
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Notes:           in.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferRequestFrom(tr))
}

// List godoc
// @Summary      Listar solicitudes de traslado visibles para el actor
// @Tags         transfer-requests
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Origen o destino"
// @Param        status        query  string  false  "pending | approved | rejected | completed"
// @Param        product_id    query  string  false  "Producto"
// @Success      200  {object}  dto.ListResponse[dto.TransferRequestDTO]
// @Router       /api/transfer-requests [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.DefaultPage()
	list, total, err := h.uc.List(c.UserContext(), actor, repository.TransferFilter{
		WarehouseID: c.Query("warehouse_id"),
		Status:      c.Query("status"),
		ProductID:   c.Query("product_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.TransferRequestDTO]{
		Items: dto.TransferRequestsFrom(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

// Get godoc
// @Summary      Obtener solicitud de traslado
// @Tags         transfer-requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.TransferRequestDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfer-requests/{id} [get]
func (h *TransferHandler) Get(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	tr, err := h.uc.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferRequestFrom(tr))
}

// Approve godoc
// @Summary      Aprobar traslado con la cantidad a mover
// @Description  No reserva stock: la recepción vuelve a validar el origen.
// @Tags         transfer-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID de la solicitud"
// @Param        body  body  dto.ApproveTransferRequest  true  "quantity, notes"
// @Success      200   {object}  dto.TransferRequestDTO
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfer-requests/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.ApproveTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	tr, err := h.uc.Approve(c.UserContext(), actor, c.Params("id"), in.Quantity, in.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferRequestFrom(tr))
}

// Reject godoc
// @Summary      Rechazar traslado
// @Tags         transfer-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true   "ID de la solicitud"
// @Param        body  body  dto.RejectTransferRequest  false  "notes"
// @Success      200   {object}  dto.TransferRequestDTO
// @Router       /api/transfer-requests/{id}/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.RejectTransferRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	tr, err := h.uc.Reject(c.UserContext(), actor, c.Params("id"), in.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferRequestFrom(tr))
}

// Receive godoc
// @Summary      Marcar traslado como recibido
// @Description  Mueve la cantidad aprobada; falla con INSUFFICIENT_STOCK si el origen ya no alcanza.
// @Tags         transfer-requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.TransferRequestDTO
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfer-requests/{id}/receive [post]
func (h *TransferHandler) Receive(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	tr, err := h.uc.MarkReceived(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferRequestFrom(tr))
}
