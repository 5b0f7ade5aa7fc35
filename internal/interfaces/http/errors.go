package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain"
)

// localError key donde se guarda el error interno para el request logger.
const localError = "request_error"

// respondError traduce errores de dominio a status y cuerpo HTTP.
func respondError(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	if status == fiber.StatusInternalServerError {
		c.Locals(localError, err)
	}
	return c.Status(status).JSON(body)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var (
		notFound  *domain.NotFoundError
		invalid   *domain.InvalidInputError
		stock     *domain.InsufficientStockError
		payment   *domain.InsufficientPaymentError
		forbidden *domain.ForbiddenError
		badState  *domain.InvalidStateError
	)
	switch {
	case errors.As(err, &stock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error(), Details: map[string]any{
			"product_id":   stock.ProductID,
			"warehouse_id": stock.WarehouseID,
			"available":    stock.Available.String(),
			"requested":    stock.Requested.String(),
		}}
	case errors.As(err, &payment):
		return fiber.StatusPaymentRequired, dto.ErrorResponse{Code: "INSUFFICIENT_PAYMENT", Message: err.Error(), Details: map[string]any{
			"total":    payment.Total.StringFixed(2),
			"tendered": payment.Tendered.StringFixed(2),
		}}
	case errors.As(err, &badState):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error(), Details: map[string]any{
			"entity":    badState.Entity,
			"id":        badState.ID,
			"current":   badState.Current,
			"requested": badState.Requested,
		}}
	case errors.As(err, &forbidden):
		details := map[string]any{"action": forbidden.Action}
		if forbidden.WarehouseID != "" {
			details["warehouse_id"] = forbidden.WarehouseID
		}
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso", Details: details}
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error(), Details: map[string]any{
			"entity": notFound.Entity,
			"ids":    notFound.IDs,
		}}
	case errors.As(err, &invalid):
		details := map[string]any{"reason": invalid.Reason}
		if invalid.Field != "" {
			details["field"] = invalid.Field
		}
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error(), Details: details}
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"}
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_STATE", Message: "transición de estado inválida"}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: "conflicto con el estado actual, reintente"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	case errors.Is(err, domain.ErrInsufficientPayment):
		return fiber.StatusPaymentRequired, dto.ErrorResponse{Code: "INSUFFICIENT_PAYMENT", Message: "pago insuficiente"}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
