package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/sale"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

type reverseFunc func(ctx context.Context, actor entity.Actor, saleID, reason string) (*entity.Sale, error)

// SaleHandler ventas de punto de venta.
type SaleHandler struct {
	uc *sale.UseCase
}

// NewSaleHandler construye el handler.
func NewSaleHandler(uc *sale.UseCase) *SaleHandler {
	return &SaleHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar venta
// @Description  Valida stock, calcula totales, registra pagos y descuenta inventario en una sola transacción.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSaleRequest  true  "items, payments, discount, loyalty_points"
// @Success      201   {object}  dto.SaleDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      402   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	s, err := h.uc.CreateSale(c.UserContext(), actor, toCreateSaleInput(in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SaleFrom(s))
}

func toCreateSaleInput(in dto.CreateSaleRequest) sale.CreateSaleInput {
	out := sale.CreateSaleInput{
		WarehouseID:   in.WarehouseID,
		CustomerID:    in.CustomerID,
		LoyaltyPoints: in.LoyaltyPoints,
		Items:         make([]sale.LineInput, 0, len(in.Items)),
		Payments:      make([]sale.PaymentInput, 0, len(in.Payments)),
	}
	for _, it := range in.Items {
		out.Items = append(out.Items, sale.LineInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
		})
	}
	for _, p := range in.Payments {
		out.Payments = append(out.Payments, sale.PaymentInput{Method: p.Method, Amount: p.Amount})
	}
	if in.Discount != nil {
		out.Discount = &sale.DiscountInput{Type: in.Discount.Type, Value: in.Discount.Value}
	}
	return out
}

// Get godoc
// @Summary      Obtener venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) Get(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	s, err := h.uc.GetSale(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SaleFrom(s))
}

// Void godoc
// @Summary      Anular venta
// @Description  Devuelve el stock a la bodega de la venta. Solo ventas completed.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la venta"
// @Param        body  body  dto.ReverseSaleRequest  true  "reason"
// @Success      200   {object}  dto.SaleDTO
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/void [post]
func (h *SaleHandler) Void(c *fiber.Ctx) error {
	return h.reverse(c, h.uc.VoidSale)
}

// Refund godoc
// @Summary      Devolver venta
// @Description  Devuelve el stock y marca los pagos como reembolsados. Solo ventas completed.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la venta"
// @Param        body  body  dto.ReverseSaleRequest  true  "reason"
// @Success      200   {object}  dto.SaleDTO
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/refund [post]
func (h *SaleHandler) Refund(c *fiber.Ctx) error {
	return h.reverse(c, h.uc.RefundSale)
}

func (h *SaleHandler) reverse(c *fiber.Ctx, op reverseFunc) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.ReverseSaleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	s, err := op(c.UserContext(), actor, c.Params("id"), in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SaleFrom(s))
}
