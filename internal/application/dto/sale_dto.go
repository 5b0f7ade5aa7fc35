package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// CreateSaleRequest body para POST /api/sales.
type CreateSaleRequest struct {
	WarehouseID   string               `json:"warehouse_id,omitempty"`
	CustomerID    string               `json:"customer_id,omitempty"`
	Items         []SaleItemRequest    `json:"items"`
	Payments      []PaymentRequest     `json:"payments"`
	Discount      *SaleDiscountRequest `json:"discount,omitempty"`
	LoyaltyPoints int64                `json:"loyalty_points,omitempty"`
}

// SaleItemRequest línea; unit_price opcional (por defecto el precio del catálogo).
type SaleItemRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Discount  decimal.Decimal  `json:"discount,omitempty"`
}

// PaymentRequest pago entregado.
type PaymentRequest struct {
	Method string          `json:"method"` // cash | card | transfer
	Amount decimal.Decimal `json:"amount"`
}

// SaleDiscountRequest descuento de orden.
type SaleDiscountRequest struct {
	Type  string          `json:"type"` // percentage | fixed
	Value decimal.Decimal `json:"value"`
}

// ReverseSaleRequest body para anular o devolver.
type ReverseSaleRequest struct {
	Reason string `json:"reason"`
}

// SaleDTO venta con líneas y pagos.
type SaleDTO struct {
	ID                  string          `json:"id"`
	InvoiceNumber       string          `json:"invoice_number"`
	EmployeeID          string          `json:"employee_id"`
	CustomerID          *string         `json:"customer_id,omitempty"`
	WarehouseID         string          `json:"warehouse_id"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	Total               decimal.Decimal `json:"total"`
	LoyaltyPointsUsed   int64           `json:"loyalty_points_used"`
	LoyaltyPointsEarned int64           `json:"loyalty_points_earned"`
	Status              string          `json:"status"`
	StatusReason        string          `json:"status_reason,omitempty"`
	Items               []SaleItemDTO   `json:"items"`
	Payments            []PaymentDTO    `json:"payments"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type SaleItemDTO struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type PaymentDTO struct {
	ID             string          `json:"id"`
	Method         string          `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	ChangeGiven    decimal.Decimal `json:"change_given"`
	Status         string          `json:"status"`
}

// SaleFrom convierte la entidad.
func SaleFrom(s *entity.Sale) SaleDTO {
	out := SaleDTO{
		ID:                  s.ID,
		InvoiceNumber:       s.InvoiceNumber,
		EmployeeID:          s.EmployeeID,
		CustomerID:          s.CustomerID,
		WarehouseID:         s.WarehouseID,
		Subtotal:            s.Subtotal,
		DiscountAmount:      s.DiscountAmount,
		TaxAmount:           s.TaxAmount,
		Total:               s.Total,
		LoyaltyPointsUsed:   s.LoyaltyPointsUsed,
		LoyaltyPointsEarned: s.LoyaltyPointsEarned,
		Status:              s.Status,
		StatusReason:        s.StatusReason,
		Items:               make([]SaleItemDTO, 0, len(s.Items)),
		Payments:            make([]PaymentDTO, 0, len(s.Payments)),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	for _, it := range s.Items {
		out.Items = append(out.Items, SaleItemDTO{
			ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity,
			UnitPrice: it.UnitPrice, Discount: it.Discount, LineTotal: it.LineTotal,
		})
	}
	for _, p := range s.Payments {
		out.Payments = append(out.Payments, PaymentDTO{
			ID: p.ID, Method: p.Method, Amount: p.Amount,
			AmountReceived: p.AmountReceived, ChangeGiven: p.ChangeGiven, Status: p.Status,
		})
	}
	return out
}
