package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de venta. NEW solo existe en memoria antes del commit.
const (
	SaleStatusCompleted = "completed"
	SaleStatusVoided    = "voided"
	SaleStatusRefunded  = "refunded"
)

// Medios de pago.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
)

// Estados de pago.
const (
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Sale cabecera de una venta. Items y pagos se crean atómicamente con ella.
type Sale struct {
	ID                  string
	InvoiceNumber       string // único, secuencial por día
	EmployeeID          string
	CustomerID          *string
	WarehouseID         string
	Subtotal            decimal.Decimal
	DiscountAmount      decimal.Decimal
	TaxAmount           decimal.Decimal
	LoyaltyPointsUsed   int64
	LoyaltyPointsEarned int64
	Total               decimal.Decimal
	Status              string
	StatusReason        string
	Items               []SaleItem
	Payments            []Payment
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SaleItem línea de venta.
type SaleItem struct {
	ID        string
	SaleID    string
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	LineTotal decimal.Decimal
}

// Payment pago asociado a una venta.
type Payment struct {
	ID             string
	SaleID         string
	Method         string
	Amount         decimal.Decimal // monto aplicado a la venta
	AmountReceived decimal.Decimal // monto entregado por el cliente
	ChangeGiven    decimal.Decimal
	Status         string
}

// ValidPaymentMethod indica si m es un medio de pago aceptado.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}
