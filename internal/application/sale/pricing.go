package sale

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// Tipos de descuento a nivel de orden.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

var hundred = decimal.NewFromInt(100)

// PricingConfig tasas aplicadas al calcular totales.
type PricingConfig struct {
	TaxRate            decimal.Decimal
	LoyaltyPointValue  decimal.Decimal
	LoyaltyAccrualRate decimal.Decimal
}

// LineInput línea del carrito. UnitPrice nil = precio del producto.
type LineInput struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
	Discount  decimal.Decimal
}

// DiscountInput descuento de orden: porcentaje (0..100) o monto fijo (0..subtotal).
type DiscountInput struct {
	Type  string
	Value decimal.Decimal
}

// PaymentInput pago entregado por el cliente.
type PaymentInput struct {
	Method string
	Amount decimal.Decimal
}

// Totals resultado del cálculo, antes de persistir.
type Totals struct {
	Items           []entity.SaleItem
	Subtotal        decimal.Decimal
	OrderDiscount   decimal.Decimal
	LoyaltyDiscount decimal.Decimal
	DiscountAmount  decimal.Decimal // orden + fidelización
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	PointsUsed      int64
}

func money(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// PriceLines calcula cada línea (unitPrice × qty − descuento) y el subtotal.
func PriceLines(lines []LineInput, products map[string]*entity.Product) ([]entity.SaleItem, decimal.Decimal, error) {
	items := make([]entity.SaleItem, 0, len(lines))
	subtotal := decimal.Zero
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, decimal.Zero, domain.NotFound("product", l.ProductID)
		}
		price := p.Price
		if l.UnitPrice != nil {
			price = *l.UnitPrice
		}
		if price.IsNegative() {
			return nil, decimal.Zero, domain.InvalidInput("unit_price", "no puede ser negativo")
		}
		gross := price.Mul(l.Quantity)
		if l.Discount.IsNegative() || l.Discount.GreaterThan(gross) {
			return nil, decimal.Zero, domain.InvalidInput("items.discount", "debe estar entre 0 y el valor de la línea")
		}
		lineTotal := money(gross.Sub(l.Discount))
		items = append(items, entity.SaleItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: price,
			Discount:  l.Discount,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

// OrderDiscount monto del descuento de orden; nil = sin descuento.
func OrderDiscount(subtotal decimal.Decimal, in *DiscountInput) (decimal.Decimal, error) {
	if in == nil {
		return decimal.Zero, nil
	}
	switch in.Type {
	case DiscountPercentage:
		if in.Value.IsNegative() || in.Value.GreaterThan(hundred) {
			return decimal.Zero, domain.InvalidInput("discount.value", "el porcentaje debe estar entre 0 y 100")
		}
		return money(subtotal.Mul(in.Value).Div(hundred)), nil
	case DiscountFixed:
		if in.Value.IsNegative() || in.Value.GreaterThan(subtotal) {
			return decimal.Zero, domain.InvalidInput("discount.value", "el monto fijo debe estar entre 0 y el subtotal")
		}
		return money(in.Value), nil
	default:
		return decimal.Zero, domain.InvalidInput("discount.type", "debe ser percentage o fixed")
	}
}

// RedeemPoints convierte puntos en descuento acotado a limit.
// Si el descuento derivado excede el límite, se aplica el límite y los puntos consumidos se recalculan
// con floor(limit / pointValue); el residuo a favor del cliente es intencional.
func RedeemPoints(points, balance int64, pointValue, limit decimal.Decimal) (decimal.Decimal, int64, error) {
	if points == 0 {
		return decimal.Zero, 0, nil
	}
	if points < 0 {
		return decimal.Zero, 0, domain.InvalidInput("loyalty_points", "no puede ser negativo")
	}
	if points > balance {
		return decimal.Zero, 0, domain.InvalidInput("loyalty_points", "excede el saldo del cliente")
	}
	if !pointValue.IsPositive() {
		return decimal.Zero, 0, domain.InvalidInput("loyalty_points", "valor de punto no configurado")
	}
	derived := pointValue.Mul(decimal.NewFromInt(points))
	if limit.IsNegative() {
		limit = decimal.Zero
	}
	if derived.LessThanOrEqual(limit) {
		return money(derived), points, nil
	}
	used := limit.Div(pointValue).Floor().IntPart()
	return money(limit), used, nil
}

// ComputeTotals aplica descuento de orden, fidelización e impuesto sobre las líneas.
func ComputeTotals(cfg PricingConfig, items []entity.SaleItem, subtotal decimal.Decimal, discount *DiscountInput, points, balance int64) (*Totals, error) {
	orderDiscount, err := OrderDiscount(subtotal, discount)
	if err != nil {
		return nil, err
	}
	loyaltyDiscount, used, err := RedeemPoints(points, balance, cfg.LoyaltyPointValue, subtotal.Sub(orderDiscount))
	if err != nil {
		return nil, err
	}
	discountAmount := orderDiscount.Add(loyaltyDiscount)
	taxable := subtotal.Sub(discountAmount)
	tax := money(taxable.Mul(cfg.TaxRate))
	return &Totals{
		Items:           items,
		Subtotal:        money(subtotal),
		OrderDiscount:   orderDiscount,
		LoyaltyDiscount: loyaltyDiscount,
		DiscountAmount:  discountAmount,
		TaxAmount:       tax,
		Total:           money(taxable.Add(tax)),
		PointsUsed:      used,
	}, nil
}

// PointsEarned floor(total × rate).
func PointsEarned(total, rate decimal.Decimal) int64 {
	if !rate.IsPositive() || !total.IsPositive() {
		return 0
	}
	return total.Mul(rate).Floor().IntPart()
}

// SettlePayments valida que lo entregado cubra el total y calcula el cambio sobre el pago en efectivo.
// Un excedente sin efectivo suficiente para devolverlo es InvalidInput.
func SettlePayments(total decimal.Decimal, in []PaymentInput) ([]entity.Payment, error) {
	if len(in) == 0 {
		return nil, domain.InvalidInput("payments", "se requiere al menos un pago")
	}
	tendered := decimal.Zero
	cashIdx := -1
	payments := make([]entity.Payment, 0, len(in))
	for i, p := range in {
		if !entity.ValidPaymentMethod(p.Method) {
			return nil, domain.InvalidInput("payments.method", "medio de pago desconocido: "+p.Method)
		}
		if !p.Amount.IsPositive() {
			return nil, domain.InvalidInput("payments.amount", "debe ser mayor que cero")
		}
		tendered = tendered.Add(p.Amount)
		if p.Method == entity.PaymentMethodCash && cashIdx < 0 {
			cashIdx = i
		}
		payments = append(payments, entity.Payment{
			Method:         p.Method,
			Amount:         p.Amount,
			AmountReceived: p.Amount,
			ChangeGiven:    decimal.Zero,
			Status:         entity.PaymentStatusPaid,
		})
	}
	if tendered.LessThan(total) {
		return nil, &domain.InsufficientPaymentError{Total: total, Tendered: tendered}
	}
	change := tendered.Sub(total)
	if change.IsPositive() {
		if cashIdx < 0 || payments[cashIdx].AmountReceived.LessThan(change) {
			return nil, domain.InvalidInput("payments", "el excedente solo puede devolverse sobre un pago en efectivo")
		}
		payments[cashIdx].ChangeGiven = change
		payments[cashIdx].Amount = payments[cashIdx].AmountReceived.Sub(change)
	}
	return payments, nil
}
