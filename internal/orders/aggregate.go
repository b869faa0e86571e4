package orders

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/money"
)

// Recompute derives every line total and order-level amount from the order's
// children and commercial terms. Totals are never written any other way.
func Recompute(order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	for _, amount := range []decimal.Decimal{order.DeliveryCharge, order.Discount, order.Deductions} {
		if amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "order amounts must not be negative")
		}
	}

	itemTotals := make([]decimal.Decimal, 0, len(order.Items))
	taxes := make([]decimal.Decimal, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		if !item.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"position": item.Position})
		}
		if item.UnitPrice.IsNegative() || item.TaxRate.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item price and tax rate must not be negative")
		}
		item.LineTotal = money.LineTotal(item.UnitPrice, item.Quantity)
		item.TaxAmount = money.TaxAmount(item.LineTotal, item.TaxRate)
		itemTotals = append(itemTotals, item.LineTotal)
		taxes = append(taxes, item.TaxAmount)
	}

	laborTotals := make([]decimal.Decimal, 0, len(order.Labor))
	for i := range order.Labor {
		labor := &order.Labor[i]
		total, err := money.LaborTotal(labor.Rate, labor.RateBasis, money.LaborUnits{
			Hours:   labor.HoursBooked,
			Days:    labor.DaysBooked,
			Workers: labor.Workers,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
				WithDetails(map[string]any{"position": labor.Position})
		}
		labor.LineTotal = total
		laborTotals = append(laborTotals, total)
	}

	subtotal := money.OrderSubtotal(itemTotals, laborTotals)
	tax := money.Sum(taxes...)
	gross := money.Sum(subtotal, tax, order.DeliveryCharge)
	if order.Discount.GreaterThan(gross) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order total")
	}

	payout, err := money.VendorPayout(subtotal, order.PlatformFeeRate, order.LogisticsFee, order.Deductions)
	if err != nil {
		if errors.Is(err, money.ErrNegativePayout) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "deductions exceed vendor earnings").
				WithDetails(map[string]any{"subtotal": subtotal.StringFixed(money.Scale)})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	order.Subtotal = subtotal
	order.TaxAmount = tax
	order.DeliveryCharge = money.Round(order.DeliveryCharge)
	order.Discount = money.Round(order.Discount)
	order.GrandTotal = money.GrandTotal(subtotal, tax, order.DeliveryCharge, order.Discount)
	order.PlatformFee = payout.PlatformFee
	order.LogisticsFee = payout.LogisticsFee
	order.Deductions = payout.Deductions
	order.VendorPayout = payout.Amount

	if order.Payment != nil {
		order.Payment.Amount = order.GrandTotal
		if order.Payment.AmountRefunded.GreaterThan(order.Payment.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "refunded amount exceeds payment amount")
		}
	}
	return nil
}

// CheckInvariants reports whether stored totals match their derivation.
func CheckInvariants(order *models.Order) error {
	grand := money.GrandTotal(order.Subtotal, order.TaxAmount, order.DeliveryCharge, order.Discount)
	if !grand.Equal(order.GrandTotal) {
		return pkgerrors.New(pkgerrors.CodeInternal, "grand total drifted from its components")
	}
	payout := money.Round(order.Subtotal.Sub(order.PlatformFee).Sub(order.LogisticsFee).Sub(order.Deductions))
	if !payout.Equal(order.VendorPayout) || payout.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInternal, "vendor payout drifted from its components")
	}
	return nil
}
