// Package money holds the pure monetary derivations shared by orders, disputes
// and settlements. Every amount is a shopspring decimal rounded to two places.
package money

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Scale is the number of fractional digits kept on every stored amount.
const Scale = 2

// HoursPerDay converts between hourly and daily labor rates.
const HoursPerDay = 8

var (
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrNegativePayout      = errors.New("deductions exceed vendor earnings")
	ErrRefundExceedsLimit  = errors.New("refund exceeds the allowed amount")
	ErrInvalidLaborBooking = errors.New("labor booking needs hours or days and at least one worker")
	ErrInvalidRateBasis    = errors.New("unknown labor rate basis")
)

var hundred = decimal.NewFromInt(100)

// Round applies the storage scale.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Scale)
}

// Sum adds the provided amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return Round(total)
}

// Percent returns ratePercent percent of amount. A rate of 18 means 18%.
func Percent(amount, ratePercent decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(ratePercent).Div(hundred))
}

// LineTotal prices a material line.
func LineTotal(unitPrice, quantity decimal.Decimal) decimal.Decimal {
	return Round(unitPrice.Mul(quantity))
}

// TaxAmount computes tax on a line total.
func TaxAmount(lineTotal, taxRatePercent decimal.Decimal) decimal.Decimal {
	return Percent(lineTotal, taxRatePercent)
}

// LaborUnits is what a buyer booked for one labor line.
type LaborUnits struct {
	Hours   decimal.NullDecimal
	Days    decimal.NullDecimal
	Workers int
}

// LaborTotal prices a labor booking. When both hours and days are booked the
// days figure wins. A rate quoted on the other basis is converted with
// HoursPerDay.
func LaborTotal(rate decimal.Decimal, basis enums.RateBasis, units LaborUnits) (decimal.Decimal, error) {
	if rate.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	if units.Workers < 1 {
		return decimal.Zero, ErrInvalidLaborBooking
	}
	workers := decimal.NewFromInt(int64(units.Workers))
	perDay := decimal.NewFromInt(HoursPerDay)

	var dailyRate, hourlyRate decimal.Decimal
	switch basis {
	case enums.RateBasisDaily:
		dailyRate = rate
		hourlyRate = rate.Div(perDay)
	case enums.RateBasisHourly:
		hourlyRate = rate
		dailyRate = rate.Mul(perDay)
	default:
		return decimal.Zero, ErrInvalidRateBasis
	}

	switch {
	case positive(units.Days):
		return Round(dailyRate.Mul(units.Days.Decimal).Mul(workers)), nil
	case positive(units.Hours):
		return Round(hourlyRate.Mul(units.Hours.Decimal).Mul(workers)), nil
	default:
		return decimal.Zero, ErrInvalidLaborBooking
	}
}

func positive(value decimal.NullDecimal) bool {
	return value.Valid && value.Decimal.IsPositive()
}

// OrderSubtotal sums material line totals and labor totals.
func OrderSubtotal(itemTotals, laborTotals []decimal.Decimal) decimal.Decimal {
	return Sum(append(append([]decimal.Decimal{}, itemTotals...), laborTotals...)...)
}

// GrandTotal is what the buyer owes.
func GrandTotal(subtotal, tax, deliveryCharge, discount decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Add(tax).Add(deliveryCharge).Sub(discount))
}

// PlatformFee is the marketplace commission on the subtotal.
func PlatformFee(subtotal, ratePercent decimal.Decimal) decimal.Decimal {
	return Percent(subtotal, ratePercent)
}

// Payout breaks down what the vendor receives for an order.
type Payout struct {
	PlatformFee  decimal.Decimal
	LogisticsFee decimal.Decimal
	Deductions   decimal.Decimal
	Amount       decimal.Decimal
}

// VendorPayout derives the vendor's net earnings. A negative result is
// reported as ErrNegativePayout, never clamped.
func VendorPayout(subtotal, platformFeeRate, logisticsFee, deductions decimal.Decimal) (Payout, error) {
	for _, amount := range []decimal.Decimal{subtotal, platformFeeRate, logisticsFee, deductions} {
		if amount.IsNegative() {
			return Payout{}, ErrNegativeAmount
		}
	}

	fee := PlatformFee(subtotal, platformFeeRate)
	payout := Payout{
		PlatformFee:  fee,
		LogisticsFee: Round(logisticsFee),
		Deductions:   Round(deductions),
		Amount:       Round(subtotal.Sub(fee).Sub(logisticsFee).Sub(deductions)),
	}
	if payout.Amount.IsNegative() {
		return payout, ErrNegativePayout
	}
	return payout, nil
}

// SettlementNet is what is transferred for a settlement.
func SettlementNet(total, deductions decimal.Decimal) decimal.Decimal {
	return Round(total.Sub(deductions))
}

// CheckRefund validates 0 <= refund <= limit.
func CheckRefund(refund, limit decimal.Decimal) error {
	if refund.IsNegative() {
		return ErrNegativeAmount
	}
	if refund.GreaterThan(limit) {
		return ErrRefundExceedsLimit
	}
	return nil
}
