package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func nd(value string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(value))
}

func TestScenarioTotalsAndPayout(t *testing.T) {
	subtotal := d("22000")
	tax := TaxAmount(subtotal, d("28"))
	if !tax.Equal(d("6160")) {
		t.Fatalf("expected tax 6160, got %s", tax)
	}

	grand := GrandTotal(subtotal, tax, d("500"), decimal.Zero)
	if !grand.Equal(d("28660")) {
		t.Fatalf("expected grand total 28660, got %s", grand)
	}

	payout, err := VendorPayout(subtotal, d("3"), d("500"), d("220"))
	if err != nil {
		t.Fatalf("unexpected payout error: %v", err)
	}
	if !payout.PlatformFee.Equal(d("660")) {
		t.Fatalf("expected platform fee 660, got %s", payout.PlatformFee)
	}
	if !payout.Amount.Equal(d("20620")) {
		t.Fatalf("expected payout 20620, got %s", payout.Amount)
	}
}

func TestVendorPayoutRejectsNegativeResult(t *testing.T) {
	_, err := VendorPayout(d("1000"), d("3"), d("500"), d("600"))
	if !errors.Is(err, ErrNegativePayout) {
		t.Fatalf("expected ErrNegativePayout, got %v", err)
	}

	_, err = VendorPayout(d("1000"), d("3"), d("-1"), decimal.Zero)
	if !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestVendorPayoutZeroIsAllowed(t *testing.T) {
	payout, err := VendorPayout(d("100"), decimal.Zero, d("60"), d("40"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !payout.Amount.IsZero() {
		t.Fatalf("expected zero payout, got %s", payout.Amount)
	}
}

func TestLineTotalRounds(t *testing.T) {
	got := LineTotal(d("415.333"), d("3"))
	if !got.Equal(d("1246")) {
		t.Fatalf("expected 1246, got %s", got)
	}
	if got := TaxAmount(d("99.99"), d("18")); !got.Equal(d("18")) {
		t.Fatalf("expected 18.00, got %s", got)
	}
}

func TestLaborTotal(t *testing.T) {
	tests := []struct {
		name  string
		rate  string
		basis enums.RateBasis
		units LaborUnits
		want  string
		err   error
	}{
		{name: "daily rate by days", rate: "900", basis: enums.RateBasisDaily, units: LaborUnits{Days: nd("2"), Workers: 3}, want: "5400"},
		{name: "hourly rate by hours", rate: "120", basis: enums.RateBasisHourly, units: LaborUnits{Hours: nd("5"), Workers: 2}, want: "1200"},
		{name: "days win over hours", rate: "120", basis: enums.RateBasisHourly, units: LaborUnits{Hours: nd("5"), Days: nd("1"), Workers: 1}, want: "960"},
		{name: "daily rate by hours", rate: "800", basis: enums.RateBasisDaily, units: LaborUnits{Hours: nd("4"), Workers: 1}, want: "400"},
		{name: "zero days falls back to hours", rate: "100", basis: enums.RateBasisHourly, units: LaborUnits{Hours: nd("3"), Days: nd("0"), Workers: 1}, want: "300"},
		{name: "no units", rate: "100", basis: enums.RateBasisHourly, units: LaborUnits{Workers: 1}, err: ErrInvalidLaborBooking},
		{name: "no workers", rate: "100", basis: enums.RateBasisHourly, units: LaborUnits{Hours: nd("1")}, err: ErrInvalidLaborBooking},
		{name: "bad basis", rate: "100", basis: "weekly", units: LaborUnits{Hours: nd("1"), Workers: 1}, err: ErrInvalidRateBasis},
		{name: "negative rate", rate: "-1", basis: enums.RateBasisDaily, units: LaborUnits{Days: nd("1"), Workers: 1}, err: ErrNegativeAmount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LaborTotal(d(tc.rate), tc.basis, tc.units)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestOrderSubtotalAndNet(t *testing.T) {
	subtotal := OrderSubtotal([]decimal.Decimal{d("1000.10"), d("250")}, []decimal.Decimal{d("900")})
	if !subtotal.Equal(d("2150.10")) {
		t.Fatalf("expected 2150.10, got %s", subtotal)
	}
	if got := SettlementNet(d("20620"), d("220")); !got.Equal(d("20400")) {
		t.Fatalf("expected 20400, got %s", got)
	}
}

func TestCheckRefund(t *testing.T) {
	if err := CheckRefund(d("2400"), d("4800")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckRefund(d("4800"), d("4800")); err != nil {
		t.Fatalf("refund equal to limit should pass: %v", err)
	}
	if err := CheckRefund(d("4800.01"), d("4800")); !errors.Is(err, ErrRefundExceedsLimit) {
		t.Fatalf("expected ErrRefundExceedsLimit, got %v", err)
	}
	if err := CheckRefund(d("-1"), d("4800")); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}
