// Package reconcile holds the pure numeric core: sale pricing, the
// actual/pending revenue split, and the dashboard aggregation. Everything
// here is decimal arithmetic over already-loaded rows; nothing touches
// storage.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/mine-martin-12/web-POS/internal/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// TotalPrice derives a sale's stored total from quantity and unit price.
// It is recomputed on every insert and update, never trusted from callers.
func TotalPrice(quantity int, sellingPrice decimal.Decimal) decimal.Decimal {
	return sellingPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Profit is computed on read and never stored. It may be negative.
func Profit(quantity int, sellingPrice decimal.Decimal, buyingPrice decimal.Decimal) decimal.Decimal {
	return sellingPrice.Sub(buyingPrice).Mul(decimal.NewFromInt(int64(quantity)))
}

// PaymentRatio is amount_paid / amount_owed clamped to [0, 1], defined as 0
// when amount_owed is zero so a degenerate account never divides by zero.
func PaymentRatio(amountOwed decimal.Decimal, amountPaid decimal.Decimal) decimal.Decimal {
	if amountOwed.Sign() <= 0 {
		return decimal.Zero
	}
	ratio := amountPaid.Div(amountOwed)
	if ratio.Sign() < 0 {
		return decimal.Zero
	}
	if ratio.GreaterThan(one) {
		return one
	}
	return ratio
}

// DeriveCreditStatus recomputes an account status from the owed/paid
// relationship: paid when amount_paid >= amount_owed, partially_paid when
// some but not all has been paid, unpaid otherwise.
func DeriveCreditStatus(amountOwed decimal.Decimal, amountPaid decimal.Decimal) string {
	switch {
	case amountPaid.GreaterThanOrEqual(amountOwed):
		return domain.CreditStatusPaid
	case amountPaid.Sign() > 0:
		return domain.CreditStatusPartiallyPaid
	default:
		return domain.CreditStatusUnpaid
	}
}

// Split is one sale's revenue and profit divided into realized and
// outstanding portions. Settled reports whether the sale counts toward the
// paid-sales count rather than the credit-sales count.
type Split struct {
	ActualRevenue  decimal.Decimal
	PendingRevenue decimal.Decimal
	ActualProfit   decimal.Decimal
	PendingProfit  decimal.Decimal
	Settled        bool
}

// Reconcile splits a sale by its payment-completion ratio.
//
// Non-credit sales are fully realized. Credit sales split by
// amount_paid / amount_owed. A credit sale with no account is degraded data
// and treated as entirely pending. Pending portions are always computed as
// total minus actual so that actual + pending reproduces the total exactly.
func Reconcile(rec domain.SaleRecord) Split {
	total := rec.Sale.TotalPrice
	profit := Profit(rec.Sale.Quantity, rec.Sale.SellingPrice, rec.BuyingPrice)

	if rec.Sale.PaymentMethod != domain.PaymentCredit {
		return Split{
			ActualRevenue: total,
			ActualProfit:  profit,
			Settled:       true,
		}
	}

	if rec.Credit == nil {
		return Split{
			PendingRevenue: total,
			PendingProfit:  profit,
		}
	}

	ratio := PaymentRatio(rec.Credit.AmountOwed, rec.Credit.AmountPaid)
	actualRevenue := total.Mul(ratio)
	actualProfit := profit.Mul(ratio)

	return Split{
		ActualRevenue:  actualRevenue,
		PendingRevenue: total.Sub(actualRevenue),
		ActualProfit:   actualProfit,
		PendingProfit:  profit.Sub(actualProfit),
		Settled:        ratio.GreaterThanOrEqual(one),
	}
}
