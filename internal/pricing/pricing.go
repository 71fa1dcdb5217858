// Package pricing computes order money figures. Everything here is pure:
// inputs in, totals out, no clock, no store.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tavolo-pos/api/internal/enum"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
	ErrNegativePrice   = errors.New("price must not be negative")
	ErrInvalidTaxRate  = errors.New("tax rate must be within [0,100]")
)

// Line is one order line: the captured unit price, the captured prices of
// its selected modifiers, and the quantity.
type Line struct {
	UnitPrice      decimal.Decimal
	ModifierPrices []decimal.Decimal
	Quantity       int32
}

// Discount describes an optional order-level discount.
type Discount struct {
	Type  string
	Value decimal.Decimal
}

// Totals are the persisted money figures of an order. Subtotal is the
// post-discount figure, matching what the order record stores.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Calculate prices an order from its lines. Intermediate sums stay
// unrounded; only the returned figures are rounded to currency precision,
// half-up, so per-line rounding error cannot compound.
func Calculate(lines []Line, taxRate, tip decimal.Decimal, disc *Discount) (Totals, error) {
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return Totals{}, ErrInvalidTaxRate
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity < 1 {
			return Totals{}, ErrInvalidQuantity
		}
		if line.UnitPrice.IsNegative() {
			return Totals{}, ErrNegativePrice
		}
		unit := line.UnitPrice
		for _, mp := range line.ModifierPrices {
			if mp.IsNegative() {
				return Totals{}, ErrNegativePrice
			}
			unit = unit.Add(mp)
		}
		subtotal = subtotal.Add(unit.Mul(decimal.NewFromInt32(line.Quantity)))
	}

	return FromSubtotal(subtotal, taxRate, tip, disc), nil
}

// FromSubtotal derives tax and total from a known pre-discount subtotal.
// Used when the lines are already summed (voucher application, removal).
func FromSubtotal(subtotal, taxRate, tip decimal.Decimal, disc *Discount) Totals {
	discount := decimal.Zero
	if disc != nil {
		discount = DiscountAmount(subtotal, disc.Type, disc.Value)
	}

	net := subtotal.Sub(discount).Round(2)
	tax := net.Mul(taxRate).Div(hundred).Round(2)
	total := net.Add(tax).Add(tip).Round(2)

	return Totals{
		Subtotal: net,
		Discount: discount.Round(2),
		Tax:      tax,
		Total:    total,
	}
}

// DiscountAmount applies the discount rule to a subtotal. FREE_ITEM is a
// flat deduction equal to the voucher value; it does not bind to a concrete
// menu item (inherited behavior, see the voucher service).
func DiscountAmount(subtotal decimal.Decimal, discType string, value decimal.Decimal) decimal.Decimal {
	switch discType {
	case enum.DiscountTypePercentage:
		return subtotal.Mul(value).Div(hundred)
	case enum.DiscountTypeFixed, enum.DiscountTypeFreeItem:
		if value.GreaterThan(subtotal) {
			return subtotal
		}
		return value
	}
	return decimal.Zero
}

// InvertDiscount reconstructs the pre-discount subtotal from the discounted
// one. The pre-discount figure is not stored, so removal inverts the
// specific discount type algebraically.
func InvertDiscount(currentSubtotal decimal.Decimal, discType string, value decimal.Decimal) decimal.Decimal {
	switch discType {
	case enum.DiscountTypePercentage:
		factor := decimal.NewFromInt(1).Sub(value.Div(hundred))
		if factor.IsZero() {
			return currentSubtotal
		}
		return currentSubtotal.Div(factor).Round(2)
	case enum.DiscountTypeFixed, enum.DiscountTypeFreeItem:
		return currentSubtotal.Add(value).Round(2)
	}
	return currentSubtotal
}
