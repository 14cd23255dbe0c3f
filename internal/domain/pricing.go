package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	TaxRate               = decimal.RequireFromString("0.08")
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShipping          = decimal.NewFromInt(10)
)

func Tax(subtotal Money) Money {
	return subtotal.Mul(TaxRate)
}

// Shipping is free from FreeShippingThreshold upwards, flat otherwise.
func Shipping(subtotal Money) Money {
	if subtotal.Amount.GreaterThanOrEqual(FreeShippingThreshold) {
		return Zero(subtotal.Currency)
	}
	return NewMoney(FlatShipping, subtotal.Currency)
}

// Subtotal sums unit price times quantity over items, in the given currency.
func Subtotal(unit currency.Unit, items []LineItem) Money {
	sum := Zero(unit)
	for _, item := range items {
		sum.Amount = sum.Amount.Add(item.Total().Amount)
	}
	return sum
}

func ComputeTotals(unit currency.Unit, items []LineItem) Totals {
	subtotal := Subtotal(unit, items)
	tax := Tax(subtotal)
	shipping := Shipping(subtotal)

	count := 0
	for _, item := range items {
		count += item.Quantity
	}

	return Totals{
		Subtotal:  subtotal,
		Tax:       tax,
		Shipping:  shipping,
		Total:     NewMoney(subtotal.Amount.Add(tax.Amount).Add(shipping.Amount), subtotal.Currency),
		ItemCount: count,
	}
}
