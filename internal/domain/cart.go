package domain

import (
	"errors"
	"fmt"

	"golang.org/x/text/currency"
)

// Product is the catalog snapshot handed to the cart at add time.
type Product struct {
	ID    string
	Name  string
	Price Money
}

func (p Product) Validate() error {
	if p.ID == "" {
		return errors.New("product ID is empty")
	}
	if p.Name == "" {
		return errors.New("product name is empty")
	}
	if p.Price.Currency == (currency.Unit{}) {
		return errors.New("product currency is not set")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product price[%s] is negative", p.Price.Amount)
	}

	return nil
}

// Variant holds the optional selectors of a product, empty means not selected.
type Variant struct {
	Size  string
	Color string
}

// LineKey identifies a line item. Additions with an equal key merge.
type LineKey struct {
	ProductID string
	Size      string
	Color     string
}

func NewLineKey(productID string, v Variant) LineKey {
	return LineKey{ProductID: productID, Size: v.Size, Color: v.Color}
}

func (k LineKey) Variant() Variant {
	return Variant{Size: k.Size, Color: k.Color}
}

func (k LineKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.ProductID, orNull(k.Size), orNull(k.Color))
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

type LineItem struct {
	Key       LineKey
	Name      string
	UnitPrice Money
	Quantity  int
}

func (i LineItem) Total() Money {
	return i.UnitPrice.MulInt(i.Quantity)
}

type Totals struct {
	Subtotal  Money
	Tax       Money
	Shipping  Money
	Total     Money
	ItemCount int
}
