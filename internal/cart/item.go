package cart

import (
	"errors"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/shopspring/decimal"
)

var (
	// ErrValidationRejected marks mutations refused because their input was invalid.
	ErrValidationRejected = errors.New("cart mutation rejected")
	// ErrPersistenceCorrupt marks a stored snapshot that could not be decoded.
	ErrPersistenceCorrupt = errors.New("cart snapshot corrupt")
)

// Item is one cart line. A cart holds at most one Item per ProductID.
type Item struct {
	ProductID int
	Title     string
	Price     decimal.Decimal
	Image     string
	Quantity  int
}

// Subtotal is price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ProductRef carries the product fields a cart line copies when it is created.
type ProductRef struct {
	ID    int
	Title string
	Price decimal.Decimal
	Image string
}

// FromProduct extracts the cart-relevant fields of a catalog product.
func FromProduct(p catalog.Product) ProductRef {
	return ProductRef{
		ID:    p.ID,
		Title: p.Title,
		Price: p.Price,
		Image: p.Image,
	}
}

// TotalItems sums the quantities of items.
func TotalItems(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums price times quantity over items without rounding.
func TotalPrice(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func indexOf(items []Item, productID int) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
