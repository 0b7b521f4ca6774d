package cart

import (
	"errors"

	"dukaanbill/backend/internal/domain"
)

var (
	ErrStockExceeded = errors.New("stock exceeded")
	ErrLineNotFound  = errors.New("cart line not found")
)

// Cart is the in-memory ordered line collection for one billing session.
// It is not safe for concurrent use; the owning session serializes access.
type Cart struct {
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{}
}

// AddLine inserts a line for the product or merges quantity into an existing
// line. The merged quantity is checked against product stock; on failure the
// existing line is left untouched. A merge takes the incoming discount as the
// new line discount rather than summing it with the old one.
func (c *Cart) AddLine(product domain.Product, qty int, discount float64) error {
	if qty < 1 {
		qty = 1
	}
	if discount < 0 {
		discount = 0
	}

	idx := c.indexOf(product.ID)
	newQty := qty
	if idx >= 0 {
		newQty += c.lines[idx].Qty
	}
	if newQty > product.Stock {
		return ErrStockExceeded
	}
	if maxDiscount := product.Price * float64(newQty); discount > maxDiscount {
		discount = maxDiscount
	}

	if idx >= 0 {
		c.lines[idx].Qty = newQty
		c.lines[idx].Discount = discount
		return nil
	}

	c.lines = append(c.lines, domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		HSN:       product.HSN,
		UnitPrice: product.Price,
		Qty:       newQty,
		Discount:  discount,
		ImageRef:  product.ImageRef,
	})
	return nil
}

// SetQty overwrites a line's quantity. Quantities below one remove the line
// entirely. Stock is only re-checked on a net increase, so decrements always
// succeed even when stock data has drifted.
func (c *Cart) SetQty(productID string, qty int, stock int) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrLineNotFound
	}
	if qty < 1 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return nil
	}
	if qty > c.lines[idx].Qty && qty > stock {
		return ErrStockExceeded
	}
	c.lines[idx].Qty = qty
	if maxDiscount := c.lines[idx].UnitPrice * float64(qty); c.lines[idx].Discount > maxDiscount {
		c.lines[idx].Discount = maxDiscount
	}
	return nil
}

// SetDiscount overwrites a line's discount. Negative amounts are a no-op;
// amounts above the line value are clamped so the line never goes negative.
func (c *Cart) SetDiscount(productID string, amount float64) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrLineNotFound
	}
	if amount < 0 {
		return nil
	}
	if maxDiscount := c.lines[idx].UnitPrice * float64(c.lines[idx].Qty); amount > maxDiscount {
		amount = maxDiscount
	}
	c.lines[idx].Discount = amount
	return nil
}

func (c *Cart) Remove(productID string) error {
	return c.SetQty(productID, 0, 0)
}

// Clear empties the cart. Idempotent.
func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Lines returns an insertion-ordered copy of the cart lines.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Subtotal sums unitPrice*qty-discount over all lines. Each line contribution
// is clamped at zero so corrupted discount data can never drive the subtotal
// negative.
func (c *Cart) Subtotal() float64 {
	total := 0.0
	for _, line := range c.lines {
		contribution := line.UnitPrice*float64(line.Qty) - line.Discount
		if contribution < 0 {
			contribution = 0
		}
		total += contribution
	}
	return total
}

// Tax computes subtotal * rate / 100. The rate comes from the mode machine:
// zero whenever GST is disabled.
func (c *Cart) Tax(rate float64) float64 {
	return c.Subtotal() * rate / 100
}

func (c *Cart) Total(rate float64) float64 {
	return c.Subtotal() + c.Tax(rate)
}

func (c *Cart) indexOf(productID string) int {
	for i, line := range c.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}
