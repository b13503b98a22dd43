// Package cart implements the ephemeral per-conversation cart. It is a
// plain in-memory value owned by one session; persistence only happens at
// checkout, when the lines are captured onto the Order record.
package cart

import (
	"fmt"
	"strings"

	"edabot/models"
)

// EmptyText is the fixed rendering of a cart with no entries.
const EmptyText = "Корзина пуста."

// Cart accumulates line items. Adding a dish that is already present
// (matched by name) increments its quantity instead of duplicating the
// entry, so entry order is the order of first addition.
type Cart struct {
	items []models.LineItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Restore returns a cart pre-filled with the given lines (reorder flow).
func Restore(items []models.LineItem) *Cart {
	c := &Cart{items: make([]models.LineItem, len(items))}
	copy(c.items, items)
	return c
}

// Add merges a dish into the cart by name.
func (c *Cart) Add(name string, price int64) {
	for i := range c.items {
		if c.items[i].Name == name {
			c.items[i].Qty++
			return
		}
	}
	c.items = append(c.items, models.LineItem{Name: name, Price: price, Qty: 1})
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []models.LineItem {
	out := make([]models.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct entries.
func (c *Cart) Len() int { return len(c.items) }

// Quantity returns the summed quantity over all entries.
func (c *Cart) Quantity() int {
	var n int
	for _, it := range c.items {
		n += it.Qty
	}
	return n
}

// Total returns Σ price×qty over the entries.
func (c *Cart) Total() int64 {
	var total int64
	for _, it := range c.items {
		total += it.Sum()
	}
	return total
}

// Clear resets the cart to empty.
func (c *Cart) Clear() {
	c.items = nil
}

// Format renders the itemization plus total, or EmptyText for an empty
// cart. The output is embedded into HTML messages, so the caller passes
// an escape function for the untrusted item names.
func (c *Cart) Format(escape func(string) string) string {
	if len(c.items) == 0 {
		return EmptyText
	}
	var b strings.Builder
	for _, it := range c.items {
		fmt.Fprintf(&b, "• %s ×%d — %d₽\n", escape(it.Name), it.Qty, it.Sum())
	}
	fmt.Fprintf(&b, "\nИтого: <b>%d₽</b>", c.Total())
	return b.String()
}
