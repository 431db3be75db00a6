// Package cart holds the shopper's cart: product lines keyed by product id,
// with derived totals and a versioned JSON snapshot for persistence.
package cart

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const snapshotVersion = 1

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
	ErrMissingProduct  = errors.New("product id is required")
)

// Line is a product snapshot taken when it was added to the cart.
type Line struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Quantity       int    `json:"quantity"`
	ImageRef       string `json:"imageRef,omitempty"`
}

func (l Line) validate() error {
	switch {
	case l.ProductID == "":
		return ErrMissingProduct
	case l.Quantity <= 0:
		return ErrInvalidQuantity
	case l.UnitPriceCents < 0:
		return ErrInvalidPrice
	}
	return nil
}

// Totals are derived from the lines, never stored.
type Totals struct {
	SubtotalCents int64 `json:"subtotalCents"`
	ItemCount     int   `json:"itemCount"`
}

// Cart is not safe for concurrent use.
type Cart struct {
	lines map[string]Line
	order []string
}

func New() *Cart {
	return &Cart{lines: map[string]Line{}}
}

// Add inserts a line, or adds its quantity to the existing line for the same
// product. The first snapshot of name, price and image is kept.
func (c *Cart) Add(l Line) error {
	if err := l.validate(); err != nil {
		return err
	}
	if existing, ok := c.lines[l.ProductID]; ok {
		existing.Quantity += l.Quantity
		c.lines[l.ProductID] = existing
		return nil
	}
	c.lines[l.ProductID] = l
	c.order = append(c.order, l.ProductID)
	return nil
}

// Remove drops the line for productID. Unknown ids are ignored.
func (c *Cart) Remove(productID string) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
// It reports whether the product was in the cart.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	l, ok := c.lines[productID]
	if !ok {
		return false
	}
	if quantity <= 0 {
		c.Remove(productID)
		return true
	}
	l.Quantity = quantity
	c.lines[productID] = l
	return true
}

func (c *Cart) Clear() {
	c.lines = map[string]Line{}
	c.order = nil
}

// Lines returns the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.lines[id])
	}
	return out
}

func (c *Cart) Line(productID string) (Line, bool) {
	l, ok := c.lines[productID]
	return l, ok
}

func (c *Cart) Len() int { return len(c.order) }

func (c *Cart) Totals() Totals {
	return Compute(c.Lines())
}

// Compute derives totals from any set of lines.
func Compute(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.SubtotalCents += l.UnitPriceCents * int64(l.Quantity)
		t.ItemCount += l.Quantity
	}
	return t
}

type snapshot struct {
	Version int    `json:"version"`
	Lines   []Line `json:"lines"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{Version: snapshotVersion, Lines: c.Lines()})
}

// UnmarshalJSON restores a snapshot. Invalid lines are dropped and duplicate
// products are merged, so a tampered or stale snapshot still yields a valid cart.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "decode cart snapshot")
	}
	if s.Version > snapshotVersion {
		return errors.Errorf("unsupported cart snapshot version %d", s.Version)
	}
	c.Clear()
	for _, l := range s.Lines {
		_ = c.Add(l)
	}
	return nil
}

// Document is the JSON shape returned to clients.
type Document struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

func (c *Cart) Document() Document {
	return Document{Lines: c.Lines(), Totals: c.Totals()}
}
