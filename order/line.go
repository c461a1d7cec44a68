package order

import (
	"errors"
	"fmt"
	"math"

	"orderagent/catalog"
)

var (
	// ErrInvalidLine marks a proposed line that is not a record with an item name.
	ErrInvalidLine = errors.New("invalid order line")
	// ErrQuantity marks a quantity that could not be read as a positive integer.
	ErrQuantity = errors.New("invalid quantity")
)

// MaxQuantity bounds the quantity of a single line so that line prices cannot overflow.
const MaxQuantity = math.MaxInt32

// Line is one priced item of an order. Price is always UnitPrice(Item) * Quantity.
type Line struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// NewLine prices qty units of the canonical item name.
func NewLine(cat *catalog.Catalog, item string, qty int) (Line, error) {
	if qty > MaxQuantity {
		return Line{}, fmt.Errorf("%w: %d exceeds %d", ErrQuantity, qty, MaxQuantity)
	}
	price, err := cat.LinePrice(item, qty)
	if err != nil {
		return Line{}, err
	}
	return Line{Item: item, Quantity: qty, Price: price.String()}, nil
}

// AddQuantity sums two non-negative quantities, saturating at MaxQuantity.
func AddQuantity(a, b int) int {
	if a > MaxQuantity-b {
		return MaxQuantity
	}
	return a + b
}

// Clone returns a copy of lines that shares no backing array with the input.
func Clone(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// Total sums the catalog price of every line.
func Total(cat *catalog.Catalog, lines []Line) (catalog.Money, error) {
	var total catalog.Money
	for _, l := range lines {
		p, err := cat.LinePrice(l.Item, l.Quantity)
		if err != nil {
			return 0, fmt.Errorf("total: %w", err)
		}
		total += p
	}
	return total, nil
}
