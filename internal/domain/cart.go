package domain

// CartLine is one product's presence in the cart. Title, Image and Price are
// display snapshots captured when the product is first added; repeat adds only
// raise the quantity.
type CartLine struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Image    string  `json:"image"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Cart keeps lines in insertion order so display stays stable across mutations.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// TotalCount is the sum of all line quantities. Computed on demand, never cached.
func (c *Cart) TotalCount() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice is the sum of price times quantity over all lines.
func (c *Cart) TotalPrice() float64 {
	total := 0.0
	for _, line := range c.Lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}
