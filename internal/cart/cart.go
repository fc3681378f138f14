// Package cart holds the client-side shopping cart. A cart is never stored on
// the server: checking out turns each line into its own order request.
package cart

import (
	"sync"

	"gemstore/internal/models"
)

// DefaultCheckoutMessage accompanies each order request when the shopper
// leaves no note.
const DefaultCheckoutMessage = "Customer purchase request"

// Line is one product in the cart. A cart holds at most one line per product.
type Line struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// Subtotal is price times quantity.
func (l Line) Subtotal() int64 {
	return l.Product.Price * int64(l.Quantity)
}

// Submitter places a single order request on the shopper's behalf.
type Submitter interface {
	CreateOrderRequest(productID uint, quantity int, message string) (*models.OrderRequest, error)
}

// LineResult reports the outcome of submitting one line.
type LineResult struct {
	Line    Line
	Request *models.OrderRequest
	Err     error
}

// CheckoutResult lists one result per submitted line, in cart order.
type CheckoutResult struct {
	Lines []LineResult
}

// Succeeded counts lines that became order requests.
func (r CheckoutResult) Succeeded() int {
	n := 0
	for _, l := range r.Lines {
		if l.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the lines that could not be submitted.
func (r CheckoutResult) Failed() []LineResult {
	var failed []LineResult
	for _, l := range r.Lines {
		if l.Err != nil {
			failed = append(failed, l)
		}
	}
	return failed
}

// Cart is safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

func (c *Cart) indexOf(productID uint) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add puts qty units of product in the cart. Quantities below 1 count as 1.
// Adding a product already present increases its quantity.
func (c *Cart) Add(product models.Product, qty int) {
	if qty < 1 {
		qty = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(product.ID); i >= 0 {
		c.lines[i].Quantity += qty
		return
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: qty})
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (c *Cart) UpdateQuantity(productID uint, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity = qty
	}
}

// Remove drops the line for productID; unknown ids are ignored.
func (c *Cart) Remove(productID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

// Lines returns a copy of the lines in the order they were added.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is the sum of all line subtotals.
func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Checkout submits every line as its own order request. Submissions are
// independent: a failure does not stop or undo the others. Lines that were
// submitted leave the cart; failed lines stay for a retry.
func (c *Cart) Checkout(submitter Submitter, message string) CheckoutResult {
	if message == "" {
		message = DefaultCheckoutMessage
	}

	var result CheckoutResult
	for _, line := range c.Lines() {
		request, err := submitter.CreateOrderRequest(line.Product.ID, line.Quantity, message)
		result.Lines = append(result.Lines, LineResult{Line: line, Request: request, Err: err})
		if err == nil {
			c.Remove(line.Product.ID)
		}
	}
	return result
}
