package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// Item is one line of a completed sale.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Sale is a completed transaction. TotalAmount and Profit are computed by
// the writer and never recomputed here.
type Sale struct {
	ID            string    `json:"id"`
	SaleDate      time.Time `json:"saleDate"`
	TotalAmount   float64   `json:"totalAmount"`
	Profit        float64   `json:"profit"`
	Items         []Item    `json:"items"`
	CustomerName  string    `json:"customerName,omitempty"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	Status        string    `json:"status"`
}

// Window selects the sales included in a summary.
type Window string

const (
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowAll   Window = "all"
)

// ParseWindow validates a window name. An empty value selects today.
func ParseWindow(raw string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(raw))); w {
	case "":
		return WindowToday, nil
	case WindowToday, WindowWeek, WindowMonth, WindowAll:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}
}

// ErrNotFound indicates a missing sale.
var ErrNotFound = fmt.Errorf("sales: sale %w", shared.ErrNotFound)

// ErrInvalidWindow indicates an unknown summary window.
var ErrInvalidWindow = fmt.Errorf("sales: %w: unknown window", shared.ErrInvalidInput)

// ErrUserRequired indicates a call without a user scope.
var ErrUserRequired = fmt.Errorf("sales: %w: user id required", shared.ErrInvalidInput)
