package inventory

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// DefaultLowStockThreshold applies when a product carries no usable threshold.
const DefaultLowStockThreshold = 10

// Product is one inventory line item in a user's collection.
type Product struct {
	ID                string    `json:"id"`
	ProductCode       string    `json:"productCode"`
	Name              string    `json:"name"`
	Price             float64   `json:"price"`
	WholesalePrice    float64   `json:"wholesalePrice"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"lowStockThreshold"`
	Category          string    `json:"category,omitempty"`
	ManufactureDate   string    `json:"manufactureDate,omitempty"`
	ExpiryDate        string    `json:"expiryDate,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Threshold returns the effective low-stock threshold.
func (p Product) Threshold() int {
	if p.LowStockThreshold <= 0 {
		return DefaultLowStockThreshold
	}
	return p.LowStockThreshold
}

// Available reports whether the product still has stock on hand.
func (p Product) Available() bool {
	return p.Quantity > 0
}

// IsLowStock reports quantity at or below the threshold. Depleted items are
// not low stock; callers that see the full collection check Available first.
func (p Product) IsLowStock() bool {
	return p.Quantity <= p.Threshold()
}

// Patch carries a partial product update. Nil fields are left untouched.
type Patch struct {
	ProductCode       *string  `json:"productCode,omitempty" validate:"omitempty,min=1,max=64"`
	Name              *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Price             *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	WholesalePrice    *float64 `json:"wholesalePrice,omitempty" validate:"omitempty,gte=0"`
	Quantity          *int     `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	LowStockThreshold *int     `json:"lowStockThreshold,omitempty" validate:"omitempty,gte=1"`
	Category          *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	ManufactureDate   *string  `json:"manufactureDate,omitempty"`
	ExpiryDate        *string  `json:"expiryDate,omitempty"`
}

// Apply merges the patch into p and stamps UpdatedAt.
func (patch Patch) Apply(p Product, now time.Time) Product {
	if patch.ProductCode != nil {
		p.ProductCode = *patch.ProductCode
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.WholesalePrice != nil {
		p.WholesalePrice = *patch.WholesalePrice
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.LowStockThreshold != nil {
		p.LowStockThreshold = *patch.LowStockThreshold
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.ManufactureDate != nil {
		p.ManufactureDate = *patch.ManufactureDate
	}
	if patch.ExpiryDate != nil {
		p.ExpiryDate = *patch.ExpiryDate
	}
	p.UpdatedAt = now
	return p
}

// CreateInput describes a manually added product.
type CreateInput struct {
	ProductCode       string  `json:"productCode" validate:"omitempty,max=64"`
	Name              string  `json:"name" validate:"required,max=200"`
	Price             float64 `json:"price" validate:"gt=0"`
	WholesalePrice    float64 `json:"wholesalePrice" validate:"gte=0"`
	Quantity          int     `json:"quantity" validate:"gte=0"`
	LowStockThreshold int     `json:"lowStockThreshold" validate:"gte=0"`
	Category          string  `json:"category" validate:"max=100"`
	ManufactureDate   string  `json:"manufactureDate"`
	ExpiryDate        string  `json:"expiryDate"`
}

// StatusKind enumerates derived stock/expiry states.
type StatusKind string

const (
	// StatusExpired marks an item whose expiry date is today or earlier.
	StatusExpired StatusKind = "expired"
	// StatusLowStock marks quantity at or below the threshold.
	StatusLowStock StatusKind = "low-stock"
	// StatusExpiring marks an expiry date inside the warning window.
	StatusExpiring StatusKind = "expiring"
	// StatusInStock is the healthy state.
	StatusInStock StatusKind = "in-stock"
)

// StatusInfo is a status with its display label and color key.
type StatusInfo struct {
	Status StatusKind `json:"status"`
	Label  string     `json:"label"`
	Color  string     `json:"color"`
}

// Status filter values understood by Engine.Filter. Any other non-empty value
// is treated as a category name.
const (
	FilterAll      = "all"
	FilterLowStock = "lowStock"
	FilterExpiring = "expiring"
	FilterExpired  = "expired"
)

// FilterOptions scopes a grouping by free-text query and status/category.
type FilterOptions struct {
	Query  string
	Status string
}

// ErrNotFound indicates a missing product.
var ErrNotFound = fmt.Errorf("inventory: product %w", shared.ErrNotFound)

// ErrValidation wraps invalid product input.
var ErrValidation = fmt.Errorf("inventory: %w", shared.ErrValidation)

// ErrUserRequired indicates a call without a user scope.
var ErrUserRequired = fmt.Errorf("inventory: %w: user id required", shared.ErrInvalidInput)

// ErrInvalidKey indicates a product key the store cannot address.
var ErrInvalidKey = fmt.Errorf("inventory: %w: product key", shared.ErrInvalidInput)
