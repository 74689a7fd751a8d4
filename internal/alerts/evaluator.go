// Package alerts derives stock and expiry alert buckets from a product
// snapshot.
package alerts

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-stock/internal/dates"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
)

// Set holds the four alert buckets of one snapshot. A product may sit in
// more than one bucket; Total is the raw sum of bucket sizes.
type Set struct {
	LowStock     []inventory.Product `json:"lowStock"`
	OutOfStock   []inventory.Product `json:"outOfStock"`
	ExpiringSoon []inventory.Product `json:"expiringSoon"`
	Expired      []inventory.Product `json:"expired"`
	Total        int                 `json:"total"`
}

// Empty reports whether no bucket holds a product.
func (s Set) Empty() bool {
	return s.Total == 0
}

// Flags are the per-product alert predicates.
type Flags struct {
	HasAlerts      bool `json:"hasAlerts"`
	IsLowStock     bool `json:"isLowStock"`
	IsOutOfStock   bool `json:"isOutOfStock"`
	IsExpiringSoon bool `json:"isExpiringSoon"`
	IsExpired      bool `json:"isExpired"`
}

// Evaluator classifies products against the shared date rules.
type Evaluator struct {
	rules dates.Rules
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(rules dates.Rules) *Evaluator {
	return &Evaluator{rules: rules}
}

func lowStock(p inventory.Product) bool {
	return p.Quantity > 0 && p.Quantity <= p.Threshold()
}

func outOfStock(p inventory.Product) bool {
	return p.Quantity == 0
}

// Evaluate computes every bucket over the full snapshot, depleted items
// included. Buckets keep input order and are never nil.
func (e *Evaluator) Evaluate(products []inventory.Product) Set {
	s := Set{
		LowStock:     collect(products, lowStock),
		OutOfStock:   collect(products, outOfStock),
		ExpiringSoon: collect(products, func(p inventory.Product) bool { return e.rules.IsExpiringSoon(p.ExpiryDate) }),
		Expired:      collect(products, func(p inventory.Product) bool { return e.rules.IsExpired(p.ExpiryDate) }),
	}
	s.Total = len(s.LowStock) + len(s.OutOfStock) + len(s.ExpiringSoon) + len(s.Expired)
	return s
}

func collect(products []inventory.Product, keep func(inventory.Product) bool) []inventory.Product {
	out := []inventory.Product{}
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Flags evaluates the alert predicates of a single product.
func (e *Evaluator) Flags(p inventory.Product) Flags {
	f := Flags{
		IsLowStock:     lowStock(p),
		IsOutOfStock:   outOfStock(p),
		IsExpiringSoon: e.rules.IsExpiringSoon(p.ExpiryDate),
		IsExpired:      e.rules.IsExpired(p.ExpiryDate),
	}
	f.HasAlerts = f.IsLowStock || f.IsOutOfStock || f.IsExpiringSoon || f.IsExpired
	return f
}

// Messages renders one line per non-empty bucket in the order out of stock,
// low stock, expired, expiring soon.
func Messages(s Set) []string {
	out := []string{}
	if n := len(s.OutOfStock); n > 0 {
		out = append(out, fmt.Sprintf("%d %s out of stock", n, plural(n)))
	}
	if n := len(s.LowStock); n > 0 {
		out = append(out, fmt.Sprintf("%d %s low on stock", n, plural(n)))
	}
	if n := len(s.Expired); n > 0 {
		out = append(out, fmt.Sprintf("%d %s expired", n, plural(n)))
	}
	if n := len(s.ExpiringSoon); n > 0 {
		out = append(out, fmt.Sprintf("%d %s expiring soon", n, plural(n)))
	}
	return out
}

func plural(n int) string {
	if n == 1 {
		return "product"
	}
	return "products"
}
