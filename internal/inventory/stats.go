package inventory

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Stats summarises the available part of a collection.
type Stats struct {
	TotalProducts     int      `json:"totalProducts"`
	LowStockCount     int      `json:"lowStockCount"`
	ExpiredCount      int      `json:"expiredCount"`
	ExpiringSoonCount int      `json:"expiringSoonCount"`
	TotalQuantity     int      `json:"totalQuantity"`
	StockValue        float64  `json:"stockValue"`
	CostValue         float64  `json:"costValue"`
	Categories        []string `json:"categories"`
}

// Stats computes counters over products with stock on hand. Categories are
// collected from the whole collection, depleted items included.
func (e *Engine) Stats(products []Product) Stats {
	s := Stats{Categories: Categories(products)}
	value := decimal.Zero
	cost := decimal.Zero
	for _, p := range products {
		if !p.Available() {
			continue
		}
		s.TotalProducts++
		s.TotalQuantity += p.Quantity
		qty := decimal.NewFromInt(int64(p.Quantity))
		value = value.Add(decimal.NewFromFloat(p.Price).Mul(qty))
		cost = cost.Add(decimal.NewFromFloat(p.WholesalePrice).Mul(qty))
		if p.IsLowStock() {
			s.LowStockCount++
		}
		if e.rules.IsExpired(p.ExpiryDate) {
			s.ExpiredCount++
		}
		if e.rules.IsExpiringSoon(p.ExpiryDate) {
			s.ExpiringSoonCount++
		}
	}
	s.StockValue = value.Round(2).InexactFloat64()
	s.CostValue = cost.Round(2).InexactFloat64()
	return s
}

// Categories returns distinct non-empty categories in first-seen order.
func Categories(products []Product) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// LookupResult reports a product found by code.
type LookupResult struct {
	Product Product `json:"product"`
	Sold    bool    `json:"sold"`
}

// LookupByCode finds the first product whose code matches case-insensitively.
// Depleted products are included so sold items can still be audited.
func LookupByCode(products []Product, code string) (LookupResult, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return LookupResult{}, false
	}
	for _, p := range products {
		if p.ProductCode != "" && equalFold(p.ProductCode, code) {
			return LookupResult{Product: p, Sold: p.Quantity <= 0}, true
		}
	}
	return LookupResult{}, false
}

// GenerateProductCode derives a code like "WID-4821" from the product name
// and the last four digits of the current unix milliseconds.
func GenerateProductCode(name string, now time.Time) string {
	prefix := make([]rune, 0, 3)
	for _, r := range strings.TrimSpace(name) {
		if len(prefix) == 3 {
			break
		}
		prefix = append(prefix, unicode.ToUpper(r))
	}
	if len(prefix) == 0 {
		prefix = []rune("PRD")
	}
	return fmt.Sprintf("%s-%04d", string(prefix), now.UnixMilli()%10000)
}

// GroupView is a group with its aggregate and per-member statuses.
type GroupView struct {
	Group
	Status  StatusInfo   `json:"status"`
	Members []StatusInfo `json:"memberStatuses"`
}

// View is the full derived inventory view for one snapshot.
type View struct {
	Groups     []GroupView `json:"groups"`
	GroupCount int         `json:"groupCount"`
	Available  int         `json:"available"`
	Stats      Stats       `json:"stats"`
	Filter     string      `json:"filter"`
	Query      string      `json:"query,omitempty"`
}

// Build recomputes the complete view from a snapshot.
func (e *Engine) Build(products []Product, opts FilterOptions) View {
	grouped := e.GroupByName(products)
	filtered := e.Filter(grouped, opts)
	filter := opts.Status
	if filter == "" {
		filter = FilterAll
	}
	v := View{
		Groups:     make([]GroupView, 0, filtered.Len()),
		GroupCount: filtered.Len(),
		Available:  len(Flatten(filtered)),
		Stats:      e.Stats(products),
		Filter:     filter,
		Query:      opts.Query,
	}
	for _, g := range filtered.Groups() {
		gv := GroupView{Group: g, Status: e.GroupStatus(g), Members: make([]StatusInfo, 0, len(g.Products))}
		for _, p := range g.Products {
			gv.Members = append(gv.Members, e.ItemStatus(p))
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}
