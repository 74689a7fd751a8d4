package inventory

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-stock/internal/dates"
)

// Engine derives grouped and filtered views from product snapshots. It holds
// no state besides its date rules and is safe for concurrent use.
type Engine struct {
	rules dates.Rules
}

// NewEngine constructs an Engine using the shared date rules.
func NewEngine(rules dates.Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules exposes the date rules used for classification.
func (e *Engine) Rules() dates.Rules {
	return e.rules
}

// Group is a derived product family keyed by trimmed name.
type Group struct {
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	Products      []Product `json:"products"`
	TotalQuantity int       `json:"totalQuantity"`
	TotalValue    float64   `json:"totalValue"`
	LowestPrice   float64   `json:"lowestPrice"`
	HighestPrice  float64   `json:"highestPrice"`
}

// newGroup folds members into a group, computing its totals.
func newGroup(name string, members []Product) Group {
	g := Group{Name: name, Products: members}
	value := decimal.Zero
	for i, p := range members {
		if i == 0 {
			g.Category = p.Category
			g.LowestPrice = p.Price
			g.HighestPrice = p.Price
		}
		g.TotalQuantity += p.Quantity
		value = value.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Quantity))))
		if p.Price < g.LowestPrice {
			g.LowestPrice = p.Price
		}
		if p.Price > g.HighestPrice {
			g.HighestPrice = p.Price
		}
	}
	g.TotalValue = value.Round(2).InexactFloat64()
	return g
}

// Grouping is an immutable name → Group mapping that keeps first-seen order.
type Grouping struct {
	names  []string
	groups map[string]Group
}

// Len returns the number of groups.
func (g Grouping) Len() int {
	return len(g.names)
}

// Names returns group names in first-seen order.
func (g Grouping) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Get returns the group for name.
func (g Grouping) Get(name string) (Group, bool) {
	grp, ok := g.groups[name]
	return grp, ok
}

// Groups returns every group in first-seen order.
func (g Grouping) Groups() []Group {
	out := make([]Group, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, g.groups[name])
	}
	return out
}

// MarshalJSON encodes the grouping as an ordered array.
func (g Grouping) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Groups())
}

// groupingBuilder accumulates members per name; build hands out a fresh
// Grouping and the builder is discarded.
type groupingBuilder struct {
	names   []string
	members map[string][]Product
}

func newGroupingBuilder() *groupingBuilder {
	return &groupingBuilder{members: make(map[string][]Product)}
}

func (b *groupingBuilder) add(name string, p Product) {
	if _, ok := b.members[name]; !ok {
		b.names = append(b.names, name)
	}
	b.members[name] = append(b.members[name], p)
}

func (b *groupingBuilder) build() Grouping {
	out := Grouping{names: b.names, groups: make(map[string]Group, len(b.names))}
	for _, name := range b.names {
		out.groups[name] = newGroup(name, b.members[name])
	}
	return out
}

// GroupByName drops depleted records and groups the rest by trimmed name.
// Matching is case-sensitive; member order follows input order.
func (e *Engine) GroupByName(products []Product) Grouping {
	b := newGroupingBuilder()
	for _, p := range products {
		if p.Quantity <= 0 {
			continue
		}
		b.add(strings.TrimSpace(p.Name), p)
	}
	return b.build()
}

// Flatten returns every member of the grouping with stock on hand.
func Flatten(g Grouping) []Product {
	out := []Product{}
	for _, grp := range g.Groups() {
		for _, p := range grp.Products {
			if p.Quantity > 0 {
				out = append(out, p)
			}
		}
	}
	return out
}

// Filter keeps the members matching both the query and the status filter.
// Groups left without members are dropped; surviving group totals cover only
// the surviving members.
func (e *Engine) Filter(g Grouping, opts FilterOptions) Grouping {
	query := newMatcher(opts.Query)
	status := e.statusPredicate(opts.Status)
	b := newGroupingBuilder()
	for _, grp := range g.Groups() {
		for _, p := range grp.Products {
			if query.match(p) && status(p) {
				b.add(grp.Name, p)
			}
		}
	}
	return b.build()
}

func (e *Engine) statusPredicate(filter string) func(Product) bool {
	switch filter {
	case "", FilterAll:
		return func(Product) bool { return true }
	case FilterLowStock:
		return Product.IsLowStock
	case FilterExpiring:
		return func(p Product) bool { return e.rules.IsExpiringSoon(p.ExpiryDate) }
	case FilterExpired:
		return func(p Product) bool { return e.rules.IsExpired(p.ExpiryDate) }
	default:
		return func(p Product) bool { return p.Category == filter }
	}
}
