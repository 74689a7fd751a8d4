package inventory

// Color keys attached to statuses for clients.
const (
	ColorDanger  = "danger"
	ColorWarning = "warning"
	ColorCaution = "caution"
	ColorSuccess = "success"
)

var (
	itemStatuses = map[StatusKind]StatusInfo{
		StatusExpired:  {Status: StatusExpired, Label: "Expired", Color: ColorDanger},
		StatusLowStock: {Status: StatusLowStock, Label: "Low Stock", Color: ColorWarning},
		StatusExpiring: {Status: StatusExpiring, Label: "Expiring Soon", Color: ColorCaution},
		StatusInStock:  {Status: StatusInStock, Label: "In Stock", Color: ColorSuccess},
	}
	groupStatuses = map[StatusKind]StatusInfo{
		StatusExpired:  {Status: StatusExpired, Label: "Contains Expired", Color: ColorDanger},
		StatusLowStock: {Status: StatusLowStock, Label: "Low Stock Items", Color: ColorWarning},
		StatusExpiring: {Status: StatusExpiring, Label: "Expiring Soon Items", Color: ColorCaution},
		StatusInStock:  {Status: StatusInStock, Label: "All Good", Color: ColorSuccess},
	}
)

// ItemStatus classifies a single product: expired > low-stock > expiring > in-stock.
func (e *Engine) ItemStatus(p Product) StatusInfo {
	return itemStatuses[e.classify([]Product{p})]
}

// GroupStatus returns the worst status found among the group members.
func (e *Engine) GroupStatus(g Group) StatusInfo {
	return groupStatuses[e.classify(g.Products)]
}

func (e *Engine) classify(products []Product) StatusKind {
	var expired, low, expiring bool
	for _, p := range products {
		expired = expired || e.rules.IsExpired(p.ExpiryDate)
		low = low || p.IsLowStock()
		expiring = expiring || e.rules.IsExpiringSoon(p.ExpiryDate)
	}
	switch {
	case expired:
		return StatusExpired
	case low:
		return StatusLowStock
	case expiring:
		return StatusExpiring
	default:
		return StatusInStock
	}
}
