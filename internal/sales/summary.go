package sales

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Summary aggregates the sales inside one window.
type Summary struct {
	Window             Window  `json:"window"`
	Records            []Sale  `json:"records"`
	TotalRevenue       float64 `json:"totalRevenue"`
	TotalProfit        float64 `json:"totalProfit"`
	TransactionCount   int     `json:"transactionCount"`
	AverageTransaction float64 `json:"averageTransaction"`
}

// Summarize filters sales to the window around now, orders them most recent
// first and totals them. Amounts are rounded to cents here so summarising a
// summary's records again yields the same figures.
func Summarize(sales []Sale, window Window, now time.Time) Summary {
	keep := windowPredicate(window, now)
	records := []Sale{}
	for _, s := range sales {
		if keep(s.SaleDate) {
			records = append(records, s)
		}
	}
	slices.SortStableFunc(records, func(a, b Sale) int {
		return b.SaleDate.Compare(a.SaleDate)
	})

	revenue := decimal.Zero
	profit := decimal.Zero
	for _, s := range records {
		revenue = revenue.Add(decimal.NewFromFloat(s.TotalAmount))
		profit = profit.Add(decimal.NewFromFloat(s.Profit))
	}
	revenue = revenue.Round(2)
	profit = profit.Round(2)

	sum := Summary{
		Window:           window,
		Records:          records,
		TotalRevenue:     revenue.InexactFloat64(),
		TotalProfit:      profit.InexactFloat64(),
		TransactionCount: len(records),
	}
	if n := len(records); n > 0 {
		sum.AverageTransaction = revenue.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
	}
	return sum
}

func windowPredicate(window Window, now time.Time) func(time.Time) bool {
	loc := now.Location()
	switch window {
	case WindowToday:
		y, m, d := now.Date()
		return func(t time.Time) bool {
			ty, tm, td := t.In(loc).Date()
			return ty == y && tm == m && td == d
		}
	case WindowWeek:
		start := weekStart(now)
		return func(t time.Time) bool {
			t = t.In(loc)
			return weekStart(t).Equal(start) && t.Year() == now.Year()
		}
	case WindowMonth:
		y, m, _ := now.Date()
		return func(t time.Time) bool {
			ty, tm, _ := t.In(loc).Date()
			return ty == y && tm == m
		}
	default:
		return func(time.Time) bool { return true }
	}
}

// weekStart returns midnight of the Monday starting t's week. Sunday belongs
// to the week that began six days earlier.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
