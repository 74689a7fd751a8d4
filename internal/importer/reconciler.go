package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/odyssey-erp/odyssey-stock/internal/dates"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
)

const (
	defaultQuantity = 1
	defaultCategory = "GENERAL"
)

// Writer stores a full product record under a caller-chosen key.
type Writer interface {
	WriteAt(ctx context.Context, userID, key string, p inventory.Product) error
}

// Recorder observes finished imports.
type Recorder interface {
	ObserveImport(res Result)
}

// Reconciler validates, coerces and writes raw entries.
type Reconciler struct {
	writer   Writer
	rules    dates.Rules
	logger   *slog.Logger
	recorder Recorder
	clock    func() time.Time
}

// NewReconciler constructs a Reconciler. recorder may be nil.
func NewReconciler(writer Writer, rules dates.Rules, recorder Recorder, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		writer:   writer,
		rules:    rules,
		logger:   logger,
		recorder: recorder,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// ImportJSON decodes payload as a JSON array and imports it. Only a payload
// that is not a JSON array fails as a whole.
func (r *Reconciler) ImportJSON(ctx context.Context, userID string, payload []byte) (Result, error) {
	entries, err := DecodeEntries(payload)
	if err != nil {
		return Result{}, err
	}
	return r.Import(ctx, userID, entries), nil
}

// DecodeEntries parses payload into raw entries. Array elements that are not
// objects decode to nil entries and fail validation individually.
func DecodeEntries(payload []byte) ([]RawEntry, error) {
	trimmed := bytes.TrimSpace(payload)
	if !json.Valid(trimmed) {
		return nil, ErrMalformedPayload
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	entries := make([]RawEntry, len(items))
	for i, item := range items {
		var entry RawEntry
		if err := json.Unmarshal(item, &entry); err == nil {
			entries[i] = entry
		}
	}
	return entries, nil
}

// Import processes entries in order. Invalid entries and rejected writes are
// recorded as failed outcomes and never stop the remaining entries.
func (r *Reconciler) Import(ctx context.Context, userID string, entries []RawEntry) Result {
	res := Result{Outcomes: make([]Outcome, 0, len(entries))}
	now := r.clock()
	for i, entry := range entries {
		p, err := r.coerce(entry, now)
		if err != nil {
			r.logger.Warn("skipping invalid product", slog.Int("index", i), slog.Any("error", err))
			res.add(Outcome{Index: i, Key: p.ProductCode, Kind: OutcomeInvalid, Err: err})
			continue
		}
		if err := r.writer.WriteAt(ctx, userID, p.ProductCode, p); err != nil {
			r.logger.Error("import write failed",
				slog.String("user_id", userID),
				slog.String("product_code", p.ProductCode),
				slog.Any("error", err),
			)
			res.add(Outcome{Index: i, Key: p.ProductCode, Kind: OutcomeWriteFailed, Err: err})
			continue
		}
		res.add(Outcome{Index: i, Key: p.ProductCode, OK: true, Kind: OutcomeWritten})
	}
	r.logger.Info("import finished",
		slog.String("user_id", userID),
		slog.Int("success", res.SuccessCount),
		slog.Int("failed", res.ErrorCount),
	)
	if r.recorder != nil {
		r.recorder.ObserveImport(res)
	}
	return res
}

// coerce turns a raw entry into a product. The returned product carries the
// product code even on error so outcomes can name the entry.
func (r *Reconciler) coerce(entry RawEntry, now time.Time) (inventory.Product, error) {
	var p inventory.Product
	if entry == nil {
		return p, fmt.Errorf("%w: entry is not an object", ErrInvalidField)
	}
	p.ProductCode = text(entry, "productCode")
	p.Name = text(entry, "name")
	switch {
	case p.ProductCode == "":
		return p, fmt.Errorf("%w: productCode", ErrMissingField)
	case p.Name == "":
		return p, fmt.Errorf("%w: name", ErrMissingField)
	}
	if !inventory.ValidKey(p.ProductCode) {
		return p, fmt.Errorf("%w: productCode %q", ErrInvalidField, p.ProductCode)
	}

	raw, ok := entry["price"]
	if !ok || raw == nil || raw == "" {
		return p, fmt.Errorf("%w: price", ErrMissingField)
	}
	price, err := number(raw)
	if err != nil || price < 0 {
		return p, fmt.Errorf("%w: price %v", ErrInvalidField, raw)
	}
	if price == 0 {
		return p, fmt.Errorf("%w: price", ErrMissingField)
	}
	p.Price = price

	if wholesale, err := number(entry["wholesalePrice"]); err == nil && wholesale > 0 {
		p.WholesalePrice = wholesale
	}

	p.Quantity = defaultQuantity
	if v, ok := entry["quantity"]; ok && v != nil {
		if qty, err := cast.ToIntE(truncate(v)); err == nil && qty >= 0 {
			p.Quantity = qty
		}
	}

	p.LowStockThreshold = inventory.DefaultLowStockThreshold
	if threshold, err := cast.ToIntE(truncate(entry["lowStockThreshold"])); err == nil && threshold > 0 {
		p.LowStockThreshold = threshold
	}

	p.Category = text(entry, "category")
	if p.Category == "" {
		p.Category = defaultCategory
	}
	p.ManufactureDate = r.rules.FormatForDisplay(text(entry, "manufactureDate"))
	p.ExpiryDate = r.rules.FormatForDisplay(text(entry, "expiryDate"))
	p.ID = p.ProductCode
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func text(entry RawEntry, field string) string {
	v, ok := entry[field]
	if !ok || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func number(v any) (float64, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, nil
}

// truncate drops the fractional part of numeric input so "12.7" and 12.7
// both count as 12.
func truncate(v any) any {
	switch n := v.(type) {
	case float64:
		return math.Trunc(n)
	case string:
		s := strings.TrimSpace(n)
		if f, err := cast.ToFloat64E(s); err == nil {
			return math.Trunc(f)
		}
		return s
	default:
		return v
	}
}
