// Package importer reconciles externally supplied product arrays into a
// user's product collection, one full-record write per entry.
package importer

import (
	"encoding/json"
	"fmt"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// RawEntry is one untyped product descriptor as decoded from JSON.
type RawEntry map[string]any

// OutcomeKind classifies the result of one entry.
type OutcomeKind string

const (
	// OutcomeWritten means the entry was stored under its product code.
	OutcomeWritten OutcomeKind = "written"
	// OutcomeInvalid means the entry failed validation and was skipped.
	OutcomeInvalid OutcomeKind = "invalid"
	// OutcomeWriteFailed means the store rejected the write.
	OutcomeWriteFailed OutcomeKind = "write_failed"
)

// Outcome reports what happened to one entry, in input order.
type Outcome struct {
	Index int         `json:"index"`
	Key   string      `json:"key,omitempty"`
	OK    bool        `json:"ok"`
	Kind  OutcomeKind `json:"kind"`
	Err   error       `json:"-"`
}

// MarshalJSON renders Err as a message.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type alias Outcome
	out := struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(o)}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}

// Result aggregates every outcome of one import.
type Result struct {
	Outcomes     []Outcome `json:"outcomes"`
	SuccessCount int       `json:"successCount"`
	ErrorCount   int       `json:"errorCount"`
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.OK {
		r.SuccessCount++
	} else {
		r.ErrorCount++
	}
}

var (
	// ErrMalformedPayload indicates a payload that is not valid JSON.
	ErrMalformedPayload = fmt.Errorf("importer: %w: malformed JSON payload", shared.ErrInvalidInput)
	// ErrNotArray indicates a JSON payload whose top level is not an array.
	ErrNotArray = fmt.Errorf("importer: %w: expected JSON array", shared.ErrInvalidInput)
	// ErrMissingField indicates an entry without a required field.
	ErrMissingField = fmt.Errorf("importer: %w: missing required field", shared.ErrValidation)
	// ErrInvalidField indicates an entry field that cannot be coerced.
	ErrInvalidField = fmt.Errorf("importer: %w: invalid field", shared.ErrValidation)
	// ErrInvalidLink indicates a source link that cannot be resolved.
	ErrInvalidLink = fmt.Errorf("importer: %w: unsupported source link", shared.ErrInvalidInput)
)
