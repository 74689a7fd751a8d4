// Package profile stores per-user profile fields with field-level merges.
package profile

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// Profile holds the editable user details.
type Profile struct {
	UserID       string    `json:"userId"`
	FullName     string    `json:"fullName"`
	MobileNumber string    `json:"mobileNumber"`
	Location     *string   `json:"location"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Patch carries a partial profile update. Nil fields are preserved.
type Patch struct {
	FullName     *string `json:"fullName,omitempty" validate:"omitempty,max=120"`
	MobileNumber *string `json:"mobileNumber,omitempty" validate:"omitempty,max=32"`
	Location     *string `json:"location,omitempty" validate:"omitempty,max=200"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.FullName == nil && p.MobileNumber == nil && p.Location == nil
}

// Apply merges the patch into prof.
func (p Patch) Apply(prof Profile, now time.Time) Profile {
	if p.FullName != nil {
		prof.FullName = *p.FullName
	}
	if p.MobileNumber != nil {
		prof.MobileNumber = *p.MobileNumber
	}
	if p.Location != nil {
		loc := *p.Location
		prof.Location = &loc
	}
	prof.UpdatedAt = now
	return prof
}

var (
	// ErrNotFound indicates a user without a stored profile.
	ErrNotFound = fmt.Errorf("profile: %w", shared.ErrNotFound)
	// ErrValidation wraps invalid profile input.
	ErrValidation = fmt.Errorf("profile: %w", shared.ErrValidation)
	// ErrUserRequired indicates a call without a user scope.
	ErrUserRequired = fmt.Errorf("profile: %w: user id required", shared.ErrInvalidInput)
)
