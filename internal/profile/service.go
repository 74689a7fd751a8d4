package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Store persists profiles.
type Store interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Merge(ctx context.Context, userID string, patch Patch, now time.Time) (Profile, error)
}

// Service validates and merges profile updates.
type Service struct {
	store    Store
	validate *validator.Validate
	clock    func() time.Time
}

// NewService constructs Service.
func NewService(store Store) *Service {
	return &Service{
		store:    store,
		validate: validator.New(),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the stored profile.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, ErrUserRequired
	}
	return s.store.Get(ctx, userID)
}

// Merge trims the supplied fields and writes only those, leaving the rest of
// the stored profile untouched.
func (s *Service) Merge(ctx context.Context, userID string, patch Patch) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, ErrUserRequired
	}
	patch.FullName = trimmed(patch.FullName)
	patch.MobileNumber = trimmed(patch.MobileNumber)
	patch.Location = trimmed(patch.Location)
	if err := s.validate.Struct(patch); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return Profile{}, fmt.Errorf("%w: %s: %s", ErrValidation, fieldErrs[0].Field(), fieldErrs[0].Tag())
		}
		return Profile{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if patch.Empty() {
		return Profile{}, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	return s.store.Merge(ctx, userID, patch, s.clock())
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
