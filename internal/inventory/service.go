package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// Store is the per-user observable product collection.
type Store interface {
	ReadAll(ctx context.Context, userID string) ([]Product, error)
	Subscribe(ctx context.Context, userID string, onChange func([]Product)) (func(), error)
	Create(ctx context.Context, userID string, p Product) (string, error)
	Update(ctx context.Context, userID, id string, patch Patch) (Product, error)
	Delete(ctx context.Context, userID, id string) error
	WriteAt(ctx context.Context, userID, key string, p Product) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates product CRUD and derived views.
type Service struct {
	store    Store
	engine   *Engine
	audit    AuditPort
	logger   *slog.Logger
	validate *validator.Validate
	clock    func() time.Time
}

// NewService builds Service.
func NewService(store Store, engine *Engine, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		engine:   engine,
		audit:    audit,
		logger:   logger,
		validate: validator.New(),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Engine exposes the aggregation engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Snapshot reads the whole collection for userID.
func (s *Service) Snapshot(ctx context.Context, userID string) ([]Product, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	products, err := s.store.ReadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("inventory: read products: %w", err)
	}
	return products, nil
}

// Subscribe registers onSnapshot for every change of the user's collection.
func (s *Service) Subscribe(ctx context.Context, userID string, onSnapshot func([]Product)) (func(), error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	return s.store.Subscribe(ctx, userID, onSnapshot)
}

// View recomputes the inventory view from a fresh snapshot.
func (s *Service) View(ctx context.Context, userID string, opts FilterOptions) (View, error) {
	products, err := s.Snapshot(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.engine.Build(products, opts), nil
}

// Lookup finds a product by code, including sold items.
func (s *Service) Lookup(ctx context.Context, userID, code string) (LookupResult, error) {
	products, err := s.Snapshot(ctx, userID)
	if err != nil {
		return LookupResult{}, err
	}
	res, ok := LookupByCode(products, code)
	if !ok {
		return LookupResult{}, ErrNotFound
	}
	return res, nil
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (Product, error) {
	if strings.TrimSpace(userID) == "" {
		return Product{}, ErrUserRequired
	}
	input.Name = strings.TrimSpace(input.Name)
	input.ProductCode = strings.TrimSpace(input.ProductCode)
	if err := s.validate.Struct(input); err != nil {
		return Product{}, validationError(err)
	}
	now := s.clock()
	p := Product{
		ProductCode:       input.ProductCode,
		Name:              input.Name,
		Price:             input.Price,
		WholesalePrice:    input.WholesalePrice,
		Quantity:          input.Quantity,
		LowStockThreshold: input.LowStockThreshold,
		Category:          strings.TrimSpace(input.Category),
		ManufactureDate:   s.engine.rules.FormatForDisplay(strings.TrimSpace(input.ManufactureDate)),
		ExpiryDate:        s.engine.rules.FormatForDisplay(strings.TrimSpace(input.ExpiryDate)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if p.ProductCode == "" {
		p.ProductCode = GenerateProductCode(p.Name, now)
	}
	if p.LowStockThreshold <= 0 {
		p.LowStockThreshold = DefaultLowStockThreshold
	}
	id, err := s.store.Create(ctx, userID, p)
	if err != nil {
		return Product{}, fmt.Errorf("inventory: create product: %w", err)
	}
	p.ID = id
	s.record(ctx, userID, "inventory:create", id, map[string]any{"product_code": p.ProductCode, "quantity": p.Quantity})
	return p, nil
}

// Update applies a partial update to an existing product.
func (s *Service) Update(ctx context.Context, userID, id string, patch Patch) (Product, error) {
	if strings.TrimSpace(userID) == "" {
		return Product{}, ErrUserRequired
	}
	if strings.TrimSpace(id) == "" {
		return Product{}, ErrNotFound
	}
	if err := s.validate.Struct(patch); err != nil {
		return Product{}, validationError(err)
	}
	if patch.ExpiryDate != nil {
		v := s.engine.rules.FormatForDisplay(strings.TrimSpace(*patch.ExpiryDate))
		patch.ExpiryDate = &v
	}
	if patch.ManufactureDate != nil {
		v := s.engine.rules.FormatForDisplay(strings.TrimSpace(*patch.ManufactureDate))
		patch.ManufactureDate = &v
	}
	p, err := s.store.Update(ctx, userID, id, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, err
		}
		return Product{}, fmt.Errorf("inventory: update product: %w", err)
	}
	s.record(ctx, userID, "inventory:update", id, map[string]any{"quantity": p.Quantity})
	return p, nil
}

// Delete removes a product on explicit user request.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserRequired
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("inventory: delete product: %w", err)
	}
	s.record(ctx, userID, "inventory:delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, userID, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "product",
		EntityID: id,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, ", "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
