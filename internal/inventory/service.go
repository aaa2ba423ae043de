package inventory

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/shared"
)

// Publisher is the slice of the bus the service needs for alerts.
type Publisher interface {
	Send(msg bus.Message)
}

// Service owns the product catalog, the movement ledger and the reservation
// holds. No other module touches this state except through messages.
type Service struct {
	logger   *slog.Logger
	pub      Publisher
	validate *validator.Validate
	now      func() time.Time

	mu        sync.Mutex
	products  map[string]*Product
	movements []StockMovement
	holds     map[string]Hold
	applied   map[string]struct{}
}

// NewService builds the inventory service. pub may be nil in tests that do
// not exercise alerts.
func NewService(logger *slog.Logger, pub Publisher) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:   logger.With("module", string(bus.ModuleInventory)),
		pub:      pub,
		validate: validator.New(),
		now:      time.Now,
		products: make(map[string]*Product),
		holds:    make(map[string]Hold),
		applied:  make(map[string]struct{}),
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateProduct adds a catalog item.
func (s *Service) CreateProduct(input CreateProductInput) (Product, error) {
	if err := s.validate.Struct(input); err != nil {
		return Product{}, fmt.Errorf("inventory: create product: %w", err)
	}
	p := &Product{
		ID:            "prod-" + uuid.NewString(),
		Code:          input.Code,
		Name:          input.Name,
		Description:   input.Description,
		Category:      input.Category,
		Unit:          input.Unit,
		CostPrice:     input.CostPrice,
		SellingPrice:  input.SellingPrice,
		TaxRate:       input.TaxRate,
		StockQuantity: input.Stock,
		ReorderLevel:  input.ReorderLevel,
		IsActive:      true,
	}
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	s.logger.Info("created product", "code", p.Code, "id", p.ID)
	return *p, nil
}

// Product returns one product snapshot.
func (s *Service) Product(id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, fmt.Errorf("inventory: product %s: %w", id, shared.ErrNotFound)
	}
	return *p, nil
}

// ProductByCode looks a product up by its catalog code.
func (s *Service) ProductByCode(code string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Code == code {
			return *p, nil
		}
	}
	return Product{}, fmt.Errorf("inventory: product code %s: %w", code, shared.ErrNotFound)
}

// AllProducts returns snapshots of every active product, ordered by code.
func (s *Service) AllProducts() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// UpdateStock applies one movement. Outbound movements fail with
// ErrInsufficientStock before any state change; adjustments set the absolute
// quantity. Every applied movement is appended to the ledger, and reaching
// the reorder level broadcasts a stock alert to all modules.
func (s *Service) UpdateStock(input MovementInput) (Product, error) {
	s.mu.Lock()
	p, ok := s.products[input.ProductID]
	if !ok {
		s.mu.Unlock()
		return Product{}, fmt.Errorf("inventory: product %s: %w", input.ProductID, shared.ErrNotFound)
	}

	// Re-delivered outbound movements must not deduct twice. The line index
	// keeps two legitimate lines for the same product distinct.
	var dedupKey string
	if input.Type == MovementOut && input.ReferenceID != "" {
		dedupKey = fmt.Sprintf("%s|%s|%s|%d", input.ProductID, input.ReferenceType, input.ReferenceID, input.Line)
		if _, seen := s.applied[dedupKey]; seen {
			snapshot := *p
			s.mu.Unlock()
			return snapshot, nil
		}
	}

	newQty := p.StockQuantity
	switch input.Type {
	case MovementIn:
		newQty += input.Quantity
	case MovementOut:
		newQty -= input.Quantity
		if newQty < 0 {
			available := p.StockQuantity
			s.mu.Unlock()
			return Product{}, fmt.Errorf("inventory: %s available %.0f required %.0f: %w",
				p.Name, available, input.Quantity, shared.ErrInsufficientStock)
		}
	case MovementAdjustment:
		newQty = input.Quantity
	default:
		s.mu.Unlock()
		return Product{}, fmt.Errorf("inventory: unknown movement type %q", input.Type)
	}

	movement := StockMovement{
		ID:            "mov-" + uuid.NewString(),
		ProductID:     input.ProductID,
		Type:          input.Type,
		Quantity:      input.Quantity,
		ReferenceType: input.ReferenceType,
		ReferenceID:   input.ReferenceID,
		Notes:         input.Notes,
		Timestamp:     s.now(),
	}
	s.movements = append(s.movements, movement)
	p.StockQuantity = newQty
	if dedupKey != "" {
		s.applied[dedupKey] = struct{}{}
	}
	if input.Type == MovementOut && input.ReferenceID != "" {
		delete(s.holds, holdKey(input.ProductID, input.ReferenceID))
	}
	snapshot := *p
	s.mu.Unlock()

	s.logger.Info("stock updated",
		"product", snapshot.Name, "type", string(input.Type),
		"qty", input.Quantity, "new_qty", newQty)

	if newQty <= snapshot.ReorderLevel {
		s.logger.Warn("product below reorder level",
			"product", snapshot.Name, "stock", newQty, "reorder_level", snapshot.ReorderLevel)
		if s.pub != nil {
			s.pub.Send(bus.New(bus.ModuleInventory, bus.BroadcastAll, bus.ActionStockAlert, bus.StockAlert{
				ProductID:    snapshot.ID,
				ProductName:  snapshot.Name,
				CurrentStock: newQty,
				ReorderLevel: snapshot.ReorderLevel,
			}))
		}
	}
	return snapshot, nil
}

// Reserve places a hold on stock under a reference id. Held quantity counts
// against availability until the hold is released or consumed by the matching
// outbound movement.
func (s *Service) Reserve(productID string, qty float64, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("inventory: product %s: %w", productID, shared.ErrNotFound)
	}
	available := p.StockQuantity - s.heldLocked(productID)
	if available < qty {
		return fmt.Errorf("inventory: %s available %.0f required %.0f: %w",
			p.Name, available, qty, shared.ErrInsufficientStock)
	}
	s.holds[holdKey(productID, referenceID)] = Hold{
		ProductID:   productID,
		Quantity:    qty,
		ReferenceID: referenceID,
		CreatedAt:   s.now(),
	}
	s.logger.Info("reserved stock", "product", p.Name, "qty", qty, "reference", referenceID)
	return nil
}

// Release drops every hold recorded under a reference id.
func (s *Service) Release(referenceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, h := range s.holds {
		if h.ReferenceID == referenceID {
			delete(s.holds, key)
		}
	}
}

// Available returns the quantity a new sale can still claim: on-hand minus holds.
func (s *Service) Available(productID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return 0, fmt.Errorf("inventory: product %s: %w", productID, shared.ErrNotFound)
	}
	return p.StockQuantity - s.heldLocked(productID), nil
}

func (s *Service) heldLocked(productID string) float64 {
	var held float64
	for _, h := range s.holds {
		if h.ProductID == productID {
			held += h.Quantity
		}
	}
	return held
}

func holdKey(productID, referenceID string) string {
	return productID + "|" + referenceID
}

// Movements returns the movement history for one product, oldest first.
func (s *Service) Movements(productID string) []StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StockMovement
	for _, m := range s.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// BelowReorderLevel returns every active product at or below its reorder level.
func (s *Service) BelowReorderLevel() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Product
	for _, p := range s.products {
		if p.IsActive && p.StockQuantity <= p.ReorderLevel {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// TotalInventoryValue sums cost price times on-hand quantity across the catalog.
func (s *Service) TotalInventoryValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, p := range s.products {
		total += p.CostPrice * p.StockQuantity
	}
	return total
}
