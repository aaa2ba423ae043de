package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/shared"
)

type capturePublisher struct {
	mu   sync.Mutex
	sent []bus.Message
}

func (p *capturePublisher) Send(msg bus.Message) {
	p.mu.Lock()
	p.sent = append(p.sent, msg)
	p.mu.Unlock()
}

func (p *capturePublisher) messages() []bus.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bus.Message, len(p.sent))
	copy(out, p.sent)
	return out
}

func newTestProduct(t *testing.T, svc *Service, stock, reorder float64) Product {
	t.Helper()
	p, err := svc.CreateProduct(CreateProductInput{
		Code:         "PROD-T1",
		Name:         "Ceramic Planter",
		Unit:         "piece",
		CostPrice:    100,
		SellingPrice: 150,
		TaxRate:      14,
		Stock:        stock,
		ReorderLevel: reorder,
	})
	require.NoError(t, err)
	return p
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.CreateProduct(CreateProductInput{Name: "No code"})
	require.Error(t, err)
}

func TestOutboundMovementNeverDrivesStockNegative(t *testing.T) {
	svc := NewService(nil, nil)
	p := newTestProduct(t, svc, 10, 0)

	_, err := svc.UpdateStock(MovementInput{ProductID: p.ID, Quantity: 15, Type: MovementOut})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	got, err := svc.Product(p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, got.StockQuantity, "failed movement must leave stock untouched")
	require.Empty(t, svc.Movements(p.ID), "failed movement must not be recorded")
}

func TestMovementLedgerReplaysToCurrentStock(t *testing.T) {
	svc := NewService(nil, nil)
	p := newTestProduct(t, svc, 10, 0)

	_, err := svc.UpdateStock(MovementInput{ProductID: p.ID, Quantity: 5, Type: MovementIn})
	require.NoError(t, err)
	_, err = svc.UpdateStock(MovementInput{ProductID: p.ID, Quantity: 3, Type: MovementOut})
	require.NoError(t, err)
	got, err := svc.UpdateStock(MovementInput{ProductID: p.ID, Quantity: 20, Type: MovementAdjustment})
	require.NoError(t, err)

	require.EqualValues(t, 20, got.StockQuantity)
	require.Len(t, svc.Movements(p.ID), 3)
}

func TestDuplicateOutboundReferenceDeductsOnce(t *testing.T) {
	svc := NewService(nil, nil)
	p := newTestProduct(t, svc, 10, 0)

	input := MovementInput{
		ProductID:     p.ID,
		Quantity:      4,
		Type:          MovementOut,
		ReferenceType: "sale",
		ReferenceID:   "inv-1",
	}
	_, err := svc.UpdateStock(input)
	require.NoError(t, err)
	got, err := svc.UpdateStock(input)
	require.NoError(t, err)

	require.EqualValues(t, 6, got.StockQuantity, "redelivered movement must not deduct twice")
	require.Len(t, svc.Movements(p.ID), 1)
}

func TestSeparateLinesOfOneReferenceEachDeduct(t *testing.T) {
	svc := NewService(nil, nil)
	p := newTestProduct(t, svc, 10, 0)

	// An invoice can carry the same product on two lines. Both must deduct,
	// while a redelivery of either line must not.
	first := MovementInput{
		ProductID:     p.ID,
		Quantity:      2,
		Type:          MovementOut,
		ReferenceType: "sale",
		ReferenceID:   "inv-1",
		Line:          0,
	}
	second := first
	second.Line = 1

	_, err := svc.UpdateStock(first)
	require.NoError(t, err)
	got, err := svc.UpdateStock(second)
	require.NoError(t, err)
	require.EqualValues(t, 6, got.StockQuantity, "each line must deduct")

	got, err = svc.UpdateStock(first)
	require.NoError(t, err)
	require.EqualValues(t, 6, got.StockQuantity, "redelivered line must not deduct again")
	require.Len(t, svc.Movements(p.ID), 2)
}

func TestReorderLevelBroadcastsAlert(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewService(nil, pub)
	p := newTestProduct(t, svc, 10, 5)

	_, err := svc.UpdateStock(MovementInput{ProductID: p.ID, Quantity: 6, Type: MovementOut})
	require.NoError(t, err)

	sent := pub.messages()
	require.Len(t, sent, 1)
	require.Equal(t, bus.BroadcastAll, sent[0].To)
	require.Equal(t, bus.ActionStockAlert, sent[0].Action)
	alert, ok := sent[0].Payload.(bus.StockAlert)
	require.True(t, ok)
	require.EqualValues(t, 4, alert.CurrentStock)
	require.EqualValues(t, 5, alert.ReorderLevel)
}

func TestHoldsReduceAvailabilityNotOnHand(t *testing.T) {
	svc := NewService(nil, nil)
	p := newTestProduct(t, svc, 10, 0)

	require.NoError(t, svc.Reserve(p.ID, 7, "order-1"))

	available, err := svc.Available(p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, available)

	got, err := svc.Product(p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, got.StockQuantity, "holds must not touch on-hand stock")

	err = svc.Reserve(p.ID, 4, "order-2")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestReleaseRestoresAvailability(t *testing.T) {
	svc := NewService(nil, nil)
	p := newTestProduct(t, svc, 10, 0)

	require.NoError(t, svc.Reserve(p.ID, 7, "order-1"))
	svc.Release("order-1")

	available, err := svc.Available(p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, available)
}

func TestOutboundMovementConsumesMatchingHold(t *testing.T) {
	svc := NewService(nil, nil)
	p := newTestProduct(t, svc, 10, 0)

	require.NoError(t, svc.Reserve(p.ID, 4, "order-1"))
	_, err := svc.UpdateStock(MovementInput{
		ProductID:     p.ID,
		Quantity:      4,
		Type:          MovementOut,
		ReferenceType: "sale",
		ReferenceID:   "order-1",
	})
	require.NoError(t, err)

	// The hold is consumed, not stacked on top of the deduction.
	available, err := svc.Available(p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 6, available)
}

func TestBelowReorderLevelAndValue(t *testing.T) {
	svc := NewService(nil, nil)
	newTestProduct(t, svc, 3, 5)

	low := svc.BelowReorderLevel()
	require.Len(t, low, 1)
	require.InDelta(t, 300, svc.TotalInventoryValue(), 0.001)
}

func TestAllProductsSnapshotIdempotent(t *testing.T) {
	svc := NewService(nil, nil)
	require.NoError(t, svc.Seed())

	first := svc.AllProducts()
	second := svc.AllProducts()
	require.Equal(t, first, second, "reads without intervening mutation must match")
}

func TestGetAllProductsRepliesWithCatalog(t *testing.T) {
	pub := &capturePublisher{}
	svc := NewService(nil, pub)
	p := newTestProduct(t, svc, 10, 0)
	m := NewModule(svc, pub)

	req := bus.New(bus.ModuleSales, bus.ModuleInventory, bus.ActionGetAllProducts, bus.GetAllProducts{})
	require.NoError(t, m.Handle(context.Background(), req))

	sent := pub.messages()
	require.Len(t, sent, 1)
	require.Equal(t, bus.ActionProductListReply, sent[0].Action)
	require.Equal(t, req.ID, sent[0].ReplyTo)
	list, ok := sent[0].Payload.(bus.ProductList)
	require.True(t, ok)
	require.Len(t, list.Products, 1)
	require.Equal(t, p.ID, list.Products[0].ProductID)
	require.EqualValues(t, 10, list.Products[0].Stock)
}

func TestSeedLoadsSampleCatalog(t *testing.T) {
	svc := NewService(nil, nil)
	require.NoError(t, svc.Seed())
	products := svc.AllProducts()
	require.NotEmpty(t, products)
	_, err := svc.ProductByCode("PROD-001")
	require.NoError(t, err)
}
