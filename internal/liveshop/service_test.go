package liveshop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/kaia"
	"github.com/haderos-erp/haderos-core/internal/shared"
)

// fakeMessenger answers product lookups from a scripted catalog and records
// every fire-and-forget send.
type fakeMessenger struct {
	mu       sync.Mutex
	sent     []bus.Message
	products map[string]bus.ProductSnapshot
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{products: make(map[string]bus.ProductSnapshot)}
}

func (m *fakeMessenger) addProduct(id, name string, price, stock float64) {
	m.products[id] = bus.ProductSnapshot{
		Found:        true,
		ProductID:    id,
		Name:         name,
		SellingPrice: price,
		TaxRate:      14,
		Stock:        stock,
	}
}

func (m *fakeMessenger) Send(msg bus.Message) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
}

func (m *fakeMessenger) Request(_ context.Context, msg bus.Message) (bus.Message, error) {
	payload, ok := msg.Payload.(bus.GetProduct)
	if !ok {
		return bus.Message{}, bus.BadPayload(msg)
	}
	m.mu.Lock()
	snapshot := m.products[payload.ProductID]
	m.mu.Unlock()
	snapshot.ProductID = payload.ProductID
	return msg.Reply(bus.ActionProductReply, snapshot), nil
}

func (m *fakeMessenger) byAction(action bus.Action) []bus.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []bus.Message
	for _, msg := range m.sent {
		if msg.Action == action {
			out = append(out, msg)
		}
	}
	return out
}

type fixture struct {
	svc     *Service
	msgr    *fakeMessenger
	session LiveSession
	clock   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	msgr := newFakeMessenger()
	msgr.addProduct("prod-1", "Ceramic Planter", 150, 100)
	msgr.addProduct("prod-2", "Olive Wood Bowl", 200, 50)

	now := time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC)
	clock := &now
	svc := NewService(nil, msgr, kaia.NewEngine(), DefaultConfig()).
		WithNow(func() time.Time { return *clock })

	session, err := svc.CreateSession(CreateSessionInput{
		Title:       "Friday Home Decor Live",
		Platform:    PlatformYouTube,
		HostID:      "host-1",
		AllowOrders: true,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, msgr: msgr, session: session, clock: clock}
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) startWithProducts(t *testing.T, productIDs ...string) {
	t.Helper()
	for _, id := range productIDs {
		_, err := f.svc.AddProductToSession(context.Background(), f.session.ID, id, SessionProductOptions{})
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.StartSession(f.session.ID))
}

func (f *fixture) joinViewer(t *testing.T) Viewer {
	t.Helper()
	viewer, err := f.svc.AddViewer(f.session.ID, AddViewerInput{Name: "Mona", Platform: PlatformYouTube})
	require.NoError(t, err)
	return viewer
}

func delivery() DeliveryInfo {
	return DeliveryInfo{
		CustomerName:  "Mona Hassan",
		CustomerPhone: "01000000000",
		Address:       "12 Tahrir St",
		City:          "Cairo",
		Governorate:   "Cairo",
		PaymentMethod: PaymentCOD,
	}
}

func TestSessionLifecycleIsOneWay(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1")

	err := f.svc.StartSession(f.session.ID)
	require.Error(t, err, "a live session cannot be started again")

	require.NoError(t, f.svc.EndSession(f.session.ID))
	err = f.svc.EndSession(f.session.ID)
	require.Error(t, err, "an ended session stays ended")
}

func TestStartSessionAsksInventoryToPrepare(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1", "prod-2")

	prepared := f.msgr.byAction(bus.ActionPrepareProducts)
	require.Len(t, prepared, 1)
	payload, ok := prepared[0].Payload.(bus.PrepareProducts)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"prod-1", "prod-2"}, payload.ProductIDs)
}

func TestAddUnknownProductToSessionFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddProductToSession(context.Background(), f.session.ID, "prod-missing", SessionProductOptions{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSpotlightIsExclusive(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1", "prod-2")

	require.NoError(t, f.svc.ShowProduct(f.session.ID, "prod-1"))
	require.NoError(t, f.svc.ShowProduct(f.session.ID, "prod-2"))

	session, err := f.svc.Session(f.session.ID)
	require.NoError(t, err)
	var showing []string
	for _, p := range session.Products {
		if p.IsCurrentlyShowing {
			showing = append(showing, p.ProductID)
		}
		if p.ProductID == "prod-1" {
			require.False(t, p.ShowEndTime.IsZero(), "un-shown product records its end time")
			require.Equal(t, 1, p.ViewCount)
		}
	}
	require.Equal(t, []string{"prod-2"}, showing)
}

func TestPeakViewersHighWaterMark(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1")
	f.joinViewer(t)
	f.joinViewer(t)
	f.joinViewer(t)

	session, err := f.svc.Session(f.session.ID)
	require.NoError(t, err)
	require.Equal(t, 3, session.ViewersCount)
	require.Equal(t, 3, session.PeakViewers)
}

func TestAddToCartRequiresLiveSessionAcceptingOrders(t *testing.T) {
	f := newFixture(t)
	viewer, err := f.svc.AddViewer(f.session.ID, AddViewerInput{Name: "Mona", Platform: PlatformYouTube})
	require.NoError(t, err)

	_, err = f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 1)
	require.ErrorIs(t, err, shared.ErrSessionNotLive)
}

func TestAddToCartComputesTotals(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddProductToSession(context.Background(), f.session.ID, "prod-1", SessionProductOptions{LiveDiscountPct: 10})
	require.NoError(t, err)
	require.NoError(t, f.svc.StartSession(f.session.ID))
	viewer := f.joinViewer(t)

	cart, err := f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 2)
	require.NoError(t, err)
	require.InDelta(t, 300, cart.Subtotal, 0.001)
	require.InDelta(t, 30, cart.Discount, 0.001)
	require.InDelta(t, 37.8, cart.Tax, 0.001)
	require.InDelta(t, 307.8, cart.Total, 0.001)

	// Merging into the same line recomputes from scratch.
	cart, err = f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 3, cart.Items[0].Quantity)
	require.InDelta(t, 450, cart.Subtotal, 0.001)
}

func TestAddToCartEnforcesLimitedQuantity(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddProductToSession(context.Background(), f.session.ID, "prod-1", SessionProductOptions{LimitedQuantity: 5})
	require.NoError(t, err)
	require.NoError(t, f.svc.StartSession(f.session.ID))
	viewer := f.joinViewer(t)

	_, err = f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 3)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 3)
	require.ErrorIs(t, err, shared.ErrLimitedQuantity, "cart contents count against the session allocation")
}

func TestAddToCartChecksWarehouseStock(t *testing.T) {
	f := newFixture(t)
	f.msgr.addProduct("prod-3", "Scarce Vase", 90, 1)
	f.startWithProducts(t, "prod-3")
	viewer := f.joinViewer(t)

	_, err := f.svc.AddToCart(context.Background(), viewer.ID, "prod-3", 2)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestCheckoutCreatesOrderAndNotifies(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddProductToSession(context.Background(), f.session.ID, "prod-1", SessionProductOptions{LimitedQuantity: 5})
	require.NoError(t, err)
	require.NoError(t, f.svc.StartSession(f.session.ID))
	viewer := f.joinViewer(t)

	cart, err := f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 2)
	require.NoError(t, err)

	order, err := f.svc.Checkout(context.Background(), cart.ID, delivery())
	require.NoError(t, err)
	require.Regexp(t, `^LIVE-ORD-\d{4}-00001$`, order.Number)
	require.InDelta(t, 30, order.ShippingFee, 0.001, "Cairo ships at the reduced fee")
	require.InDelta(t, cart.Total+30, order.Total, 0.001)
	require.Equal(t, OrderPending, order.Status)

	reserves := f.msgr.byAction(bus.ActionReserveStock)
	require.Len(t, reserves, 1)
	reserve, ok := reserves[0].Payload.(bus.ReserveStock)
	require.True(t, ok)
	require.Equal(t, order.ID, reserve.ReferenceID)
	require.EqualValues(t, 2, reserve.Quantity)

	created := f.msgr.byAction(bus.ActionLiveOrderCreated)
	require.Len(t, created, 1)
	require.Equal(t, bus.ModuleSales, created[0].To)

	session, err := f.svc.Session(f.session.ID)
	require.NoError(t, err)
	require.Equal(t, 1, session.TotalOrders)
	require.InDelta(t, order.Total, session.TotalRevenue, 0.001)
	require.Equal(t, 2, session.Products[0].SoldQuantity)

	// The cart is spent.
	_, err = f.svc.Checkout(context.Background(), cart.ID, delivery())
	require.ErrorIs(t, err, shared.ErrCartInactive)
}

func TestCheckoutOutsideGreaterCairoShipsHigher(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1")
	viewer := f.joinViewer(t)
	cart, err := f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 1)
	require.NoError(t, err)

	info := delivery()
	info.City = "Alexandria"
	info.Governorate = "Alexandria"
	order, err := f.svc.Checkout(context.Background(), cart.ID, info)
	require.NoError(t, err)
	require.InDelta(t, 50, order.ShippingFee, 0.001)
}

func TestCheckoutRejectsProhibitedProducts(t *testing.T) {
	f := newFixture(t)
	f.msgr.addProduct("prod-4", "Tobacco Pipe Set", 300, 20)
	f.startWithProducts(t, "prod-4")
	viewer := f.joinViewer(t)
	cart, err := f.svc.AddToCart(context.Background(), viewer.ID, "prod-4", 1)
	require.NoError(t, err)

	_, err = f.svc.Checkout(context.Background(), cart.ID, delivery())
	require.ErrorIs(t, err, shared.ErrComplianceRejected)

	events := f.msgr.byAction(bus.ActionLogLearningEvent)
	require.Len(t, events, 1)
	require.Equal(t, bus.ModuleLearning, events[0].To)

	got, err := f.svc.Cart(cart.ID)
	require.NoError(t, err)
	require.Equal(t, CartActive, got.Status, "a rejected checkout leaves the cart usable")
	require.Empty(t, f.msgr.byAction(bus.ActionReserveStock))
}

func TestCheckoutExpiredCartRejected(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1")
	viewer := f.joinViewer(t)
	cart, err := f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 1)
	require.NoError(t, err)

	f.advance(31 * time.Minute)
	_, err = f.svc.Checkout(context.Background(), cart.ID, delivery())
	require.ErrorIs(t, err, shared.ErrCartInactive)
}

func TestExpireCartsSweepsOnlyStaleCarts(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1")
	early := f.joinViewer(t)
	_, err := f.svc.AddToCart(context.Background(), early.ID, "prod-1", 1)
	require.NoError(t, err)

	f.advance(20 * time.Minute)
	late := f.joinViewer(t)
	lateCart, err := f.svc.AddToCart(context.Background(), late.ID, "prod-1", 1)
	require.NoError(t, err)

	f.advance(15 * time.Minute) // early cart is 35m old, late cart 15m
	require.Equal(t, 1, f.svc.ExpireCarts())
	require.Equal(t, 0, f.svc.ExpireCarts(), "sweep is idempotent")

	got, err := f.svc.Cart(lateCart.ID)
	require.NoError(t, err)
	require.Equal(t, CartActive, got.Status)
}

func TestAbandonedCartGetsReplacement(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1")
	viewer := f.joinViewer(t)
	first, err := f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 1)
	require.NoError(t, err)

	f.advance(31 * time.Minute)
	second, err := f.svc.AddToCart(context.Background(), viewer.ID, "prod-1", 1)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID, "an expired cart is abandoned, not reused")
	require.Len(t, second.Items, 1)
	require.Equal(t, 1, second.Items[0].Quantity)
}

func TestSessionStatsConversionRate(t *testing.T) {
	f := newFixture(t)
	f.startWithProducts(t, "prod-1")
	buyer := f.joinViewer(t)
	f.joinViewer(t)
	f.joinViewer(t)
	f.joinViewer(t)

	cart, err := f.svc.AddToCart(context.Background(), buyer.ID, "prod-1", 1)
	require.NoError(t, err)
	_, err = f.svc.Checkout(context.Background(), cart.ID, delivery())
	require.NoError(t, err)

	stats, err := f.svc.Stats(f.session.ID)
	require.NoError(t, err)
	require.Equal(t, 4, stats.ViewersCount)
	require.Equal(t, 1, stats.TotalOrders)
	require.InDelta(t, 25, stats.ConversionRate, 0.001)
}

func TestSessionNumbering(t *testing.T) {
	f := newFixture(t)
	second, err := f.svc.CreateSession(CreateSessionInput{
		Title:    "Saturday Kitchen Live",
		Platform: PlatformBoth,
		HostID:   "host-1",
	})
	require.NoError(t, err)
	require.Regexp(t, `^LIVE-\d{4}-0001$`, f.session.Number)
	require.Regexp(t, `^LIVE-\d{4}-0002$`, second.Number)
}
