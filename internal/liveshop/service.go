package liveshop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/kaia"
	"github.com/haderos-erp/haderos-core/internal/shared"
)

// Messenger is the slice of the bus the orchestrator needs.
type Messenger interface {
	Send(msg bus.Message)
	Request(ctx context.Context, msg bus.Message) (bus.Message, error)
}

// Config tunes the live channel.
type Config struct {
	// CartTTL is how long a cart stays active without checking out.
	CartTTL time.Duration
	// TaxRatePct applies to the discounted subtotal at cart recalculation.
	TaxRatePct float64
}

// DefaultConfig matches the production channel: 30-minute carts, 14% tax.
func DefaultConfig() Config {
	return Config{CartTTL: 30 * time.Minute, TaxRatePct: 14}
}

const requestTimeout = 5 * time.Second

// Shipping fees by delivery region.
const (
	shippingFeeGreaterCairo = 30
	shippingFeeOther        = 50
)

var greaterCairoGovernorates = map[string]bool{
	"Cairo":    true,
	"Giza":     true,
	"Qalyubia": true,
}

// Service orchestrates live sessions, viewer carts and checkout. It behaves
// as a sales client: orders flow to sales and stock holds to inventory via
// messages, and every checkout passes the compliance engine first.
type Service struct {
	logger   *slog.Logger
	bus      Messenger
	engine   *kaia.Engine
	cfg      Config
	validate *validator.Validate
	now      func() time.Time

	sessionSeq *shared.Sequence
	orderSeq   *shared.Sequence

	mu       sync.Mutex
	sessions map[string]*LiveSession
	viewers  map[string]*Viewer
	carts    map[string]*Cart
	orders   map[string]*Order
}

// NewService builds the live-shopping orchestrator.
func NewService(logger *slog.Logger, messenger Messenger, engine *kaia.Engine, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CartTTL <= 0 {
		cfg.CartTTL = DefaultConfig().CartTTL
	}
	if cfg.TaxRatePct <= 0 {
		cfg.TaxRatePct = DefaultConfig().TaxRatePct
	}
	return &Service{
		logger:     logger.With("module", string(bus.ModuleLiveShop)),
		bus:        messenger,
		engine:     engine,
		cfg:        cfg,
		validate:   validator.New(),
		now:        time.Now,
		sessionSeq: shared.NewSequence("LIVE", 4),
		orderSeq:   shared.NewSequence("LIVE-ORD", 5),
		sessions:   make(map[string]*LiveSession),
		viewers:    make(map[string]*Viewer),
		carts:      make(map[string]*Cart),
		orders:     make(map[string]*Order),
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.sessionSeq.WithNow(now)
		s.orderSeq.WithNow(now)
	}
	return s
}

// CreateSession schedules a new session.
func (s *Service) CreateSession(input CreateSessionInput) (LiveSession, error) {
	if err := s.validate.Struct(input); err != nil {
		return LiveSession{}, fmt.Errorf("liveshop: create session: %w", err)
	}
	session := &LiveSession{
		ID:             "session-" + uuid.NewString(),
		Number:         s.sessionSeq.Next(),
		Title:          input.Title,
		Description:    input.Description,
		Platform:       input.Platform,
		HostID:         input.HostID,
		Status:         SessionScheduled,
		ScheduledStart: input.ScheduledStart,
		AllowOrders:    input.AllowOrders,
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	s.logger.Info("created live session", "number", session.Number, "platform", string(input.Platform))
	return s.sessionSnapshot(session.ID)
}

// StartSession moves a session to live exactly once and asks inventory to
// pre-stage its products.
func (s *Service) StartSession(sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("liveshop: session %s: %w", sessionID, shared.ErrNotFound)
	}
	if session.Status != SessionScheduled {
		status := session.Status
		s.mu.Unlock()
		return fmt.Errorf("liveshop: session %s is %s, cannot start", sessionID, status)
	}
	session.Status = SessionLive
	session.ActualStart = s.now()
	productIDs := make([]string, 0, len(session.Products))
	for _, p := range session.Products {
		productIDs = append(productIDs, p.ProductID)
	}
	number := session.Number
	s.mu.Unlock()

	s.logger.Info("started live session", "number", number)
	s.bus.Send(bus.New(bus.ModuleLiveShop, bus.ModuleInventory, bus.ActionPrepareProducts, bus.PrepareProducts{
		SessionID:  sessionID,
		ProductIDs: productIDs,
	}))
	return nil
}

// EndSession closes a live session.
func (s *Service) EndSession(sessionID string) error {
	return s.finishSession(sessionID, SessionEnded)
}

// CancelSession cancels a session. It only changes the session's own status;
// carts and holds are left to expiry.
func (s *Service) CancelSession(sessionID string) error {
	return s.finishSession(sessionID, SessionCancelled)
}

func (s *Service) finishSession(sessionID string, terminal SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("liveshop: session %s: %w", sessionID, shared.ErrNotFound)
	}
	if session.Status == SessionEnded || session.Status == SessionCancelled {
		return fmt.Errorf("liveshop: session %s already %s", sessionID, session.Status)
	}
	session.Status = terminal
	session.EndedAt = s.now()
	s.logger.Info("session finished", "number", session.Number, "status", string(terminal))
	return nil
}

// AddProductToSession exposes a product in the session at the next display slot.
func (s *Service) AddProductToSession(ctx context.Context, sessionID, productID string, opts SessionProductOptions) (SessionProduct, error) {
	product, err := s.productDetails(ctx, productID)
	if err != nil {
		return SessionProduct{}, err
	}
	if !product.Found {
		return SessionProduct{}, fmt.Errorf("liveshop: product %s: %w", productID, shared.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return SessionProduct{}, fmt.Errorf("liveshop: session %s: %w", sessionID, shared.ErrNotFound)
	}
	sp := &SessionProduct{
		ID:              "sp-" + uuid.NewString(),
		SessionID:       sessionID,
		ProductID:       productID,
		DisplayOrder:    len(session.Products),
		LivePrice:       opts.LivePrice,
		LiveDiscountPct: opts.LiveDiscountPct,
		LimitedQuantity: opts.LimitedQuantity,
	}
	session.Products = append(session.Products, sp)
	s.logger.Info("added product to session", "session", session.Number, "product", productID)
	return *sp, nil
}

// ShowProduct puts one product in the spotlight. The spotlight is exclusive:
// any currently-showing product is un-shown first.
func (s *Service) ShowProduct(sessionID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("liveshop: session %s: %w", sessionID, shared.ErrNotFound)
	}
	var target *SessionProduct
	for _, p := range session.Products {
		if p.ProductID == productID {
			target = p
			break
		}
	}
	if target == nil {
		return fmt.Errorf("liveshop: product %s not in session %s: %w", productID, sessionID, shared.ErrNotFound)
	}
	now := s.now()
	for _, p := range session.Products {
		if p.IsCurrentlyShowing {
			p.IsCurrentlyShowing = false
			p.ShowEndTime = now
		}
	}
	target.IsCurrentlyShowing = true
	target.ShowStartTime = now
	target.ViewCount++
	s.logger.Info("now showing", "session", session.Number, "product", productID)
	return nil
}

// AddViewer registers an audience member and maintains the peak high-water mark.
func (s *Service) AddViewer(sessionID string, input AddViewerInput) (Viewer, error) {
	if err := s.validate.Struct(input); err != nil {
		return Viewer{}, fmt.Errorf("liveshop: add viewer: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return Viewer{}, fmt.Errorf("liveshop: session %s: %w", sessionID, shared.ErrNotFound)
	}
	viewer := &Viewer{
		ID:        "viewer-" + uuid.NewString(),
		SessionID: sessionID,
		Name:      input.Name,
		Platform:  input.Platform,
		JoinedAt:  s.now(),
		IsActive:  true,
	}
	s.viewers[viewer.ID] = viewer
	session.ViewersCount++
	if session.ViewersCount > session.PeakViewers {
		session.PeakViewers = session.ViewersCount
	}
	s.logger.Info("viewer joined", "session", session.Number, "viewer", viewer.Name)
	return *viewer, nil
}

// AddToCart merges a line into the viewer's active cart after revalidating
// warehouse stock and the session-scoped remaining allocation.
func (s *Service) AddToCart(ctx context.Context, viewerID, productID string, quantity int) (Cart, error) {
	if quantity <= 0 {
		return Cart{}, fmt.Errorf("liveshop: quantity must be positive")
	}

	s.mu.Lock()
	viewer, ok := s.viewers[viewerID]
	if !ok {
		s.mu.Unlock()
		return Cart{}, fmt.Errorf("liveshop: viewer %s: %w", viewerID, shared.ErrNotFound)
	}
	session, ok := s.sessions[viewer.SessionID]
	if !ok {
		s.mu.Unlock()
		return Cart{}, fmt.Errorf("liveshop: session %s: %w", viewer.SessionID, shared.ErrNotFound)
	}
	if session.Status != SessionLive {
		s.mu.Unlock()
		return Cart{}, fmt.Errorf("liveshop: session %s: %w", session.Number, shared.ErrSessionNotLive)
	}
	if !session.AllowOrders {
		s.mu.Unlock()
		return Cart{}, fmt.Errorf("liveshop: session %s: %w", session.Number, shared.ErrOrdersDisabled)
	}
	sessionProduct := findSessionProduct(session, productID)
	sessionID := session.ID
	s.mu.Unlock()

	// Cart quantities already placed for this product count against the
	// session allocation as well as new demand.
	product, err := s.productDetails(ctx, productID)
	if err != nil {
		return Cart{}, err
	}
	if !product.Found {
		return Cart{}, fmt.Errorf("liveshop: product %s: %w", productID, shared.ErrNotFound)
	}
	if product.Stock < float64(quantity) {
		return Cart{}, fmt.Errorf("liveshop: %s stock %.0f required %d: %w",
			product.Name, product.Stock, quantity, shared.ErrInsufficientStock)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.activeCartLocked(viewerID)
	if cart == nil {
		cart = &Cart{
			ID:        "cart-" + uuid.NewString(),
			SessionID: sessionID,
			ViewerID:  viewerID,
			Status:    CartActive,
			ExpiresAt: s.now().Add(s.cfg.CartTTL),
		}
		s.carts[cart.ID] = cart
	}

	if sessionProduct != nil && sessionProduct.LimitedQuantity > 0 {
		remaining := sessionProduct.LimitedQuantity - sessionProduct.SoldQuantity
		inCart := 0
		for _, item := range cart.Items {
			if item.ProductID == productID {
				inCart = item.Quantity
			}
		}
		if quantity+inCart > remaining {
			return Cart{}, fmt.Errorf("liveshop: only %d units available for this live session: %w",
				remaining, shared.ErrLimitedQuantity)
		}
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		item := CartItem{
			ProductID:   productID,
			ProductName: product.Name,
			Quantity:    quantity,
			UnitPrice:   product.SellingPrice,
		}
		if sessionProduct != nil {
			item.LivePrice = sessionProduct.LivePrice
			item.DiscountPct = sessionProduct.LiveDiscountPct
		}
		cart.Items = append(cart.Items, item)
	}

	s.recalculateLocked(cart)

	if sessionProduct != nil {
		sessionProduct.AddToCartCount++
	}
	s.logger.Info("added to cart", "viewer", viewerID, "product", productID, "qty", quantity)
	return snapshotCart(cart), nil
}

// recalculateLocked recomputes every cart total from scratch to avoid drift.
func (s *Service) recalculateLocked(cart *Cart) {
	var subtotal, discount float64
	for _, item := range cart.Items {
		price := item.UnitPrice
		if item.LivePrice > 0 {
			price = item.LivePrice
		}
		subtotal += price * float64(item.Quantity)
		if item.DiscountPct > 0 {
			discount += item.UnitPrice * float64(item.Quantity) * item.DiscountPct / 100
		}
	}
	cart.Subtotal = shared.Round2(subtotal)
	cart.Discount = shared.Round2(discount)
	cart.Tax = shared.Round2((cart.Subtotal - cart.Discount) * s.cfg.TaxRatePct / 100)
	cart.Total = shared.Round2(cart.Subtotal - cart.Discount + cart.Tax)
}

// Checkout turns an active cart into an order. The compliance engine sees the
// assembled order payload first; a failed verdict rejects the checkout.
func (s *Service) Checkout(ctx context.Context, cartID string, delivery DeliveryInfo) (Order, error) {
	if err := s.validate.Struct(delivery); err != nil {
		return Order{}, fmt.Errorf("liveshop: checkout: %w", err)
	}

	s.mu.Lock()
	cart, ok := s.carts[cartID]
	if !ok {
		s.mu.Unlock()
		return Order{}, fmt.Errorf("liveshop: cart %s: %w", cartID, shared.ErrNotFound)
	}
	if cart.Status != CartActive {
		s.mu.Unlock()
		return Order{}, fmt.Errorf("liveshop: cart %s: %w", cartID, shared.ErrCartInactive)
	}
	if s.now().After(cart.ExpiresAt) {
		cart.Status = CartAbandoned
		s.mu.Unlock()
		return Order{}, fmt.Errorf("liveshop: cart %s: %w", cartID, shared.ErrCartInactive)
	}
	session, ok := s.sessions[cart.SessionID]
	if !ok {
		s.mu.Unlock()
		return Order{}, fmt.Errorf("liveshop: session %s: %w", cart.SessionID, shared.ErrNotFound)
	}
	viewer, ok := s.viewers[cart.ViewerID]
	if !ok {
		s.mu.Unlock()
		return Order{}, fmt.Errorf("liveshop: viewer %s: %w", cart.ViewerID, shared.ErrNotFound)
	}

	validation := s.engine.ValidateTransaction(s.orderTransaction(cart), "live_order")
	if !validation.Passed {
		summary := s.engine.Summary(validation)
		s.mu.Unlock()
		s.bus.Send(bus.New(bus.ModuleLiveShop, bus.ModuleLearning, bus.ActionLogLearningEvent, bus.LogLearningEvent{
			Module:    string(bus.ModuleLiveShop),
			EventType: "checkout_rejected",
			Category:  "validation",
			Severity:  "warning",
			Data:      map[string]any{"cart_id": cartID, "summary": summary},
		}))
		return Order{}, fmt.Errorf("liveshop: %s: %w", summary, shared.ErrComplianceRejected)
	}

	shippingFee := shippingFor(delivery.Governorate)
	order := &Order{
		ID:            "order-" + uuid.NewString(),
		Number:        s.orderSeq.Next(),
		SessionID:     cart.SessionID,
		ViewerID:      cart.ViewerID,
		CustomerName:  delivery.CustomerName,
		CustomerPhone: delivery.CustomerPhone,
		Address:       delivery.Address,
		City:          delivery.City,
		Governorate:   delivery.Governorate,
		Items:         append([]CartItem(nil), cart.Items...),
		Subtotal:      cart.Subtotal,
		Discount:      cart.Discount,
		Tax:           cart.Tax,
		ShippingFee:   shippingFee,
		Total:         shared.Round2(cart.Total + shippingFee),
		PaymentMethod: delivery.PaymentMethod,
		Status:        OrderPending,
		OrderedAt:     s.now(),
	}
	s.orders[order.ID] = order
	cart.Status = CartCheckedOut

	session.TotalOrders++
	session.TotalRevenue = shared.Round2(session.TotalRevenue + order.Total)
	viewer.OrdersCount++
	viewer.TotalSpent = shared.Round2(viewer.TotalSpent + order.Total)
	for _, item := range cart.Items {
		if sp := findSessionProduct(session, item.ProductID); sp != nil {
			sp.PurchaseCount++
			sp.SoldQuantity += item.Quantity
		}
	}
	number := order.Number
	s.mu.Unlock()

	s.logger.Info("created live order", "number", number, "total", order.Total)

	for _, item := range order.Items {
		s.bus.Send(bus.New(bus.ModuleLiveShop, bus.ModuleInventory, bus.ActionReserveStock, bus.ReserveStock{
			ProductID:   item.ProductID,
			Quantity:    float64(item.Quantity),
			ReferenceID: order.ID,
		}))
	}
	s.bus.Send(bus.New(bus.ModuleLiveShop, bus.ModuleSales, bus.ActionLiveOrderCreated, bus.LiveOrderCreated{
		OrderID:      order.ID,
		OrderNumber:  order.Number,
		SessionID:    order.SessionID,
		CustomerName: order.CustomerName,
		Total:        order.Total,
	}))

	return snapshotOrder(order), nil
}

// orderTransaction maps a cart onto the compliance payload shape. Item names
// feed the description so product-level rules can see them.
func (s *Service) orderTransaction(cart *Cart) kaia.Transaction {
	names := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		names = append(names, item.ProductName)
	}
	rate := s.cfg.TaxRatePct
	return kaia.Transaction{
		ID:              cart.ID,
		Description:     fmt.Sprintf("Live order: %s", strings.Join(names, ", ")),
		ReferenceNumber: cart.ID,
		Subtotal:        shared.Round2(cart.Subtotal - cart.Discount),
		TaxRate:         &rate,
		TaxAmount:       cart.Tax,
		TotalAmount:     cart.Total,
	}
}

// ExpireCarts abandons every active cart past its expiry and returns how many
// were swept. No formal reservation is released; carts never held stock.
func (s *Service) ExpireCarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	expired := 0
	for _, cart := range s.carts {
		if cart.Status == CartActive && now.After(cart.ExpiresAt) {
			cart.Status = CartAbandoned
			expired++
		}
	}
	if expired > 0 {
		s.logger.Info("expired carts", "count", expired)
	}
	return expired
}

// Stats returns the aggregate snapshot for one session.
func (s *Service) Stats(sessionID string) (SessionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return SessionStats{}, fmt.Errorf("liveshop: session %s: %w", sessionID, shared.ErrNotFound)
	}
	stats := SessionStats{
		SessionNumber: session.Number,
		Status:        session.Status,
		ViewersCount:  session.ViewersCount,
		PeakViewers:   session.PeakViewers,
		TotalOrders:   session.TotalOrders,
		TotalRevenue:  session.TotalRevenue,
		ProductsShown: len(session.Products),
	}
	if session.ViewersCount > 0 {
		stats.ConversionRate = float64(session.TotalOrders) / float64(session.ViewersCount) * 100
	}
	return stats, nil
}

// Session returns one session snapshot.
func (s *Service) Session(sessionID string) (LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionSnapshotLocked(sessionID)
}

// Cart returns one cart snapshot.
func (s *Service) Cart(cartID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[cartID]
	if !ok {
		return Cart{}, fmt.Errorf("liveshop: cart %s: %w", cartID, shared.ErrNotFound)
	}
	return snapshotCart(cart), nil
}

// Order returns one order snapshot.
func (s *Service) Order(orderID string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return Order{}, fmt.Errorf("liveshop: order %s: %w", orderID, shared.ErrNotFound)
	}
	return snapshotOrder(order), nil
}

func (s *Service) sessionSnapshot(sessionID string) (LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionSnapshotLocked(sessionID)
}

func (s *Service) sessionSnapshotLocked(sessionID string) (LiveSession, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return LiveSession{}, fmt.Errorf("liveshop: session %s: %w", sessionID, shared.ErrNotFound)
	}
	snapshot := *session
	snapshot.Products = make([]*SessionProduct, len(session.Products))
	for i, p := range session.Products {
		copied := *p
		snapshot.Products[i] = &copied
	}
	return snapshot, nil
}

func (s *Service) activeCartLocked(viewerID string) *Cart {
	for _, cart := range s.carts {
		if cart.ViewerID == viewerID && cart.Status == CartActive {
			if s.now().After(cart.ExpiresAt) {
				cart.Status = CartAbandoned
				continue
			}
			return cart
		}
	}
	return nil
}

// productDetails asks inventory for a real product snapshot and waits for the
// reply.
func (s *Service) productDetails(ctx context.Context, productID string) (bus.ProductSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	reply, err := s.bus.Request(ctx, bus.New(bus.ModuleLiveShop, bus.ModuleInventory, bus.ActionGetProduct, bus.GetProduct{
		ProductID: productID,
	}))
	if err != nil {
		return bus.ProductSnapshot{}, fmt.Errorf("liveshop: product lookup %s: %w", productID, err)
	}
	snapshot, ok := reply.Payload.(bus.ProductSnapshot)
	if !ok {
		return bus.ProductSnapshot{}, bus.BadPayload(reply)
	}
	return snapshot, nil
}

func findSessionProduct(session *LiveSession, productID string) *SessionProduct {
	for _, p := range session.Products {
		if p.ProductID == productID {
			return p
		}
	}
	return nil
}

func shippingFor(governorate string) float64 {
	if greaterCairoGovernorates[governorate] {
		return shippingFeeGreaterCairo
	}
	return shippingFeeOther
}

func snapshotCart(cart *Cart) Cart {
	snapshot := *cart
	snapshot.Items = append([]CartItem(nil), cart.Items...)
	return snapshot
}

func snapshotOrder(order *Order) Order {
	snapshot := *order
	snapshot.Items = append([]CartItem(nil), order.Items...)
	return snapshot
}
