package liveshop

import "time"

// Platform identifies the streaming destination of a session.
type Platform string

const (
	PlatformYouTube  Platform = "youtube"
	PlatformFacebook Platform = "facebook"
	PlatformBoth     Platform = "both"
)

// SessionStatus tracks a session through its one-way state machine:
// scheduled -> live -> {ended, cancelled}.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionLive      SessionStatus = "live"
	SessionEnded     SessionStatus = "ended"
	SessionCancelled SessionStatus = "cancelled"
)

// LiveSession is one live-stream shopping event.
type LiveSession struct {
	ID             string
	Number         string
	Title          string
	Description    string
	Platform       Platform
	HostID         string
	Status         SessionStatus
	ScheduledStart time.Time
	ActualStart    time.Time
	EndedAt        time.Time
	ViewersCount   int
	PeakViewers    int
	TotalOrders    int
	TotalRevenue   float64
	AllowOrders    bool
	Products       []*SessionProduct
}

// SessionProduct is one product's exposure within one session. SoldQuantity
// never exceeds LimitedQuantity when a limit is set.
type SessionProduct struct {
	ID                 string
	SessionID          string
	ProductID          string
	DisplayOrder       int
	IsCurrentlyShowing bool
	ShowStartTime      time.Time
	ShowEndTime        time.Time
	LivePrice          float64
	LiveDiscountPct    float64
	LimitedQuantity    int
	SoldQuantity       int
	ViewCount          int
	AddToCartCount     int
	PurchaseCount      int
}

// Viewer is one audience member of one session.
type Viewer struct {
	ID          string
	SessionID   string
	Name        string
	Platform    Platform
	JoinedAt    time.Time
	LeftAt      time.Time
	IsActive    bool
	OrdersCount int
	TotalSpent  float64
}

// CartStatus tracks a cart's lifecycle.
type CartStatus string

const (
	CartActive     CartStatus = "active"
	CartCheckedOut CartStatus = "checked_out"
	CartAbandoned  CartStatus = "abandoned"
)

// Cart collects a viewer's picks during a session. Totals are recomputed from
// scratch on every mutation, never incrementally.
type Cart struct {
	ID        string
	SessionID string
	ViewerID  string
	Items     []CartItem
	Subtotal  float64
	Discount  float64
	Tax       float64
	Total     float64
	Status    CartStatus
	ExpiresAt time.Time
}

// CartItem is one product line in a cart.
type CartItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   float64
	LivePrice   float64
	DiscountPct float64
}

// OrderStatus tracks a live order's fulfilment.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// PaymentMethod enumerates the live channel's payment options.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
)

// Order is the checked-out form of a cart.
type Order struct {
	ID            string
	Number        string
	SessionID     string
	ViewerID      string
	CustomerName  string
	CustomerPhone string
	Address       string
	City          string
	Governorate   string
	Items         []CartItem
	Subtotal      float64
	Discount      float64
	Tax           float64
	ShippingFee   float64
	Total         float64
	PaymentMethod PaymentMethod
	Status        OrderStatus
	OrderedAt     time.Time
}

// SessionStats is the aggregate snapshot the query surface exposes.
type SessionStats struct {
	SessionNumber  string
	Status         SessionStatus
	ViewersCount   int
	PeakViewers    int
	TotalOrders    int
	TotalRevenue   float64
	ProductsShown  int
	ConversionRate float64
}

// CreateSessionInput carries a new scheduled session.
type CreateSessionInput struct {
	Title          string `validate:"required"`
	Description    string
	Platform       Platform `validate:"required,oneof=youtube facebook both"`
	HostID         string   `validate:"required"`
	ScheduledStart time.Time
	AllowOrders    bool
}

// SessionProductOptions tunes a product's exposure in a session.
type SessionProductOptions struct {
	LivePrice       float64
	LiveDiscountPct float64
	LimitedQuantity int
}

// AddViewerInput registers an audience member.
type AddViewerInput struct {
	Name     string   `validate:"required"`
	Platform Platform `validate:"required,oneof=youtube facebook"`
}

// DeliveryInfo is collected at checkout.
type DeliveryInfo struct {
	CustomerName  string        `validate:"required"`
	CustomerPhone string        `validate:"required"`
	Address       string        `validate:"required"`
	City          string        `validate:"required"`
	Governorate   string        `validate:"required"`
	PaymentMethod PaymentMethod `validate:"required,oneof=cod card wallet"`
}
