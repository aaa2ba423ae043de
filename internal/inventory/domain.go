package inventory

import "time"

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inbound movement; it adds to stock.
	MovementIn MovementType = "in"
	// MovementOut represents an outbound movement; it never drives stock negative.
	MovementOut MovementType = "out"
	// MovementAdjustment sets the absolute stock quantity.
	MovementAdjustment MovementType = "adjustment"
)

// Product is a catalog item. StockQuantity is the only mutable scalar and is
// updated exactly once per recorded movement.
type Product struct {
	ID            string
	Code          string
	Name          string
	Description   string
	Category      string
	Unit          string
	CostPrice     float64
	SellingPrice  float64
	TaxRate       float64
	StockQuantity float64
	ReorderLevel  float64
	IsActive      bool
}

// StockMovement is one immutable entry in the append-only movement ledger.
// StockQuantity is derivable by replaying a product's movements in order.
type StockMovement struct {
	ID            string
	ProductID     string
	Type          MovementType
	Quantity      float64
	ReferenceType string
	ReferenceID   string
	Notes         string
	Timestamp     time.Time
}

// Hold reserves stock under a reference until released or consumed by the
// matching outbound movement. Holds reduce available, not on-hand, quantity.
type Hold struct {
	ProductID   string
	Quantity    float64
	ReferenceID string
	CreatedAt   time.Time
}

// CreateProductInput carries a new catalog item.
type CreateProductInput struct {
	Code         string  `validate:"required"`
	Name         string  `validate:"required"`
	Description  string
	Category     string
	Unit         string  `validate:"required"`
	CostPrice    float64 `validate:"gte=0"`
	SellingPrice float64 `validate:"gte=0"`
	TaxRate      float64 `validate:"gte=0,lte=100"`
	Stock        float64 `validate:"gte=0"`
	ReorderLevel float64 `validate:"gte=0"`
}

// MovementInput describes one stock change request. Line distinguishes
// multiple movements issued by one source document (an invoice can sell the
// same product on two lines); redelivery dedup keys on it.
type MovementInput struct {
	ProductID     string
	Quantity      float64
	Type          MovementType
	ReferenceType string
	ReferenceID   string
	Line          int
	Notes         string
}
