package shared

import "errors"

var (
	// ErrNotFound indicates an unknown account, product, customer, invoice or session id.
	ErrNotFound = errors.New("not found")
	// ErrUnbalancedEntry indicates a journal entry whose debits and credits differ.
	ErrUnbalancedEntry = errors.New("journal entry not balanced")
	// ErrInsufficientStock indicates a movement that would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrCreditLimitExceeded indicates an invoice that would push a customer past their limit.
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	// ErrComplianceRejected indicates a transaction blocked by the compliance engine.
	ErrComplianceRejected = errors.New("compliance validation failed")
	// ErrAlreadyPosted indicates a second posting attempt on an entry or invoice.
	ErrAlreadyPosted = errors.New("already posted")
	// ErrCartInactive indicates a cart that expired, was checked out, or abandoned.
	ErrCartInactive = errors.New("cart is not active")
	// ErrLimitedQuantity indicates the session allocation for a product is exhausted.
	ErrLimitedQuantity = errors.New("session limited quantity exhausted")
	// ErrSessionNotLive indicates an operation that requires a live session.
	ErrSessionNotLive = errors.New("session is not live")
	// ErrOrdersDisabled indicates a session that does not accept orders.
	ErrOrdersDisabled = errors.New("orders are not allowed in this session")
)
