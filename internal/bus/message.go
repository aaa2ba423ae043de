// Package bus carries typed messages between business modules. Each module
// owns its state exclusively and is reachable only through its mailbox;
// request/reply pairs are correlated by message id.
package bus

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ModuleID addresses a registered module.
type ModuleID string

const (
	ModuleInventory ModuleID = "inventory"
	ModuleLedger    ModuleID = "ledger"
	ModuleSales     ModuleID = "sales"
	ModuleLiveShop  ModuleID = "liveshop"
	ModuleLearning  ModuleID = "learning"

	// BroadcastAll fans a message out to every registered module except the sender.
	BroadcastAll ModuleID = "all"
)

// Action identifies one message variant. The set is closed: every action has
// exactly one payload type and handlers match on it exhaustively.
type Action string

const (
	// Inventory actions.
	ActionCheckStock      Action = "check_stock"
	ActionReserveStock    Action = "reserve_stock"
	ActionDeductStock     Action = "deduct_stock"
	ActionGetProduct      Action = "get_product"
	ActionGetAllProducts  Action = "get_all_products"
	ActionStockAlert      Action = "stock_alert"
	ActionPrepareProducts Action = "prepare_live_products"

	// Ledger actions.
	ActionCreateInvoiceEntry Action = "create_invoice_entry"
	ActionCreatePayment      Action = "create_payment"
	ActionGetAccountBalance  Action = "get_account_balance"

	// Sales actions.
	ActionCreateInvoice    Action = "create_invoice"
	ActionPostInvoice      Action = "post_invoice"
	ActionGetCustomer      Action = "get_customer"
	ActionPaymentReceived  Action = "payment_received"
	ActionLiveOrderCreated Action = "live_order_created"

	// Learning actions.
	ActionLogLearningEvent Action = "log_learning_event"
	ActionGetInsights      Action = "get_insights"
	ActionGetRecentEvents  Action = "get_recent_events"

	// Reply actions.
	ActionStockCheckReply     Action = "stock_check_response"
	ActionProductReply        Action = "product_response"
	ActionProductListReply    Action = "product_list_response"
	ActionCustomerReply       Action = "customer_response"
	ActionInvoiceCreatedReply Action = "invoice_created_response"
	ActionAccountBalanceReply Action = "account_balance_response"
	ActionInsightsReply       Action = "insights_response"
	ActionRecentEventsReply   Action = "recent_events_response"
)

// Message is the envelope every module exchange travels in. Delivery is
// at-most-once per send and there is no built-in acknowledgement.
type Message struct {
	ID        uuid.UUID
	From      ModuleID
	To        ModuleID
	Action    Action
	Payload   any
	Timestamp time.Time
	Priority  int
	// ReplyTo carries the id of the request this message answers; zero otherwise.
	ReplyTo uuid.UUID
}

// ErrBadPayload indicates a payload that does not match its action's type.
var ErrBadPayload = errors.New("bus: payload does not match action")

// BadPayload builds the error a handler returns when an envelope carries the
// wrong payload type for its action.
func BadPayload(msg Message) error {
	return fmt.Errorf("%w: action %q carried %T", ErrBadPayload, msg.Action, msg.Payload)
}

// IsReply reports whether the message answers an earlier request.
func (m Message) IsReply() bool {
	return m.ReplyTo != uuid.Nil
}

// New builds an addressed message with a fresh id.
func New(from, to ModuleID, action Action, payload any) Message {
	return Message{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Action:    action,
		Payload:   payload,
		Timestamp: time.Now(),
		Priority:  1,
	}
}

// ReplyTo builds the answer to a request, correlated by the request id.
func (m Message) Reply(action Action, payload any) Message {
	reply := New(m.To, m.From, action, payload)
	reply.ReplyTo = m.ID
	reply.Priority = m.Priority
	return reply
}
