package paymentprovider

import "encoding/json"

// Webhook event types the reconciliation handler reacts to.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaySucceeded = "invoice.payment_succeeded"
	EventInvoicePayFailed    = "invoice.payment_failed"
)

// MetadataUserUID is the metadata key carrying the tenant identifier.
// It is set on checkout sessions and propagated to subscriptions.
const MetadataUserUID = "user_uid"

// Event is the envelope the provider posts to the webhook endpoint.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the payload of checkout.session.completed events.
type CheckoutSession struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// Subscription is the payload of customer.subscription.* events and the
// response of the subscription retrieve endpoint.
type Subscription struct {
	ID               string            `json:"id"`
	Customer         string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
	Items            struct {
		Data []struct {
			Price struct {
				ID       string `json:"id"`
				Nickname string `json:"nickname"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// Invoice is the payload of invoice.payment_* events.
type Invoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Paid         bool   `json:"paid"`
}
