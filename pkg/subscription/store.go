package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists subscriptions. Every write sets absolute values so that
// replays and concurrent deliveries converge.
type Store interface {
	// GetByUser returns ErrSubscriptionNotFound when the user has no row.
	GetByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// GetBySubscriptionRef returns ErrSubscriptionNotFound when no row carries the ref.
	GetBySubscriptionRef(ctx context.Context, subscriptionRef string) (*Subscription, error)

	// UpsertCheckout inserts or overwrites the row of rec.UserID with the
	// checkout result and returns the stored row.
	UpsertCheckout(ctx context.Context, rec CheckoutRecord) (*Subscription, error)

	// AttachCustomer stores customerRef for the user unless one is already
	// present, and returns the ref that ended up stored.
	AttachCustomer(ctx context.Context, userID uuid.UUID, customerRef, email string) (string, error)

	SetStatus(ctx context.Context, userID uuid.UUID, status Status) error
	SetCancelAtPeriodEnd(ctx context.Context, userID uuid.UUID, cancel bool) error
}

// CheckoutRecord is the state written by a completed checkout.
type CheckoutRecord struct {
	UserID             uuid.UUID
	Plan               Plan
	Status             Status
	CustomerRef        string
	SubscriptionRef    string
	PriceRef           string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	TrialEnd           *time.Time
}

// PaymentStatus is the state of a recorded payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is a single invoice outcome.
type Payment struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	InvoiceRef  string        `json:"invoice_ref"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// PaymentRecorder persists payments keyed by invoice ref. Recording the
// same invoice twice updates the existing row.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, p Payment) error
}
