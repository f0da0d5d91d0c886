package billing

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/smartfolio/smartfolio/pkg/pg"
	"github.com/smartfolio/smartfolio/pkg/subscription"
)

const subscriptionColumns = `user_id, plan, status, external_customer_ref, external_subscription_ref,
	external_price_ref, current_period_start, current_period_end, cancel_at_period_end, trial_end,
	customer_email, created_at, updated_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the Postgres implementation of subscription.Store and
// subscription.PaymentRecorder.
type Store struct {
	db pg.DB
}

var (
	_ subscription.Store           = (*Store)(nil)
	_ subscription.PaymentRecorder = (*Store)(nil)
)

func NewStore(db pg.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetByUser(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	row := s.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("get subscription by user: %w", err)
	}
	return sub, nil
}

func (s *Store) GetBySubscriptionRef(ctx context.Context, ref string) (*subscription.Subscription, error) {
	if ref == "" {
		return nil, subscription.ErrSubscriptionNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE external_subscription_ref = $1`, ref)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("get subscription by ref: %w", err)
	}
	return sub, nil
}

// UpsertCheckout overwrites every checkout-owned column. The customer email
// and created_at of an existing row are kept.
func (s *Store) UpsertCheckout(ctx context.Context, rec subscription.CheckoutRecord) (*subscription.Subscription, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO subscriptions (
			user_id, plan, status, external_customer_ref, external_subscription_ref, external_price_ref,
			current_period_start, current_period_end, cancel_at_period_end, trial_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			external_customer_ref = EXCLUDED.external_customer_ref,
			external_subscription_ref = EXCLUDED.external_subscription_ref,
			external_price_ref = EXCLUDED.external_price_ref,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			trial_end = EXCLUDED.trial_end,
			updated_at = now()
		RETURNING `+subscriptionColumns,
		rec.UserID, string(rec.Plan), string(rec.Status), rec.CustomerRef, rec.SubscriptionRef, rec.PriceRef,
		rec.CurrentPeriodStart, rec.CurrentPeriodEnd, rec.CancelAtPeriodEnd, rec.TrialEnd,
	)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("upsert checkout: %w", err)
	}
	return sub, nil
}

// AttachCustomer keeps an existing customer ref, so concurrent first
// checkouts converge on whichever ref was stored first.
func (s *Store) AttachCustomer(ctx context.Context, userID uuid.UUID, customerRef, email string) (string, error) {
	var stored string
	err := s.db.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, external_customer_ref, customer_email)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			external_customer_ref = COALESCE(NULLIF(subscriptions.external_customer_ref, ''), EXCLUDED.external_customer_ref),
			customer_email = COALESCE(NULLIF(EXCLUDED.customer_email, ''), subscriptions.customer_email),
			updated_at = now()
		RETURNING external_customer_ref`,
		userID, customerRef, email,
	).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("attach customer: %w", err)
	}
	return stored, nil
}

func (s *Store) SetStatus(ctx context.Context, userID uuid.UUID, status subscription.Status) error {
	return s.update(ctx, "set status",
		`UPDATE subscriptions SET status = $2, updated_at = now() WHERE user_id = $1`, userID, string(status))
}

func (s *Store) SetCancelAtPeriodEnd(ctx context.Context, userID uuid.UUID, cancel bool) error {
	return s.update(ctx, "set cancel at period end",
		`UPDATE subscriptions SET cancel_at_period_end = $2, updated_at = now() WHERE user_id = $1`, userID, cancel)
}

func (s *Store) update(ctx context.Context, op, query string, userID uuid.UUID, value any) error {
	tag, err := s.db.Exec(ctx, query, userID, value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrSubscriptionNotFound
	}
	return nil
}

// RecordPayment upserts by invoice ref; a replay or a later outcome for the
// same invoice updates the row in place.
func (s *Store) RecordPayment(ctx context.Context, p subscription.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO payments (id, user_id, invoice_ref, amount, currency, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (invoice_ref) DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			description = EXCLUDED.description`,
		p.ID, p.UserID, p.InvoiceRef, p.Amount, p.Currency, string(p.Status), p.Description,
	)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	return nil
}

// ListPayments returns the user's payments, newest first.
func (s *Store) ListPayments(ctx context.Context, userID uuid.UUID, limit uint64) ([]subscription.Payment, error) {
	query, args, err := psql.
		Select("id", "user_id", "invoice_ref", "amount", "currency", "status", "description", "created_at").
		From("payments").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build payments query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]subscription.Payment, 0)
	for rows.Next() {
		var (
			p      subscription.Payment
			status string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.InvoiceRef, &p.Amount, &p.Currency, &status, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Status = subscription.PaymentStatus(status)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		sub          subscription.Subscription
		plan, status string
	)
	err := row.Scan(
		&sub.UserID, &plan, &status, &sub.CustomerRef, &sub.SubscriptionRef,
		&sub.PriceRef, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.TrialEnd,
		&sub.CustomerEmail, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, err
	}

	var ok bool
	if sub.Plan, ok = subscription.ParsePlan(plan); !ok {
		return nil, fmt.Errorf("%w: stored plan %q", errUnknownStoredValue, plan)
	}
	if sub.Status, ok = subscription.ParseStatus(status); !ok {
		return nil, fmt.Errorf("%w: stored status %q", errUnknownStoredValue, status)
	}
	return &sub, nil
}
