package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garagepro/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository persists the local mirror of Stripe subscriptions.
type SubscriptionRepository interface {
	// UpsertSubscription inserts or fully overwrites the record keyed by
	// (UserID, BillingSubscriptionID) in one statement. created_at is only
	// set on insert. sub.CreatedAt and sub.UpdatedAt are filled from the
	// stored row and created reports whether a new row was written.
	UpsertSubscription(ctx context.Context, sub *model.Subscription) (created bool, err error)
	GetSubscription(ctx context.Context, userID, billingSubscriptionID string) (*model.Subscription, error)
	GetSubscriptionByBillingID(ctx context.Context, billingSubscriptionID string) (*model.Subscription, error)
	GetEntitledSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	GetLatestSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// UpdateStatus changes only status and updated_at and reports whether a
	// matching record existed.
	UpdateStatus(ctx context.Context, userID, billingSubscriptionID string, status model.SubscriptionStatus, at time.Time) (bool, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `user_id, billing_customer_id, billing_subscription_id, price_id, status,
       current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		s          model.Subscription
		start, end *time.Time
	)
	err := row.Scan(
		&s.UserID,
		&s.BillingCustomerID,
		&s.BillingSubscriptionID,
		&s.PriceID,
		&s.Status,
		&start,
		&end,
		&s.CancelAtPeriodEnd,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if start != nil {
		s.CurrentPeriodStart = *start
	}
	if end != nil {
		s.CurrentPeriodEnd = *end
	}
	return &s, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (r *subscriptionRepo) UpsertSubscription(ctx context.Context, sub *model.Subscription) (bool, error) {
	const q = `
        INSERT INTO subscriptions (user_id, billing_customer_id, billing_subscription_id, price_id, status,
                                   current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
        ON CONFLICT (user_id, billing_subscription_id) DO UPDATE
        SET billing_customer_id = EXCLUDED.billing_customer_id,
            price_id = EXCLUDED.price_id,
            status = EXCLUDED.status,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            updated_at = EXCLUDED.updated_at
        RETURNING created_at, updated_at, (xmax = 0) AS inserted
    `
	var created bool
	err := r.pool.QueryRow(ctx, q,
		sub.UserID,
		sub.BillingCustomerID,
		sub.BillingSubscriptionID,
		sub.PriceID,
		sub.Status,
		nullableTime(sub.CurrentPeriodStart),
		nullableTime(sub.CurrentPeriodEnd),
		sub.CancelAtPeriodEnd,
		sub.UpdatedAt,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("upsert subscription %s for user %s: %w", sub.BillingSubscriptionID, sub.UserID, err)
	}
	return created, nil
}

func (r *subscriptionRepo) GetSubscription(ctx context.Context, userID, billingSubscriptionID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND billing_subscription_id = $2`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, userID, billingSubscriptionID))
	if err != nil {
		return nil, fmt.Errorf("fetch subscription %s for user %s: %w", billingSubscriptionID, userID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) GetSubscriptionByBillingID(ctx context.Context, billingSubscriptionID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE billing_subscription_id = $1 ORDER BY updated_at DESC LIMIT 1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, billingSubscriptionID))
	if err != nil {
		return nil, fmt.Errorf("fetch subscription %s: %w", billingSubscriptionID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) GetEntitledSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	statuses := make([]string, len(model.EntitlingStatuses))
	for i, st := range model.EntitlingStatuses {
		statuses[i] = string(st)
	}
	q := `SELECT ` + subscriptionColumns + `
        FROM subscriptions
        WHERE user_id = $1 AND status = ANY($2)
        ORDER BY updated_at DESC
        LIMIT 1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, userID, statuses))
	if err != nil {
		return nil, fmt.Errorf("fetch entitled subscription for user %s: %w", userID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) GetLatestSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY updated_at DESC LIMIT 1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		return nil, fmt.Errorf("fetch latest subscription for user %s: %w", userID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, userID, billingSubscriptionID string, status model.SubscriptionStatus, at time.Time) (bool, error) {
	const q = `
        UPDATE subscriptions
        SET status = $3, updated_at = $4
        WHERE user_id = $1 AND billing_subscription_id = $2
    `
	tag, err := r.pool.Exec(ctx, q, userID, billingSubscriptionID, status, at)
	if err != nil {
		return false, fmt.Errorf("set status %s on subscription %s: %w", status, billingSubscriptionID, err)
	}
	return tag.RowsAffected() > 0, nil
}
