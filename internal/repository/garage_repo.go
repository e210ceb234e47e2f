package repository

import (
	"context"
	"errors"
	"fmt"

	"garagepro/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GarageRepository reads and updates the billing-related fields of garages.
type GarageRepository interface {
	GetGarageByUserID(ctx context.Context, userID string) (*model.Garage, error)
	GetGarageByStripeCustomerID(ctx context.Context, customerID string) (*model.Garage, error)
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
	// UpdatePlan sets the account-level plan flag and reports whether the
	// garage exists.
	UpdatePlan(ctx context.Context, userID, plan string) (bool, error)
}

type garageRepo struct {
	pool *pgxpool.Pool
}

// NewGarageRepo creates a new GarageRepository.
func NewGarageRepo(pool *pgxpool.Pool) GarageRepository {
	return &garageRepo{pool: pool}
}

const garageColumns = `user_id, name, email, address, plan, stripe_customer_id, created_at, updated_at`

func scanGarage(row pgx.Row) (*model.Garage, error) {
	var g model.Garage
	err := row.Scan(&g.UserID, &g.Name, &g.Email, &g.Address, &g.Plan, &g.StripeCustomerID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *garageRepo) GetGarageByUserID(ctx context.Context, userID string) (*model.Garage, error) {
	g, err := scanGarage(r.pool.QueryRow(ctx, `SELECT `+garageColumns+` FROM garages WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("fetch garage %s: %w", userID, err)
	}
	return g, nil
}

func (r *garageRepo) GetGarageByStripeCustomerID(ctx context.Context, customerID string) (*model.Garage, error) {
	g, err := scanGarage(r.pool.QueryRow(ctx, `SELECT `+garageColumns+` FROM garages WHERE stripe_customer_id = $1`, customerID))
	if err != nil {
		return nil, fmt.Errorf("fetch garage by customer %s: %w", customerID, err)
	}
	return g, nil
}

func (r *garageRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const q = `UPDATE garages SET stripe_customer_id = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, userID, customerID); err != nil {
		return fmt.Errorf("store stripe customer id for garage %s: %w", userID, err)
	}
	return nil
}

func (r *garageRepo) UpdatePlan(ctx context.Context, userID, plan string) (bool, error) {
	const q = `UPDATE garages SET plan = $2, updated_at = NOW() WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, plan)
	if err != nil {
		return false, fmt.Errorf("update plan for garage %s: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}
