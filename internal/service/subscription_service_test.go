package service

import (
	"context"
	"testing"
	"time"

	"garagepro/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSubscription(t *testing.T) {
	repo := newFakeSubRepo()
	svc := NewSubscriptionService(repo, zerolog.Nop())
	ctx := context.Background()

	sub, err := svc.CheckSubscription(ctx, "user_1")
	require.NoError(t, err)
	assert.Nil(t, sub)

	repo.seed(model.Subscription{UserID: "user_1", BillingSubscriptionID: "sub_old", Status: model.StatusCanceled, UpdatedAt: fixedNow})
	sub, err = svc.CheckSubscription(ctx, "user_1")
	require.NoError(t, err)
	assert.Nil(t, sub, "canceled subscriptions do not entitle")

	repo.seed(model.Subscription{UserID: "user_1", BillingSubscriptionID: "sub_a", Status: model.StatusPastDue, UpdatedAt: fixedNow.Add(-time.Hour)})
	repo.seed(model.Subscription{UserID: "user_1", BillingSubscriptionID: "sub_b", Status: model.StatusTrialing, UpdatedAt: fixedNow})
	sub, err = svc.CheckSubscription(ctx, "user_1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub_b", sub.BillingSubscriptionID)
}

func TestCheckSubscriptionErrors(t *testing.T) {
	repo := newFakeSubRepo()
	svc := NewSubscriptionService(repo, zerolog.Nop())

	_, err := svc.CheckSubscription(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)

	repo.err = errBoom
	_, err = svc.CheckSubscription(context.Background(), "user_1")
	assert.ErrorIs(t, err, ErrPersistence)
}
