package service

import (
	"context"
	"testing"

	"garagepro/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
}

func (f *fakeSecrets) AccessSecret(_ context.Context, name string) (string, error) {
	v, ok := f.values[name]
	if !ok {
		return "", errBoom
	}
	return v, nil
}

func (f *fakeSecrets) Close() error { return nil }

func TestSecretVersionName(t *testing.T) {
	assert.Equal(t, "projects/p1/secrets/stripe-key/versions/latest", secretVersionName("p1", "stripe-key"))
	assert.Equal(t, "projects/p2/secrets/k/versions/latest", secretVersionName("p1", "projects/p2/secrets/k"))
	assert.Equal(t, "projects/p2/secrets/k/versions/3", secretVersionName("p1", "projects/p2/secrets/k/versions/3"))
}

func TestResolveStripeSecretKey(t *testing.T) {
	ctx := context.Background()

	key, err := ResolveStripeSecretKey(ctx, &config.Config{StripeSecretKey: "sk_env"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sk_env", key)

	cfg := &config.Config{StripeSecretKey: "sk_env", StripeSecretKeySecret: "stripe-key"}
	key, err = ResolveStripeSecretKey(ctx, cfg, &fakeSecrets{values: map[string]string{"stripe-key": "sk_sm"}})
	require.NoError(t, err)
	assert.Equal(t, "sk_sm", key)

	_, err = ResolveStripeSecretKey(ctx, cfg, &fakeSecrets{values: map[string]string{"stripe-key": ""}})
	assert.Error(t, err)
	_, err = ResolveStripeSecretKey(ctx, cfg, &fakeSecrets{})
	assert.ErrorIs(t, err, errBoom)
	_, err = ResolveStripeSecretKey(ctx, cfg, nil)
	assert.Error(t, err)
}
