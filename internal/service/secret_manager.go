package service

import (
	"context"
	"fmt"
	"strings"

	"garagepro/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretManagerService reads deployment secrets such as the Stripe API key.
type SecretManagerService interface {
	AccessSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerService struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerService(ctx context.Context, cfg *config.Config) (SecretManagerService, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set")
	}

	var opts []option.ClientOption
	if cfg.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerService{client: client, projectID: cfg.GCPProjectID}, nil
}

// secretVersionName expands a short secret name to its latest version path.
// Fully qualified names are returned unchanged.
func secretVersionName(projectID, name string) string {
	if strings.HasPrefix(name, "projects/") {
		if strings.Contains(name, "/versions/") {
			return name
		}
		return name + "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, name)
}

func (s *secretManagerService) AccessSecret(ctx context.Context, name string) (string, error) {
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretVersionName(s.projectID, name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", name, err)
	}
	return strings.TrimSpace(string(result.Payload.Data)), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}

// ResolveStripeSecretKey returns the Stripe API key from the environment or,
// when STRIPE_SECRET_KEY_SECRET is set, from Secret Manager.
func ResolveStripeSecretKey(ctx context.Context, cfg *config.Config, secrets SecretManagerService) (string, error) {
	if cfg.StripeSecretKeySecret == "" {
		return cfg.StripeSecretKey, nil
	}
	if secrets == nil {
		return "", fmt.Errorf("secret manager unavailable for %s", cfg.StripeSecretKeySecret)
	}
	key, err := secrets.AccessSecret(ctx, cfg.StripeSecretKeySecret)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("secret %s is empty", cfg.StripeSecretKeySecret)
	}
	return key, nil
}
