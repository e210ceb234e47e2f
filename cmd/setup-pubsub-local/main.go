package main

import (
	"context"
	"time"

	"garagepro/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// emulatorConfig is the subset of the service configuration needed to
// provision the local Pub/Sub emulator.
type emulatorConfig struct {
	ProjectID    string `envconfig:"GCP_PROJECT_ID" required:"true"`
	EmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST" required:"true"`
	BillingTopic string `envconfig:"PUBSUB_BILLING_TOPIC" default:"billing-events"`
}

func main() {
	_ = godotenv.Load()
	logger := logger.New()
	logger.Info().Msg("Starting Pub/Sub setup for the local environment.")

	var cfg emulatorConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.ProjectID,
		option.WithEndpoint(cfg.EmulatorHost),
		option.WithoutAuthentication(),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	topic := ensureTopic(ctx, client, logger, cfg.BillingTopic, 7*24*time.Hour)
	ensurePullSubscription(ctx, client, logger, cfg.BillingTopic+"-sub", topic)

	logger.Info().Msg("Pub/Sub setup for local environment complete.")
}

func ensureTopic(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string, retention time.Duration) *pubsub.Topic {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to check if topic %s exists: %v", topicID, err)
	}
	if exists {
		logger.Info().Msgf("Topic %s already exists.", topicID)
		return topic
	}

	logger.Info().Msgf("Creating topic: %s with %v retention", topicID, retention)
	topic, err = client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{
		RetentionDuration: retention,
	})
	if err != nil {
		logger.Fatal().Msgf("Failed to create topic %s: %v", topicID, err)
	}
	return topic
}

// ensurePullSubscription creates a pull subscription so billing events can be
// inspected locally.
func ensurePullSubscription(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, topic *pubsub.Topic) {
	sub := client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to check if subscription %s exists: %v", subID, err)
	}
	if exists {
		logger.Info().Msgf("Subscription %s already exists.", subID)
		return
	}

	logger.Info().Msgf("Creating subscription %s on topic %s", subID, topic.ID())
	if _, err := client.CreateSubscription(ctx, subID, pubsub.SubscriptionConfig{
		Topic:            topic,
		AckDeadline:      60 * time.Second,
		ExpirationPolicy: 31 * 24 * time.Hour,
		RetryPolicy: &pubsub.RetryPolicy{
			MinimumBackoff: 10 * time.Second,
			MaximumBackoff: 600 * time.Second,
		},
	}); err != nil {
		logger.Fatal().Msgf("Failed to create subscription '%s': %v", subID, err)
	}
}
