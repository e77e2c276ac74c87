package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	disgoEvents "github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/robalyx/guildpulse/internal/bot/events"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"go.uber.org/zap"
)

// Bot connects to the Discord gateway and feeds guild, member and message
// events into storage and the scheduler.
type Bot struct {
	client bot.Client
	logger *zap.Logger
}

// New configures the Discord client with the intents and listeners needed for
// ingestion. When collect_on_ready is set, recent history of every ready guild
// is collected in backfill mode.
func New(
	cfg *config.Discord,
	store events.Store,
	trigger events.Trigger,
	saturation int,
	metricsManager *metrics.Manager,
	logger *zap.Logger,
) (*Bot, error) {
	messageHandler := events.NewMessageEventHandler(store, trigger, saturation, metricsManager, logger)

	var backfiller *events.Backfiller
	if cfg.CollectOnReady {
		backfiller = events.NewBackfiller(messageHandler, cfg.CollectLimit, logger)
	}

	guildHandler := events.NewGuildEventHandler(store, backfiller, logger)

	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithEventListeners(&disgoEvents.ListenerAdapter{
			OnGuildReady:         guildHandler.OnGuildReady,
			OnGuildJoin:          guildHandler.OnGuildJoin,
			OnGuildUpdate:        guildHandler.OnGuildUpdate,
			OnGuildLeave:         guildHandler.OnGuildLeave,
			OnGuildMemberJoin:    guildHandler.OnGuildMemberJoin,
			OnGuildMessageCreate: messageHandler.OnGuildMessageCreate,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	return &Bot{
		client: client,
		logger: logger.Named("bot"),
	}, nil
}

// Start opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the Discord gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
}
