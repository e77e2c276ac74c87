package analysis

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/robalyx/guildpulse/internal/database/types"
	"go.uber.org/zap"
)

// Collector gathers a bounded, deduplicated batch of recent messages for a guild.
type Collector struct {
	store       MessageStore
	windowHours int
	logger      *zap.Logger
}

// NewCollector creates a collector reading windowHours of history.
func NewCollector(store MessageStore, windowHours int, logger *zap.Logger) *Collector {
	return &Collector{
		store:       store,
		windowHours: windowHours,
		logger:      logger.Named("analysis_collector"),
	}
}

// Collect returns up to maxCount messages, most recent first. When the
// recency window is empty it falls back to the latest messages of any age.
func (c *Collector) Collect(ctx context.Context, guildID uint64, maxCount int) ([]*types.Message, error) {
	if maxCount <= 0 {
		return nil, nil
	}

	messages, err := c.store.GetUnanalyzedMessages(ctx, guildID, c.windowHours, maxCount)
	if err != nil {
		return nil, fmt.Errorf("failed to collect messages: %w", err)
	}

	if len(messages) == 0 && c.windowHours > 0 {
		messages, err = c.store.GetUnanalyzedMessages(ctx, guildID, 0, maxCount)
		if err != nil {
			return nil, fmt.Errorf("failed to collect fallback messages: %w", err)
		}

		if len(messages) > 0 {
			c.logger.Debug("Recency window empty, using latest messages",
				zap.Uint64("guildID", guildID),
				zap.Int("count", len(messages)))
		}
	}

	return dedupeMessages(messages, maxCount), nil
}

// WindowStart returns the oldest timestamp inside the recency window.
func (c *Collector) WindowStart(now time.Time) time.Time {
	if c.windowHours <= 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(c.windowHours) * time.Hour)
}

// dedupeMessages drops repeated ids, orders newest first and caps the batch.
func dedupeMessages(messages []*types.Message, maxCount int) []*types.Message {
	seen := make(map[uint64]struct{}, len(messages))
	unique := make([]*types.Message, 0, len(messages))

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		unique = append(unique, msg)
	}

	slices.SortStableFunc(unique, func(a, b *types.Message) int {
		return b.SentAt.Compare(a.SentAt)
	})

	if len(unique) > maxCount {
		unique = unique[:maxCount]
	}

	return unique
}

// splitByCycle separates messages already scored in the current cycle from
// those that still need a model call.
func splitByCycle(messages []*types.Message, cycleStart time.Time) (pending, reused []*types.Message) {
	for _, msg := range messages {
		if scores := msg.Scores(); scores != nil && !scores.AnalyzedAt.Before(cycleStart) {
			reused = append(reused, msg)
			continue
		}
		pending = append(pending, msg)
	}
	return pending, reused
}

// countInWindow counts messages sent at or after windowStart.
func countInWindow(messages []*types.Message, windowStart time.Time) int {
	count := 0
	for _, msg := range messages {
		if !msg.SentAt.Before(windowStart) {
			count++
		}
	}
	return count
}
