package analysis_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/robalyx/guildpulse/internal/database/types"
)

var errOffline = errors.New("offline")

type memberKey struct {
	guildID uint64
	userID  uint64
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu       sync.Mutex
	now      func() time.Time
	guilds   map[uint64]*types.Guild
	messages []*types.Message
	health   []*types.GuildHealth
	counters map[memberKey]int64
	scores   map[memberKey]float64
	lastSeen map[memberKey]time.Time
	writeErr map[uint64]error
	writes   []uint64
	queries  []int
}

func newFakeStore(now func() time.Time) *fakeStore {
	return &fakeStore{
		now:      now,
		guilds:   make(map[uint64]*types.Guild),
		counters: make(map[memberKey]int64),
		scores:   make(map[memberKey]float64),
		lastSeen: make(map[memberKey]time.Time),
		writeErr: make(map[uint64]error),
	}
}

func (s *fakeStore) addMessage(msg *types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *fakeStore) GetUnanalyzedMessages(
	_ context.Context, guildID uint64, windowHours, limit int,
) ([]*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, windowHours)

	var out []*types.Message
	for _, msg := range s.messages {
		if msg.GuildID != guildID {
			continue
		}
		if windowHours > 0 && msg.SentAt.Before(s.now().Add(-time.Duration(windowHours)*time.Hour)) {
			continue
		}
		clone := *msg
		out = append(out, &clone)
	}

	slices.SortStableFunc(out, func(a, b *types.Message) int {
		return b.SentAt.Compare(a.SentAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (s *fakeStore) WriteMessageScores(_ context.Context, messageID uint64, scores *types.MessageScores) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr[messageID]; err != nil {
		return err
	}

	s.writes = append(s.writes, messageID)

	for _, msg := range s.messages {
		if msg.ID != messageID {
			continue
		}
		msg.Sentiment = &scores.Sentiment
		msg.Toxicity = &scores.Toxicity
		msg.Constructiveness = &scores.Constructiveness
		msg.AILikelihood = &scores.AILikelihood
		msg.QualityScore = &scores.QualityScore
		msg.EngagementPotential = &scores.EngagementPotential
		msg.ActivityCategory = scores.ActivityCategory
		msg.Emotions = scores.Emotions
		msg.Topics = scores.Topics
		at := scores.AnalyzedAt
		msg.AnalyzedAt = &at
	}

	return nil
}

func (s *fakeStore) GetGuild(_ context.Context, guildID uint64) (*types.Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guild, ok := s.guilds[guildID]
	if !ok {
		return nil, types.ErrGuildNotFound
	}
	clone := *guild
	return &clone, nil
}

func (s *fakeStore) UpsertGuildHealth(_ context.Context, health *types.GuildHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *health
	s.health = append(s.health, &clone)

	if guild, ok := s.guilds[health.GuildID]; ok {
		guild.OverallRating = health.OverallRating
		guild.HealthIndicators = health.Indicators
		guild.HealthConcerns = health.Concerns
		guild.HealthRecommendations = health.Recommendations
		if health.LastAnalyzed.After(guild.LastAnalyzed) {
			guild.LastAnalyzed = health.LastAnalyzed
		}
	}
	return nil
}

func (s *fakeStore) IncrementUserGuildCounter(
	_ context.Context, guildID, userID uint64, delta int64, at time.Time,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{guildID, userID}
	s.counters[key] += delta
	if at.After(s.lastSeen[key]) {
		s.lastSeen[key] = at
	}
	return s.counters[key], nil
}

// ingest records a message and counts it toward its author, as ingestion does.
func (s *fakeStore) ingest(msg *types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.counters[memberKey{msg.GuildID, msg.AuthorID}]++
}

func (s *fakeStore) SetUserGuildScore(_ context.Context, guildID, userID uint64, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[memberKey{guildID, userID}] = score
	return nil
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

// fakeScorer returns a fixed score per message content and tracks concurrency.
type fakeScorer struct {
	mu        sync.Mutex
	byContent map[string]ai.Score
	calls     map[string]int
	delay     time.Duration
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func newFakeScorer() *fakeScorer {
	return &fakeScorer{
		byContent: make(map[string]ai.Score),
		calls:     make(map[string]int),
	}
}

func (f *fakeScorer) set(content string, score ai.Score) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byContent[content] = score
}

func (f *fakeScorer) Score(_ context.Context, input *ai.MessageInput) ai.Score {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	for {
		peak := f.maxFlight.Load()
		if current <= peak || f.maxFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[input.Content]++

	score, ok := f.byContent[input.Content]
	if !ok {
		return ai.Score{Result: ai.DefaultScoreResult(), Failure: ai.FailureUnparseable, Err: ai.ErrNoJSONObject}
	}
	return score
}

func (f *fakeScorer) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeScorer) callsFor(content string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[content]
}

// fakeSummarizer returns a fixed summary or error.
type fakeSummarizer struct {
	summary ai.CommunitySummary
	err     error
	calls   atomic.Int32
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ *ai.CommunityInput) (ai.CommunitySummary, error) {
	f.calls.Add(1)
	if f.err != nil {
		return ai.DefaultCommunitySummary(), f.err
	}
	return f.summary, nil
}

func okScore(sentiment, toxicity, engagement, quality float64) ai.Score {
	result := ai.DefaultScoreResult()
	result.Sentiment = sentiment
	result.Toxicity = toxicity
	result.EngagementPotential = engagement
	result.QualityScore = quality
	return ai.Score{Result: result}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
