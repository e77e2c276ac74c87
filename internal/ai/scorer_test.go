package ai_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/robalyx/guildpulse/internal/database/types/enum"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func assertInRange(t *testing.T, r ai.ScoreResult) {
	t.Helper()

	assert.GreaterOrEqual(t, r.Sentiment, -1.0)
	assert.LessOrEqual(t, r.Sentiment, 1.0)

	for _, v := range []float64{r.Toxicity, r.Constructiveness, r.AILikelihood, r.QualityScore, r.EngagementPotential} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	assert.NotEmpty(t, r.Emotions)
	assert.LessOrEqual(t, len(r.Emotions), ai.MaxEmotions)
	assert.LessOrEqual(t, len(r.Topics), ai.MaxTopics)
}

func TestParseScore(t *testing.T) {
	t.Parallel()

	t.Run("valid response", func(t *testing.T) {
		t.Parallel()

		result, err := ai.ParseScore(`{"sentiment":0.8,"toxicity":0.1,"constructiveness":0.7,` +
			`"aiLikelihood":0.05,"qualityScore":0.9,"engagementPotential":0.6,` +
			`"activityCategory":"question","emotions":["curious"],"topics":["go","testing"]}`)
		require.NoError(t, err)

		assert.InDelta(t, 0.8, result.Sentiment, 1e-9)
		assert.InDelta(t, 0.1, result.Toxicity, 1e-9)
		assert.InDelta(t, 0.6, result.EngagementPotential, 1e-9)
		assert.Equal(t, enum.MessageCategoryQuestion, result.ActivityCategory)
		assert.Equal(t, []string{"curious"}, result.Emotions)
		assert.Equal(t, []string{"go", "testing"}, result.Topics)
	})

	t.Run("out of range values are clamped", func(t *testing.T) {
		t.Parallel()

		result, err := ai.ParseScore(`{"sentiment":-7,"toxicity":3.5,"constructiveness":-1,` +
			`"aiLikelihood":99,"qualityScore":1.0001,"engagementPotential":-0.2,` +
			`"activityCategory":"flamewar","emotions":["a","b","c","d","e","f","g"],` +
			`"topics":["1","2","3","4","5","6"]}`)
		require.NoError(t, err)

		assert.InDelta(t, -1.0, result.Sentiment, 1e-9)
		assert.InDelta(t, 1.0, result.Toxicity, 1e-9)
		assert.InDelta(t, 0.0, result.Constructiveness, 1e-9)
		assert.InDelta(t, 1.0, result.AILikelihood, 1e-9)
		assert.InDelta(t, 1.0, result.QualityScore, 1e-9)
		assert.InDelta(t, 0.0, result.EngagementPotential, 1e-9)
		assert.Equal(t, enum.MessageCategoryCasual, result.ActivityCategory)
		assert.Len(t, result.Emotions, ai.MaxEmotions)
		assert.Len(t, result.Topics, ai.MaxTopics)
		assertInRange(t, result)
	})

	t.Run("empty emotions default to neutral", func(t *testing.T) {
		t.Parallel()

		result, err := ai.ParseScore(`{"sentiment":0,"toxicity":0,"constructiveness":0,` +
			`"aiLikelihood":0,"qualityScore":0,"engagementPotential":0,"emotions":[" "]}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"neutral"}, result.Emotions)
		assert.Empty(t, result.Topics)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		_, err := ai.ParseScore(`{"sentiment":0.5,"toxicity":0.1,"constructiveness":0.5,` +
			`"aiLikelihood":0.1,"qualityScore":0.5}`)
		require.ErrorIs(t, err, ai.ErrMissingField)
	})

	t.Run("null value", func(t *testing.T) {
		t.Parallel()

		_, err := ai.ParseScore(`{"sentiment":null,"toxicity":0.1,"constructiveness":0.5,` +
			`"aiLikelihood":0.1,"qualityScore":0.5,"engagementPotential":0.5}`)
		require.ErrorIs(t, err, ai.ErrMissingField)
	})

	t.Run("non numeric value", func(t *testing.T) {
		t.Parallel()

		_, err := ai.ParseScore(`{"sentiment":"very positive","toxicity":0.1,"constructiveness":0.5,` +
			`"aiLikelihood":0.1,"qualityScore":0.5,"engagementPotential":0.5}`)
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		t.Parallel()

		_, err := ai.ParseScore("As an AI model I cannot rate this message.")
		require.ErrorIs(t, err, ai.ErrNoJSONObject)
	})
}

func TestScorerScore(t *testing.T) {
	t.Parallel()

	input := ai.NewMessageInput(&types.Message{
		ID:             42,
		ChannelID:      7,
		Content:        "hello {world}",
		HasAttachments: true,
		MentionCount:   2,
		ReplyToID:      41,
		ContentLength:  13,
		WordCount:      2,
		SentAt:         time.Now(),
	})

	tests := []struct {
		name        string
		text        string
		err         error
		wantFailure ai.Failure
	}{
		{
			name: "parsed",
			text: "```json\n{\"sentiment\":0.4,\"toxicity\":0,\"constructiveness\":0.6,\"aiLikelihood\":0," +
				"\"qualityScore\":0.7,\"engagementPotential\":0.8,\"activityCategory\":\"discussion\"," +
				"\"emotions\":[\"happy\"],\"topics\":[]}\n```",
			wantFailure: ai.FailureNone,
		},
		{
			name:        "transport error",
			err:         errors.New("connection reset"),
			wantFailure: ai.FailureTransport,
		},
		{
			name:        "garbage output",
			text:        "<html>502 Bad Gateway</html>",
			wantFailure: ai.FailureUnparseable,
		},
		{
			name:        "missing fields",
			text:        `{"sentiment":1}`,
			wantFailure: ai.FailureUnparseable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			generator := &fakeGenerator{text: tt.text, err: tt.err}
			scorer := ai.NewScorer(generator, nil, zap.NewNop())

			score := scorer.Score(t.Context(), input)

			assert.Equal(t, tt.wantFailure, score.Failure)
			assert.Equal(t, 1, generator.calls())
			assertInRange(t, score.Result)

			if tt.wantFailure != ai.FailureNone {
				require.Error(t, score.Err)
				assert.Equal(t, ai.DefaultScoreResult(), score.Result)
			} else {
				require.NoError(t, score.Err)
				assert.InDelta(t, 0.8, score.Result.EngagementPotential, 1e-9)
			}
		})
	}
}

func TestScorerPromptIsDeterministic(t *testing.T) {
	t.Parallel()

	generator := &fakeGenerator{err: errors.New("offline")}
	scorer := ai.NewScorer(generator, nil, zap.NewNop())

	input := &ai.MessageInput{ID: 1, ChannelID: "9", Content: "hi there", MentionCount: 1, IsReply: true}
	scorer.Score(t.Context(), input)
	scorer.Score(t.Context(), input)

	require.Len(t, generator.prompts, 2)
	assert.Equal(t, generator.prompts[0], generator.prompts[1])
	assert.Contains(t, generator.prompts[0], `"content":"hi there"`)
	assert.Contains(t, generator.prompts[0], `"isReply":true`)
	assert.Contains(t, generator.prompts[0], `"mentionCount":1`)
}

func TestScorerRecordsOutcomeMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	manager := metrics.NewManager(metrics.WithRegistry(registry))

	scorer := ai.NewScorer(&fakeGenerator{text: "nope"}, manager, zap.NewNop())
	scorer.Score(t.Context(), &ai.MessageInput{ID: 1, Content: "x"})

	count, err := testutil.GatherAndCount(registry, "guildpulse_analysis_scorer_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScoreResultMessageScores(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	scores := ai.DefaultScoreResult().MessageScores(at)

	assert.InDelta(t, 0.5, scores.QualityScore, 1e-9)
	assert.Equal(t, enum.MessageCategoryCasual, scores.ActivityCategory)
	assert.Equal(t, at, scores.AnalyzedAt)
}

func TestScoreSchemaMatchesCategories(t *testing.T) {
	t.Parallel()

	categories := make([]string, 0, len(enum.MessageCategories))
	for _, c := range enum.MessageCategories {
		categories = append(categories, string(c))
	}

	require.Contains(t, ai.ScoreSchema.Properties, "activityCategory")
	assert.Equal(t, categories, ai.ScoreSchema.Properties["activityCategory"].Enum)

	for name := range ai.ScoreSchema.Properties {
		assert.Contains(t, ai.ScoreSchema.Required, name)
	}
}
