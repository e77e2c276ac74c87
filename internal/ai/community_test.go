package ai_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseCommunitySummary(t *testing.T) {
	t.Parallel()

	summary, err := ai.ParseCommunitySummary(`Result: {"positiveIndicators":["Helpful answers","Friendly tone"],` +
		`"concerns":["Some spam"],"recommendations":["Add a spam filter","","Pin FAQ"],"overallRating":9}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Helpful answers", "Friendly tone"}, summary.PositiveIndicators)
	assert.Equal(t, []string{"Some spam"}, summary.Concerns)
	assert.Equal(t, []string{"Add a spam filter", "Pin FAQ"}, summary.Recommendations)
	assert.InDelta(t, 5.0, summary.OverallRating, 1e-9)

	summary, err = ai.ParseCommunitySummary(`{"positiveIndicators":[],"concerns":[],"recommendations":[]}`)
	require.NoError(t, err)
	assert.InDelta(t, float64(ai.DefaultOverallRating), summary.OverallRating, 1e-9)
}

func TestCommunityAnalyzerSummarize(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		generator := &fakeGenerator{
			text: `{"positiveIndicators":["Lively"],"concerns":[],"recommendations":["Keep it up"],"overallRating":4}`,
		}
		analyzer := ai.NewCommunityAnalyzer(generator, zap.NewNop())

		messages := make([]string, 80)
		for i := range messages {
			messages[i] = fmt.Sprintf("message %d", i)
		}

		summary, err := analyzer.Summarize(t.Context(), &ai.CommunityInput{
			GuildName: "Gophers",
			BatchSize: len(messages),
			Messages:  messages,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Lively"}, summary.PositiveIndicators)
		assert.InDelta(t, 4.0, summary.OverallRating, 1e-9)
		require.Len(t, generator.prompts, 1)
		assert.Contains(t, generator.prompts[0], "message 49")
		assert.NotContains(t, generator.prompts[0], "message 50")
	})

	t.Run("unparseable output is not retried", func(t *testing.T) {
		t.Parallel()

		generator := &fakeGenerator{text: "no idea"}
		analyzer := ai.NewCommunityAnalyzer(generator, zap.NewNop())

		summary, err := analyzer.Summarize(t.Context(), &ai.CommunityInput{GuildName: "Gophers"})
		require.Error(t, err)
		assert.Equal(t, ai.DefaultCommunitySummary(), summary)
		assert.Equal(t, 1, generator.calls())
	})

	t.Run("transport failure falls back to defaults", func(t *testing.T) {
		t.Parallel()

		generator := &fakeGenerator{err: errors.New("unavailable")}
		analyzer := ai.NewCommunityAnalyzer(generator, zap.NewNop())

		summary, err := analyzer.Summarize(t.Context(), &ai.CommunityInput{GuildName: "Gophers"})
		require.Error(t, err)
		assert.Equal(t, []string{"Active community"}, summary.PositiveIndicators)
		assert.Empty(t, summary.Concerns)
		assert.Equal(t, []string{"Continue engaging with community"}, summary.Recommendations)
		assert.Greater(t, generator.calls(), 1)
	})
}
