package ai

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"github.com/robalyx/guildpulse/pkg/utils"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
	"go.uber.org/zap"
)

const (
	// MaxCommunityMessages caps the message sample sent to the summary pass.
	MaxCommunityMessages = 50
	// MaxCommunityItems caps each returned list.
	MaxCommunityItems = 5
	// DefaultOverallRating is used when the summary pass fails.
	DefaultOverallRating = 3
)

// CommunityInput is the aggregate view of one batch sent to the summary pass.
type CommunityInput struct {
	GuildName     string   `json:"guildName"`
	MemberCount   int      `json:"memberCount"`
	BatchSize     int      `json:"batchSize"`
	MeanSentiment float64  `json:"meanSentiment"`
	MeanToxicity  float64  `json:"meanToxicity"`
	TopCategories []string `json:"topCategories"`
	Messages      []string `json:"messages"`
}

// CommunitySummary is the free-text health assessment of a guild.
type CommunitySummary struct {
	PositiveIndicators []string
	Concerns           []string
	Recommendations    []string
	OverallRating      float64
}

// DefaultCommunitySummary returns the summary used when the model call fails.
func DefaultCommunitySummary() CommunitySummary {
	return CommunitySummary{
		PositiveIndicators: []string{"Active community"},
		Concerns:           []string{},
		Recommendations:    []string{"Continue engaging with community"},
		OverallRating:      DefaultOverallRating,
	}
}

type rawCommunitySummary struct {
	PositiveIndicators []string `json:"positiveIndicators"`
	Concerns           []string `json:"concerns"`
	Recommendations    []string `json:"recommendations"`
	OverallRating      *float64 `json:"overallRating"`
}

// CommunitySchema constrains Gemini's structured output for the summary pass.
var CommunitySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"positiveIndicators": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"concerns":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"recommendations":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"overallRating":      {Type: genai.TypeNumber, Description: "Overall rating from 1 to 5"},
	},
	Required: []string{"positiveIndicators", "concerns", "recommendations", "overallRating"},
}

// CommunityAnalyzer runs the holistic health pass over a whole batch.
type CommunityAnalyzer struct {
	generator Generator
	options   GenerateOptions
	minify    *minify.M
	logger    *zap.Logger
}

// NewCommunityAnalyzer creates a new community analyzer.
func NewCommunityAnalyzer(generator Generator, logger *zap.Logger) *CommunityAnalyzer {
	m := minify.New()
	m.AddFunc(ApplicationJSON, json.Minify)

	return &CommunityAnalyzer{
		generator: generator,
		options: GenerateOptions{
			System:      CommunitySystemPrompt,
			Temperature: 0.2,
			TopP:        0.8,
			TopK:        1,
			MaxTokens:   1024,
			Schema:      CommunitySchema,
		},
		minify: m,
		logger: logger.Named("ai_community"),
	}
}

// Summarize returns the model's assessment of the batch. On any failure it
// returns the default summary together with the error.
func (a *CommunityAnalyzer) Summarize(ctx context.Context, input *CommunityInput) (CommunitySummary, error) {
	if len(input.Messages) > MaxCommunityMessages {
		input.Messages = input.Messages[:MaxCommunityMessages]
	}

	payload, err := sonic.ConfigStd.Marshal(input)
	if err != nil {
		return DefaultCommunitySummary(), fmt.Errorf("failed to marshal community input: %w", err)
	}

	minified, err := a.minify.Bytes(ApplicationJSON, payload)
	if err != nil {
		return DefaultCommunitySummary(), fmt.Errorf("failed to minify JSON: %w", err)
	}

	prompt := fmt.Sprintf(CommunityPrompt, minified)

	summary, err := utils.WithRetry(ctx, func() (CommunitySummary, error) {
		text, err := a.generator.Generate(ctx, prompt, a.options)
		if err != nil {
			return CommunitySummary{}, err
		}

		summary, err := ParseCommunitySummary(text)
		if err != nil {
			a.logger.Debug("Unparseable community summary", zap.String("response", text))
			return CommunitySummary{}, backoff.Permanent(err)
		}

		return summary, nil
	}, utils.GetAIRetryOptions())
	if err != nil {
		return DefaultCommunitySummary(), fmt.Errorf("community summary failed: %w", err)
	}

	return summary, nil
}

// ParseCommunitySummary extracts and bounds a summary response.
func ParseCommunitySummary(text string) (CommunitySummary, error) {
	object, err := ExtractJSONObject(text)
	if err != nil {
		return CommunitySummary{}, err
	}

	var raw rawCommunitySummary
	if err := sonic.UnmarshalString(object, &raw); err != nil {
		return CommunitySummary{}, fmt.Errorf("failed to decode community summary: %w", err)
	}

	summary := CommunitySummary{
		PositiveIndicators: utils.TrimList(raw.PositiveIndicators, MaxCommunityItems),
		Concerns:           utils.TrimList(raw.Concerns, MaxCommunityItems),
		Recommendations:    utils.TrimList(raw.Recommendations, MaxCommunityItems),
		OverallRating:      DefaultOverallRating,
	}
	if raw.OverallRating != nil {
		summary.OverallRating = utils.Clamp(*raw.OverallRating, 1, 5)
	}

	return summary, nil
}
