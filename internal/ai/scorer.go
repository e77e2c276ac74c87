package ai

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/generative-ai-go/genai"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/robalyx/guildpulse/internal/database/types/enum"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/pkg/utils"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
	"go.uber.org/zap"
)

const (
	// MaxEmotions is the number of emotion labels kept per message.
	MaxEmotions = 5
	// MaxTopics is the number of topic labels kept per message.
	MaxTopics = 5
)

// Failure classifies why a score fell back to the default result.
type Failure int

const (
	FailureNone Failure = iota
	// FailureTransport covers network errors, timeouts and empty model responses.
	FailureTransport
	// FailureUnparseable covers responses without a usable JSON object.
	FailureUnparseable
)

// String returns the metrics label of the failure.
func (f Failure) String() string {
	switch f {
	case FailureNone:
		return metrics.OutcomeParsed
	case FailureTransport:
		return metrics.OutcomeTransport
	case FailureUnparseable:
		return metrics.OutcomeUnparseable
	default:
		return "unknown"
	}
}

// ScoreResult is the validated, range-bounded output for one message.
type ScoreResult struct {
	Sentiment           float64
	Toxicity            float64
	Constructiveness    float64
	AILikelihood        float64
	QualityScore        float64
	EngagementPotential float64
	ActivityCategory    enum.MessageCategory
	Emotions            []string
	Topics              []string
}

// DefaultScoreResult returns the neutral result used whenever scoring fails.
func DefaultScoreResult() ScoreResult {
	return ScoreResult{
		Sentiment:           0,
		Toxicity:            0,
		Constructiveness:    0.5,
		AILikelihood:        0,
		QualityScore:        0.5,
		EngagementPotential: 0.5,
		ActivityCategory:    enum.MessageCategoryCasual,
		Emotions:            []string{"neutral"},
		Topics:              []string{},
	}
}

// MessageScores converts the result into the persisted score tuple.
func (r ScoreResult) MessageScores(analyzedAt time.Time) *types.MessageScores {
	return &types.MessageScores{
		Sentiment:           r.Sentiment,
		Toxicity:            r.Toxicity,
		Constructiveness:    r.Constructiveness,
		AILikelihood:        r.AILikelihood,
		QualityScore:        r.QualityScore,
		EngagementPotential: r.EngagementPotential,
		ActivityCategory:    r.ActivityCategory,
		Emotions:            r.Emotions,
		Topics:              r.Topics,
		AnalyzedAt:          analyzedAt,
	}
}

// Score is the outcome of one scoring call. Result always holds a usable
// value; on failure it is the default result.
type Score struct {
	Result  ScoreResult
	Failure Failure
	Err     error
}

// OK reports whether the result came from a parsed model response.
func (s Score) OK() bool {
	return s.Failure == FailureNone
}

// rawScore mirrors the model's JSON. Pointer fields detect missing keys.
type rawScore struct {
	Sentiment           *float64 `json:"sentiment"`
	Toxicity            *float64 `json:"toxicity"`
	Constructiveness    *float64 `json:"constructiveness"`
	AILikelihood        *float64 `json:"aiLikelihood"`
	QualityScore        *float64 `json:"qualityScore"`
	EngagementPotential *float64 `json:"engagementPotential"`
	ActivityCategory    string   `json:"activityCategory"`
	Emotions            []string `json:"emotions"`
	Topics              []string `json:"topics"`
}

// MessageInput is the message content and lightweight context sent for scoring.
type MessageInput struct {
	ID             uint64 `json:"-"`
	ChannelID      string `json:"channelId"`
	Content        string `json:"content"`
	HasAttachments bool   `json:"hasAttachments"`
	HasEmbeds      bool   `json:"hasEmbeds"`
	MentionCount   int    `json:"mentionCount"`
	IsReply        bool   `json:"isReply"`
	ContentLength  int    `json:"contentLength"`
	WordCount      int    `json:"wordCount"`
}

// NewMessageInput builds the scoring input of a stored message.
func NewMessageInput(msg *types.Message) *MessageInput {
	return &MessageInput{
		ID:             msg.ID,
		ChannelID:      strconv.FormatUint(msg.ChannelID, 10),
		Content:        msg.Content,
		HasAttachments: msg.HasAttachments,
		HasEmbeds:      msg.HasEmbeds,
		MentionCount:   msg.MentionCount,
		IsReply:        msg.IsReply(),
		ContentLength:  msg.ContentLength,
		WordCount:      msg.WordCount,
	}
}

// ScoreSchema constrains Gemini's structured output for message scoring.
var ScoreSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"sentiment":           {Type: genai.TypeNumber, Description: "Sentiment from -1 to 1"},
		"toxicity":            {Type: genai.TypeNumber, Description: "Toxicity from 0 to 1"},
		"constructiveness":    {Type: genai.TypeNumber, Description: "Constructiveness from 0 to 1"},
		"aiLikelihood":        {Type: genai.TypeNumber, Description: "Likelihood of machine generated text from 0 to 1"},
		"qualityScore":        {Type: genai.TypeNumber, Description: "Content quality from 0 to 1"},
		"engagementPotential": {Type: genai.TypeNumber, Description: "Engagement potential from 0 to 1"},
		"activityCategory": {
			Type:   genai.TypeString,
			Format: "enum",
			Enum:   []string{"discussion", "question", "announcement", "casual", "support", "spam"},
		},
		"emotions": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"topics":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{
		"sentiment", "toxicity", "constructiveness", "aiLikelihood",
		"qualityScore", "engagementPotential", "activityCategory", "emotions", "topics",
	},
}

// DefaultScoreOptions are the sampling settings for per-message scoring.
func DefaultScoreOptions() GenerateOptions {
	return GenerateOptions{
		System:      ScoreSystemPrompt,
		Temperature: 0.1,
		TopP:        0.8,
		TopK:        1,
		MaxTokens:   1024,
		Schema:      ScoreSchema,
	}
}

// Scorer scores single messages with a generative model. It never returns an
// error: every failure collapses to the default result.
type Scorer struct {
	generator Generator
	options   GenerateOptions
	minify    *minify.M
	metrics   *metrics.Manager
	logger    *zap.Logger
}

// NewScorer creates a new message scorer.
func NewScorer(generator Generator, metricsManager *metrics.Manager, logger *zap.Logger) *Scorer {
	m := minify.New()
	m.AddFunc(ApplicationJSON, json.Minify)

	return &Scorer{
		generator: generator,
		options:   DefaultScoreOptions(),
		minify:    m,
		metrics:   metricsManager,
		logger:    logger.Named("ai_scorer"),
	}
}

// Score performs exactly one model call for the message.
func (s *Scorer) Score(ctx context.Context, input *MessageInput) Score {
	start := time.Now()
	score := s.score(ctx, input)
	s.metrics.ObserveScore(score.Failure.String(), time.Since(start))

	if !score.OK() {
		s.logger.Warn("Message scoring fell back to defaults",
			zap.Uint64("messageID", input.ID),
			zap.String("failure", score.Failure.String()),
			zap.Error(score.Err))
	}

	return score
}

func (s *Scorer) score(ctx context.Context, input *MessageInput) Score {
	prompt, err := s.buildPrompt(input)
	if err != nil {
		return Score{Result: DefaultScoreResult(), Failure: FailureUnparseable, Err: err}
	}

	text, err := s.generator.Generate(ctx, prompt, s.options)
	if err != nil {
		return Score{Result: DefaultScoreResult(), Failure: FailureTransport, Err: err}
	}

	result, err := ParseScore(text)
	if err != nil {
		s.logger.Debug("Unparseable model response",
			zap.Uint64("messageID", input.ID),
			zap.String("response", text))

		return Score{Result: DefaultScoreResult(), Failure: FailureUnparseable, Err: err}
	}

	return Score{Result: result}
}

// buildPrompt renders the deterministic per-message prompt.
func (s *Scorer) buildPrompt(input *MessageInput) (string, error) {
	payload, err := sonic.ConfigStd.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message input: %w", err)
	}

	minified, err := s.minify.Bytes(ApplicationJSON, payload)
	if err != nil {
		return "", fmt.Errorf("failed to minify JSON: %w", err)
	}

	return fmt.Sprintf(ScorePrompt, minified), nil
}

// ParseScore extracts, decodes, validates and clamps a model response.
func ParseScore(text string) (ScoreResult, error) {
	object, err := ExtractJSONObject(text)
	if err != nil {
		return ScoreResult{}, err
	}

	var raw rawScore
	if err := sonic.UnmarshalString(object, &raw); err != nil {
		return ScoreResult{}, fmt.Errorf("failed to decode score: %w", err)
	}

	required := []struct {
		name  string
		value *float64
	}{
		{"sentiment", raw.Sentiment},
		{"toxicity", raw.Toxicity},
		{"constructiveness", raw.Constructiveness},
		{"aiLikelihood", raw.AILikelihood},
		{"qualityScore", raw.QualityScore},
		{"engagementPotential", raw.EngagementPotential},
	}
	for _, field := range required {
		if field.value == nil {
			return ScoreResult{}, fmt.Errorf("%w: %s", ErrMissingField, field.name)
		}
	}

	emotions := utils.TrimList(raw.Emotions, MaxEmotions)
	if len(emotions) == 0 {
		emotions = []string{"neutral"}
	}

	return ScoreResult{
		Sentiment:           utils.Clamp(*raw.Sentiment, -1, 1),
		Toxicity:            utils.Clamp01(*raw.Toxicity),
		Constructiveness:    utils.Clamp01(*raw.Constructiveness),
		AILikelihood:        utils.Clamp01(*raw.AILikelihood),
		QualityScore:        utils.Clamp01(*raw.QualityScore),
		EngagementPotential: utils.Clamp01(*raw.EngagementPotential),
		ActivityCategory:    enum.ParseMessageCategory(raw.ActivityCategory),
		Emotions:            emotions,
		Topics:              utils.TrimList(raw.Topics, MaxTopics),
	}, nil
}
