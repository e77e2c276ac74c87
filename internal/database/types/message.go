package types

import (
	"time"

	"github.com/robalyx/guildpulse/internal/database/types/enum"
)

// Message is a stored guild message. Score fields stay nil until the message
// has been analyzed.
type Message struct {
	ID                  uint64               `bun:",pk"                json:"id,string"`
	GuildID             uint64               `bun:",notnull"           json:"guildId,string"`
	ChannelID           uint64               `bun:",notnull"           json:"channelId,string"`
	AuthorID            uint64               `bun:",notnull"           json:"authorId,string"`
	Content             string               `bun:",notnull"           json:"content"`
	ContentLength       int                  `bun:",notnull,default:0" json:"contentLength"`
	WordCount           int                  `bun:",notnull,default:0" json:"wordCount"`
	HasAttachments      bool                 `bun:",notnull"           json:"hasAttachments"`
	HasEmbeds           bool                 `bun:",notnull"           json:"hasEmbeds"`
	MentionCount        int                  `bun:",notnull,default:0" json:"mentionCount"`
	ReplyToID           uint64               `bun:",nullzero"          json:"replyToId,string"`
	SentAt              time.Time            `bun:",notnull"           json:"sentAt"`
	Sentiment           *float64             `json:"sentiment"`
	Toxicity            *float64             `json:"toxicity"`
	Constructiveness    *float64             `json:"constructiveness"`
	AILikelihood        *float64             `bun:"ai_likelihood"      json:"aiLikelihood"`
	QualityScore        *float64             `json:"qualityScore"`
	EngagementPotential *float64             `json:"engagementPotential"`
	ActivityCategory    enum.MessageCategory `bun:",nullzero"          json:"activityCategory"`
	Emotions            []string             `bun:",array"             json:"emotions"`
	Topics              []string             `bun:",array"             json:"topics"`
	AnalyzedAt          *time.Time           `json:"analyzedAt"`
}

// IsReply reports whether the message references another message.
func (m *Message) IsReply() bool {
	return m.ReplyToID != 0
}

// MessageScores is the validated score tuple written back for one message.
type MessageScores struct {
	Sentiment           float64
	Toxicity            float64
	Constructiveness    float64
	AILikelihood        float64
	QualityScore        float64
	EngagementPotential float64
	ActivityCategory    enum.MessageCategory
	Emotions            []string
	Topics              []string
	AnalyzedAt          time.Time
}

// Scores returns the stored score tuple, or nil if the message is unanalyzed
// or any score field is missing.
func (m *Message) Scores() *MessageScores {
	if m.AnalyzedAt == nil || m.Sentiment == nil || m.Toxicity == nil || m.Constructiveness == nil ||
		m.AILikelihood == nil || m.QualityScore == nil || m.EngagementPotential == nil {
		return nil
	}

	return &MessageScores{
		Sentiment:           *m.Sentiment,
		Toxicity:            *m.Toxicity,
		Constructiveness:    *m.Constructiveness,
		AILikelihood:        *m.AILikelihood,
		QualityScore:        *m.QualityScore,
		EngagementPotential: *m.EngagementPotential,
		ActivityCategory:    m.ActivityCategory,
		Emotions:            m.Emotions,
		Topics:              m.Topics,
		AnalyzedAt:          *m.AnalyzedAt,
	}
}
