package types

import (
	"errors"
	"time"

	"github.com/robalyx/guildpulse/internal/database/types/enum"
)

// ErrGuildNotFound is returned when a guild row does not exist.
var ErrGuildNotFound = errors.New("guild not found")

// Guild is a Discord server together with its latest health record.
type Guild struct {
	ID                    uint64             `bun:",pk"                            json:"id,string"`
	Name                  string             `bun:",notnull"                       json:"name"`
	Icon                  string             `bun:",notnull,default:''"            json:"icon"`
	MemberCount           int                `bun:",notnull,default:0"             json:"memberCount"`
	IsActive              bool               `bun:",notnull,default:true"          json:"isActive"`
	IsPublic              bool               `bun:",notnull,default:true"          json:"isPublic"`
	HealthScore           float64            `bun:",notnull,default:0.5"           json:"healthScore"`
	ActivityLevel         enum.ActivityLevel `bun:",notnull,default:'low'"         json:"activityLevel"`
	ToxicityLevel         float64            `bun:",notnull,default:0"             json:"toxicityLevel"`
	EngagementScore       float64            `bun:",notnull,default:0.5"           json:"engagementScore"`
	SentimentScore        float64            `bun:",notnull,default:0"             json:"sentimentScore"`
	OverallRating         float64            `bun:",notnull,default:3"             json:"overallRating"`
	HealthIndicators      []string           `bun:",array"                         json:"healthIndicators"`
	HealthConcerns        []string           `bun:",array"                         json:"healthConcerns"`
	HealthRecommendations []string           `bun:",array"                         json:"healthRecommendations"`
	TotalMessages         int64              `bun:",notnull,default:0"             json:"totalMessages"`
	DailyMessages         int64              `bun:",notnull,default:0"             json:"dailyMessages"`
	WeeklyMessages        int64              `bun:",notnull,default:0"             json:"weeklyMessages"`
	LastMessageAt         time.Time          `bun:",nullzero"                      json:"lastMessageAt"`
	LastAnalyzed          time.Time          `bun:",nullzero"                      json:"lastAnalyzed"`
	CreatedAt             time.Time          `bun:",notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt             time.Time          `bun:",notnull,default:current_timestamp" json:"updatedAt"`
}

// GuildHealth is the output of one aggregation pass.
type GuildHealth struct {
	GuildID         uint64             `json:"guildId,string"`
	HealthScore     float64            `json:"healthScore"`     // [0,1]
	ActivityLevel   enum.ActivityLevel `json:"activityLevel"`
	ToxicityLevel   float64            `json:"toxicityLevel"`   // [0,1]
	EngagementScore float64            `json:"engagementScore"` // [0,1]
	SentimentScore  float64            `json:"sentimentScore"`  // [-1,1]
	QualityScore    float64            `json:"qualityScore"`    // [0,1], not persisted
	OverallRating   float64            `json:"overallRating"`   // [1,5]
	Indicators      []string           `json:"indicators"`
	Concerns        []string           `json:"concerns"`
	Recommendations []string           `json:"recommendations"`
	SampleSize      int                `json:"sampleSize"`
	Analyzed        int                `json:"analyzed"`
	Failed          int                `json:"failed"`
	Insufficient    bool               `json:"insufficient"`
	LastAnalyzed    time.Time          `json:"lastAnalyzed"`
}

// GuildSchedule is the minimal view the scheduler needs.
type GuildSchedule struct {
	ID           uint64    `bun:"id"`
	LastAnalyzed time.Time `bun:"last_analyzed,nullzero"`
}

// PlatformStats aggregates metrics across all active guilds.
type PlatformStats struct {
	TotalGuilds      int     `bun:"total_guilds"       json:"totalGuilds"`
	TotalMembers     int64   `bun:"total_members"      json:"totalMembers"`
	TotalMessages    int64   `bun:"total_messages"     json:"totalMessages"`
	DailyMessages    int64   `bun:"daily_messages"     json:"dailyMessages"`
	AvgHealthScore   float64 `bun:"avg_health"         json:"avgHealthScore"`
	AvgToxicity      float64 `bun:"avg_toxicity"       json:"avgToxicity"`
	AnalyzedMessages int64   `bun:"analyzed_messages"  json:"analyzedMessages"`
}
