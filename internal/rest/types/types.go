package types

import "time"

// Server is the public view of a guild and its latest health record.
type Server struct {
	ID              uint64    `json:"id,string"`
	Name            string    `json:"name"`
	Icon            string    `json:"icon"`
	MemberCount     int       `json:"memberCount"`
	HealthScore     float64   `json:"healthScore"`
	ActivityLevel   string    `json:"activityLevel"`
	ToxicityLevel   float64   `json:"toxicityLevel"`
	EngagementScore float64   `json:"engagementScore"`
	SentimentScore  float64   `json:"sentimentScore"`
	OverallRating   float64   `json:"overallRating"`
	DailyMessages   int64     `json:"dailyMessages"`
	LastAnalyzed    time.Time `json:"lastAnalyzed"`
}

// ServerStats is a server together with its counters and community summary.
type ServerStats struct {
	Server

	TotalMessages   int64     `json:"totalMessages"`
	WeeklyMessages  int64     `json:"weeklyMessages"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
	Indicators      []string  `json:"indicators"`
	Concerns        []string  `json:"concerns"`
	Recommendations []string  `json:"recommendations"`
}

// LeaderboardEntry is one ranked member of a server.
type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	UserID        uint64    `json:"userId,string"`
	Username      string    `json:"username"`
	MessageCount  int64     `json:"messageCount"`
	GuildScore    float64   `json:"guildScore"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// ListServersResponse is the response of the public server listing.
type ListServersResponse struct {
	Servers []*Server `json:"servers"`
	Page    int       `json:"page"`
	Limit   int       `json:"limit"`
	Total   int       `json:"total"`
}

// ServerStatsResponse is the response of the server stats endpoint.
type ServerStatsResponse struct {
	Server *ServerStats `json:"server"`
}

// LeaderboardResponse is the response of the server leaderboard endpoint.
type LeaderboardResponse struct {
	ServerID uint64              `json:"serverId,string"`
	Members  []*LeaderboardEntry `json:"members"`
}

// TrendingResponse is the response of the trending servers endpoint.
type TrendingResponse struct {
	Servers []*Server `json:"servers"`
}

// PlatformStatsResponse holds totals across all active servers.
type PlatformStatsResponse struct {
	TotalServers     int     `json:"totalServers"`
	TotalMembers     int64   `json:"totalMembers"`
	TotalMessages    int64   `json:"totalMessages"`
	DailyMessages    int64   `json:"dailyMessages"`
	AvgHealthScore   float64 `json:"avgHealthScore"`
	AvgToxicity      float64 `json:"avgToxicity"`
	AnalyzedMessages int64   `json:"analyzedMessages"`
}

// HealthResponse is the liveness response.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
