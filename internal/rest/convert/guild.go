package convert

import (
	"github.com/robalyx/guildpulse/internal/database/types"
	restTypes "github.com/robalyx/guildpulse/internal/rest/types"
)

// Server converts a guild row to the public server view.
func Server(guild *types.Guild) *restTypes.Server {
	if guild == nil {
		return nil
	}

	return &restTypes.Server{
		ID:              guild.ID,
		Name:            guild.Name,
		Icon:            guild.Icon,
		MemberCount:     guild.MemberCount,
		HealthScore:     guild.HealthScore,
		ActivityLevel:   string(guild.ActivityLevel),
		ToxicityLevel:   guild.ToxicityLevel,
		EngagementScore: guild.EngagementScore,
		SentimentScore:  guild.SentimentScore,
		OverallRating:   guild.OverallRating,
		DailyMessages:   guild.DailyMessages,
		LastAnalyzed:    guild.LastAnalyzed,
	}
}

// Servers converts a list of guild rows.
func Servers(guilds []*types.Guild) []*restTypes.Server {
	servers := make([]*restTypes.Server, 0, len(guilds))
	for _, guild := range guilds {
		servers = append(servers, Server(guild))
	}
	return servers
}

// ServerStats converts a guild row to the detailed stats view.
func ServerStats(guild *types.Guild) *restTypes.ServerStats {
	if guild == nil {
		return nil
	}

	return &restTypes.ServerStats{
		Server:          *Server(guild),
		TotalMessages:   guild.TotalMessages,
		WeeklyMessages:  guild.WeeklyMessages,
		LastMessageAt:   guild.LastMessageAt,
		Indicators:      nonNil(guild.HealthIndicators),
		Concerns:        nonNil(guild.HealthConcerns),
		Recommendations: nonNil(guild.HealthRecommendations),
	}
}

// Leaderboard converts members into ranked entries.
func Leaderboard(members []*types.GuildMember) []*restTypes.LeaderboardEntry {
	entries := make([]*restTypes.LeaderboardEntry, 0, len(members))
	for i, member := range members {
		entries = append(entries, &restTypes.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        member.UserID,
			Username:      member.Username,
			MessageCount:  member.MessageCount,
			GuildScore:    member.GuildScore,
			LastMessageAt: member.LastMessageAt,
		})
	}
	return entries
}

// PlatformStats converts aggregated platform totals.
func PlatformStats(stats *types.PlatformStats) *restTypes.PlatformStatsResponse {
	return &restTypes.PlatformStatsResponse{
		TotalServers:     stats.TotalGuilds,
		TotalMembers:     stats.TotalMembers,
		TotalMessages:    stats.TotalMessages,
		DailyMessages:    stats.DailyMessages,
		AvgHealthScore:   stats.AvgHealthScore,
		AvgToxicity:      stats.AvgToxicity,
		AnalyzedMessages: stats.AnalyzedMessages,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
