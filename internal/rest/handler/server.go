package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/robalyx/guildpulse/internal/database/models"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/robalyx/guildpulse/internal/rest/convert"
	restTypes "github.com/robalyx/guildpulse/internal/rest/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Listing limits.
const (
	DefaultPageSize        = 20
	MaxPageSize            = 100
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
	DefaultTrendingSize    = 10
	MaxTrendingSize        = 50
)

// sortParams maps the accepted sort query values to listing orders.
var sortParams = map[string]string{
	"health":     models.GuildSortHealth,
	"members":    models.GuildSortMembers,
	"activity":   models.GuildSortActivity,
	"engagement": models.GuildSortEngagement,
}

// ServerHandler handles server-related REST endpoints.
type ServerHandler struct {
	reader Reader
	cache  *Cache
	logger *zap.Logger
}

// NewServerHandler creates a new server handler.
func NewServerHandler(reader Reader, cache *Cache, logger *zap.Logger) *ServerHandler {
	return &ServerHandler{
		reader: reader,
		cache:  cache,
		logger: logger.Named("server_handler"),
	}
}

// ListPublic lists active public servers ordered by the requested metric.
func (h *ServerHandler) ListPublic(w http.ResponseWriter, req bunrouter.Request) error {
	page := queryInt(req, "page", 1, 1<<20)
	limit := queryInt(req, "limit", DefaultPageSize, MaxPageSize)

	sortBy, ok := sortParams[req.URL.Query().Get("sort")]
	if !ok {
		sortBy = models.GuildSortHealth
	}

	key := fmt.Sprintf("servers:%d:%d:%s", page, limit, sortBy)
	data, err := h.cache.Fetch(req.Context(), key, func(ctx context.Context) (any, error) {
		guilds, total, err := h.reader.ListPublicGuilds(ctx, page, limit, sortBy)
		if err != nil {
			return nil, err
		}

		return restTypes.ListServersResponse{
			Servers: convert.Servers(guilds),
			Page:    page,
			Limit:   limit,
			Total:   total,
		}, nil
	})
	if err != nil {
		h.logger.Error("Failed to list public servers", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, data)
}

// GetStats returns the health record and counters of a public server.
func (h *ServerHandler) GetStats(w http.ResponseWriter, req bunrouter.Request) error {
	id, ok := parseID(req)
	if !ok {
		return writeError(w, http.StatusBadRequest, "Invalid server ID")
	}

	data, err := h.cache.Fetch(req.Context(), "stats:"+id.String(), func(ctx context.Context) (any, error) {
		guild, err := h.reader.GetGuild(ctx, uint64(id))
		if err != nil {
			return nil, err
		}

		if !guild.IsActive || !guild.IsPublic {
			return nil, types.ErrGuildNotFound
		}

		return restTypes.ServerStatsResponse{Server: convert.ServerStats(guild)}, nil
	})
	if err != nil {
		if errors.Is(err, types.ErrGuildNotFound) {
			return writeError(w, http.StatusNotFound, "Server not found")
		}

		h.logger.Error("Failed to get server stats", zap.String("serverID", id.String()), zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, data)
}

// GetLeaderboard returns the members of a server ranked by guild score.
func (h *ServerHandler) GetLeaderboard(w http.ResponseWriter, req bunrouter.Request) error {
	id, ok := parseID(req)
	if !ok {
		return writeError(w, http.StatusBadRequest, "Invalid server ID")
	}

	limit := queryInt(req, "limit", DefaultLeaderboardSize, MaxLeaderboardSize)

	key := fmt.Sprintf("leaderboard:%s:%d", id, limit)
	data, err := h.cache.Fetch(req.Context(), key, func(ctx context.Context) (any, error) {
		members, err := h.reader.GetLeaderboard(ctx, uint64(id), limit)
		if err != nil {
			return nil, err
		}

		return restTypes.LeaderboardResponse{
			ServerID: uint64(id),
			Members:  convert.Leaderboard(members),
		}, nil
	})
	if err != nil {
		h.logger.Error("Failed to get leaderboard", zap.String("serverID", id.String()), zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, data)
}

// ListTrending lists the public servers with the most messages today.
func (h *ServerHandler) ListTrending(w http.ResponseWriter, req bunrouter.Request) error {
	limit := queryInt(req, "limit", DefaultTrendingSize, MaxTrendingSize)

	data, err := h.cache.Fetch(req.Context(), fmt.Sprintf("trending:%d", limit), func(ctx context.Context) (any, error) {
		guilds, err := h.reader.ListTrendingGuilds(ctx, limit)
		if err != nil {
			return nil, err
		}

		return restTypes.TrendingResponse{Servers: convert.Servers(guilds)}, nil
	})
	if err != nil {
		h.logger.Error("Failed to list trending servers", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, data)
}
