package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/guildpulse/internal/database/types"
	restTypes "github.com/robalyx/guildpulse/internal/rest/types"
	"github.com/uptrace/bunrouter"
)

// Reader is the read side of the persistence layer used by the API.
type Reader interface {
	ListPublicGuilds(ctx context.Context, page, limit int, sortBy string) ([]*types.Guild, int, error)
	ListTrendingGuilds(ctx context.Context, limit int) ([]*types.Guild, error)
	GetGuild(ctx context.Context, guildID uint64) (*types.Guild, error)
	GetLeaderboard(ctx context.Context, guildID uint64, limit int) ([]*types.GuildMember, error)
	GetPlatformStats(ctx context.Context) (*types.PlatformStats, error)
}

// writeJSON writes an already encoded JSON body.
func writeJSON(w http.ResponseWriter, data []byte) error {
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write(data)
	return err
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, message string) error {
	data, err := sonic.Marshal(restTypes.ErrorResponse{Error: message})
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// parseID parses the :id route parameter as a Discord snowflake.
func parseID(req bunrouter.Request) (snowflake.ID, bool) {
	id, err := snowflake.Parse(req.Param("id"))
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, falling back to def and
// capping at maxValue.
func queryInt(req bunrouter.Request, name string, def, maxValue int) int {
	value, err := strconv.Atoi(req.URL.Query().Get(name))
	if err != nil || value < 1 {
		return def
	}
	return min(value, maxValue)
}
