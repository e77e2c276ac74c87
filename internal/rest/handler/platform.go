package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/robalyx/guildpulse/internal/rest/convert"
	restTypes "github.com/robalyx/guildpulse/internal/rest/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// PlatformHandler handles platform-wide REST endpoints.
type PlatformHandler struct {
	reader Reader
	cache  *Cache
	logger *zap.Logger
}

// NewPlatformHandler creates a new platform handler.
func NewPlatformHandler(reader Reader, cache *Cache, logger *zap.Logger) *PlatformHandler {
	return &PlatformHandler{
		reader: reader,
		cache:  cache,
		logger: logger.Named("platform_handler"),
	}
}

// Health reports that the API is serving requests.
func (h *PlatformHandler) Health(w http.ResponseWriter, _ bunrouter.Request) error {
	return bunrouter.JSON(w, restTypes.HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC(),
	})
}

// Stats returns totals and averages across all active servers.
func (h *PlatformHandler) Stats(w http.ResponseWriter, req bunrouter.Request) error {
	data, err := h.cache.Fetch(req.Context(), "platform", func(ctx context.Context) (any, error) {
		stats, err := h.reader.GetPlatformStats(ctx)
		if err != nil {
			return nil, err
		}

		return convert.PlatformStats(stats), nil
	})
	if err != nil {
		h.logger.Error("Failed to get platform stats", zap.Error(err))
		return writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return writeJSON(w, data)
}
