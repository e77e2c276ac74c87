package rest

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/redis/rueidis"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/internal/rest/handler"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Server implements the REST API service.
type Server struct {
	serverHandler   *handler.ServerHandler
	platformHandler *handler.PlatformHandler
}

// NewServer creates the read API. Responses are cached in the given redis
// client for the configured TTL; a nil client disables the cache.
func NewServer(
	reader handler.Reader,
	cacheClient rueidis.Client,
	metricsManager *metrics.Manager,
	cfg *config.API,
	logger *zap.Logger,
) http.Handler {
	cache := handler.NewCache(cacheClient, time.Duration(cfg.CacheTTL)*time.Second, logger)

	server := &Server{
		serverHandler:   handler.NewServerHandler(reader, cache, logger),
		platformHandler: handler.NewPlatformHandler(reader, cache, logger),
	}

	router := bunrouter.New(
		bunrouter.WithNotFoundHandler(func(w http.ResponseWriter, _ bunrouter.Request) error {
			http.Error(w, "Not found", http.StatusNotFound)
			return nil
		}),
	)

	router.WithGroup("/v1", func(g *bunrouter.Group) {
		g.GET("/health", server.platformHandler.Health)
		g.GET("/servers/public", server.serverHandler.ListPublic)
		g.GET("/servers/:id/stats", server.serverHandler.GetStats)
		g.GET("/servers/:id/leaderboard", server.serverHandler.GetLeaderboard)
		g.GET("/platform/stats", server.platformHandler.Stats)
		g.GET("/trending/servers", server.serverHandler.ListTrending)
	})

	router.GET("/metrics", bunrouter.HTTPHandler(metricsManager.Handler()))

	// Add gzip compression
	return gzhttp.GzipHandler(router)
}
