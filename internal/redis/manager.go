package redis

import (
	"fmt"
	"sync"

	"github.com/redis/rueidis"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"go.uber.org/zap"
)

const (
	// CacheDBIndex holds cached REST responses.
	CacheDBIndex = 0

	// TriggerDBIndex holds the per-guild queued message counters.
	TriggerDBIndex = 1

	// WorkerStatusDBIndex holds worker heartbeats.
	WorkerStatusDBIndex = 2
)

// Manager keeps one rueidis client per logical database index.
// Each index gets its own connection pool.
type Manager struct {
	clients map[int]rueidis.Client
	config  *config.Redis
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewManager creates a manager; clients are opened lazily by GetClient.
func NewManager(config *config.Redis, logger *zap.Logger) *Manager {
	return &Manager{
		clients: make(map[int]rueidis.Client),
		config:  config,
		logger:  logger.Named("redis"),
	}
}

// GetClient retrieves or creates the client for dbIndex.
func (m *Manager) GetClient(dbIndex int) (rueidis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if client already exists
	if client, exists := m.clients[dbIndex]; exists {
		return client, nil
	}

	// Create new client with database selection
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)},
		Username:    m.config.Username,
		Password:    m.config.Password,
		SelectDB:    dbIndex,
		ClientName:  "guildpulse",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client for DB %d: %w", dbIndex, err)
	}

	// Store client in the pool
	m.clients[dbIndex] = client
	m.logger.Info("Created new Redis client", zap.Int("dbIndex", dbIndex))

	return client, nil
}

// Close shuts down every open client. Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Close all clients and clear the pool
	for dbIndex, client := range m.clients {
		client.Close()
		delete(m.clients, dbIndex)
		m.logger.Info("Closed Redis client", zap.Int("dbIndex", dbIndex))
	}
}
