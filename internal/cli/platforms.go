package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/adapters/platforms"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/config"
)

// pingTimeout bounds the startup credential check of one platform.
const pingTimeout = 5 * time.Second

// NewPlatformClients creates the clients of every enabled platform and
// reports the ones whose credentials are incomplete. A platform with bad
// credentials stays registered so that its failures show up in the sync log.
func NewPlatformClients(ctx context.Context, cfg config.PlatformsConfig, logger *slog.Logger) (platforms.Registry, map[platform.ID]error) {
	registry := platforms.NewRegistry(cfg, logger)

	problems := make(map[platform.ID]error)
	for _, id := range cfg.Enabled() {
		client, err := registry.Get(id)
		if err != nil {
			problems[id] = err
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = client.Ping(pingCtx)
		cancel()
		if err == nil {
			continue
		}
		problems[id] = err
		if errors.Is(err, platforms.ErrMissingCredentials) {
			logger.Warn("platform credentials incomplete", "platform", id, "error", err)
		} else {
			logger.Warn("platform connection check failed", "platform", id, "error", err)
		}
	}
	return registry, problems
}
