package cli

import (
	"time"

	"cookiesync/internal/config"
	"cookiesync/internal/configfile"
	"cookiesync/internal/cookiecloud"
	"cookiesync/internal/engine"
	"cookiesync/internal/httpapi"
	"cookiesync/internal/store"
)

// redisRetention bounds how long persisted cache entries are kept; stale
// entries inside the window still trigger a refetch via the TTL check.
const redisRetention = 24 * time.Hour

type application struct {
	cfg   config.Config
	orch  *engine.Orchestrator
	close func()
}

func buildApplication(configPath string) (*application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	remote := cookiecloud.NewClient(cfg.ServerURL, cfg.UUID, cfg.Password, cfg.Timeout)

	var cache engine.Cache = engine.NewMemoryCache()
	closeFn := func() {}
	if cfg.RedisAddr != "" {
		rc := store.NewRedisCache(cfg.RedisAddr, "cookiesync:cookie:", redisRetention)
		cache = rc
		closeFn = func() { _ = rc.Close() }
	}

	writer := configfile.NewWriter()
	fallbacks := configfile.LoadFallbacks(writer, cfg.Platforms)
	policy := engine.NewPolicy(cache, remote, fallbacks, cfg.CacheTTL, cfg.FallbackEnabled)
	orch := engine.NewOrchestrator(cfg.Platforms, policy, writer, cache, remote, cfg.CacheTTL, cfg.Timeout)

	return &application{cfg: cfg, orch: orch, close: closeFn}, nil
}

func (a *application) configView() httpapi.ConfigView {
	return httpapi.ConfigView{
		Enabled:          a.cfg.Enabled,
		CacheTTLSeconds:  int64(a.cfg.CacheTTL.Seconds()),
		FallbackEnabled:  a.cfg.FallbackEnabled,
		ServerConfigured: a.cfg.ServerURL != "",
		PlatformCount:    len(a.cfg.Platforms),
	}
}
