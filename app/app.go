// Package app assembles the application's long-lived components. Everything a
// command needs is constructed here once and passed down explicitly.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/ovod-cli/ovod/cache"
	"github.com/ovod-cli/ovod/hook"
	"github.com/ovod-cli/ovod/key"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/provider"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/where"
)

// App owns the constructed singletons: the tiered cache, the hook chains, the
// HTTP client and the adapter manager.
type App struct {
	Client    *network.Client
	Store     *cache.Cache
	Optimizer *cache.Optimizer
	Manager   *provider.Manager
}

// New wires the application from the active configuration. The site list is
// fetched from the configured URL, falling back to the disk mirror.
func New(ctx context.Context) (*App, error) {
	configURL := viper.GetString(key.SitesConfigURL)
	if configURL == "" {
		return nil, errors.New("no site config URL set, run: ovod config set " + key.SitesConfigURL + " <url>")
	}

	client := newClient()

	store, err := cache.New(cache.Options{
		Dir:           where.Store(),
		DefaultTTL:    time.Duration(viper.GetInt(key.CacheTTL)) * time.Minute,
		MemoryEntries: viper.GetInt(key.CacheMemoryEntries),
		DiskLimit:     int64(viper.GetInt(key.CacheDiskLimit)) << 20,
	})
	if err != nil {
		return nil, err
	}
	store.StartSweep(time.Duration(viper.GetInt(key.CacheSweepInterval)) * time.Minute)

	var optimizer *cache.Optimizer
	if viper.GetBool(key.CacheOptimizerEnable) {
		optimizer = cache.NewOptimizer(store)
		optimizer.Start(time.Hour)
	}

	siteConfig, err := site.Load(ctx, client, configURL)
	if err != nil {
		store.Close()
		return nil, err
	}

	manager := provider.NewManager(siteConfig, client, store, optimizer, provider.Options{
		SearchConcurrency: viper.GetInt(key.SearchConcurrency),
		SiteTimeout:       time.Duration(viper.GetInt(key.SearchSiteTimeout)) * time.Second,
		CacheTTL:          time.Duration(viper.GetInt(key.CacheTTL)) * time.Minute,
	})

	return &App{
		Client:    client,
		Store:     store,
		Optimizer: optimizer,
		Manager:   manager,
	}, nil
}

// newClient builds the shared HTTP client with the default hook pipeline.
func newClient() *network.Client {
	requestHooks := hook.DefaultRequestHooks(
		nil,
		viper.GetStringSlice(key.HooksHTTPSUpgradeHosts),
		viper.GetStringSlice(key.HooksRefererHosts),
	)
	responseHooks := hook.DefaultResponseHooks(viper.GetStringSlice(key.HooksContentFilters))

	return network.New(network.Options{
		Timeout:     time.Duration(viper.GetInt(key.NetworkTimeout)) * time.Second,
		Retries:     viper.GetInt(key.NetworkRetries),
		RetryDelay:  time.Duration(viper.GetInt(key.NetworkRetryDelay)) * time.Millisecond,
		TLSSpoof:    viper.GetBool(key.NetworkTLSSpoof),
		InsecureTLS: viper.GetBool(key.NetworkInsecureTLS),
	},
		hook.NewRequestChain(requestHooks...),
		hook.NewResponseChain(responseHooks...),
	)
}

// Close releases background workers. Safe to call once.
func (a *App) Close() {
	if a.Optimizer != nil {
		a.Optimizer.Close()
	}
	a.Store.Close()
}
