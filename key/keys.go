// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Site Configuration - these keys manage the remote TVBox configuration and site selection.
const (
	SitesConfigURL = "sites.config_url"
	SitesDefault   = "sites.default"
)

// Network Execution - these keys govern the HTTP layer shared by every adapter.
const (
	NetworkTimeout     = "network.timeout"
	NetworkRetries     = "network.retries"
	NetworkRetryDelay  = "network.retry_delay"
	NetworkTLSSpoof    = "network.tls_spoof"
	NetworkInsecureTLS = "network.insecure_tls"
)

// Hook Pipeline - these keys configure request/response transformation.
const (
	HooksHTTPSUpgradeHosts = "hooks.https_upgrade_hosts"
	HooksRefererHosts      = "hooks.referer_hosts"
	HooksContentFilters    = "hooks.content_filters"
)

// Caching Layer - these keys size and schedule the tiered cache.
const (
	CacheTTL             = "cache.ttl"
	CacheMemoryEntries   = "cache.memory_entries"
	CacheDiskLimit       = "cache.disk_limit_mb"
	CacheSweepInterval   = "cache.sweep_interval"
	CacheWarmupDelay     = "cache.warmup_delay"
	CacheWarmupWorkers   = "cache.warmup_workers"
	CacheOptimizerEnable = "cache.optimizer"
)

// Federated Search - these keys bound the multi-site fan-out.
const (
	SearchConcurrency    = "search.concurrency"
	SearchSiteTimeout    = "search.site_timeout"
	SearchOverallTimeout = "search.overall_timeout"
)

// Search Interaction - these keys define the UX parameters for search discovery.
const (
	SearchShowQuerySuggestions = "search.show_query_suggestions"
)

// History Tracking - these keys configure the persistence of playback state.
const (
	HistorySaveOnPlay = "history.save_on_play"
)

// Media Playback - these keys maintain the configuration for external video players.
const (
	Player  = "player.default"
	Aniskip = "player.aniskip"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these settings govern terminal output behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)
