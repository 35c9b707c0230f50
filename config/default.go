// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/ovod-cli/ovod/color"
	"github.com/ovod-cli/ovod/constant"
	"github.com/ovod-cli/ovod/key"
	"github.com/ovod-cli/ovod/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Ovod + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.SitesConfigURL, "", "URL of the remote TVBox-style JSON configuration listing content sites.\nRequired before any catalog command works")
	register(key.SitesDefault, []string{}, "Site keys to use by default.\nEmpty means every searchable site.\nType \"ovod sites\" to show loaded sites")

	register(key.NetworkTimeout, 20, "HTTP request timeout in seconds")
	register(key.NetworkRetries, 2, "Retries after a failed or non-2xx HTTP response")
	register(key.NetworkRetryDelay, 500, "Delay between retries in milliseconds")
	register(key.NetworkTLSSpoof, true, "Use a Chrome TLS fingerprint for sites behind anti-bot challenges")
	register(key.NetworkInsecureTLS, false, "Skip TLS certificate verification.\nSome sites in the wild ship self-signed or expired certificates")

	register(key.HooksHTTPSUpgradeHosts, []string{}, "Hosts whose http:// URLs are rewritten to https://")
	register(key.HooksRefererHosts, []string{}, "Hosts that receive a synthesized Referer header")
	register(key.HooksContentFilters, []string{}, "Regular expressions removed from every response body (ad/tracker stripping)")

	register(key.CacheTTL, 30, "Default cache entry lifetime in minutes")
	register(key.CacheMemoryEntries, 256, "Maximum entries held in the memory tier before LRU eviction")
	register(key.CacheDiskLimit, 128, "Disk tier ceiling in megabytes.\nCleanup removes oldest files until usage drops to 80% of this")
	register(key.CacheSweepInterval, 5, "Minutes between background sweeps that drop expired entries")
	register(key.CacheWarmupDelay, 10, "Seconds to wait after startup before cache warmup runs")
	register(key.CacheWarmupWorkers, 3, "Concurrent fetches during cache warmup")
	register(key.CacheOptimizerEnable, true, "Enable access-pattern-driven cache cleanup")

	register(key.SearchConcurrency, 8, "Sites queried in parallel during federated search")
	register(key.SearchSiteTimeout, 15, "Per-site timeout in seconds during federated search")
	register(key.SearchOverallTimeout, 30, "Overall federated search deadline in seconds")
	register(key.SearchShowQuerySuggestions, true, "Show query suggestions when searching")

	register(key.HistorySaveOnPlay, true, "Save history when an episode is resolved for playback")
	register(key.Player, "mpv", "Media player to use (e.g., mpv, iina)")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")

	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
