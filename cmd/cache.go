// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ovod-cli/ovod/cache"
	"github.com/ovod-cli/ovod/color"
	"github.com/ovod-cli/ovod/icon"
	"github.com/ovod-cli/ovod/key"
	"github.com/ovod-cli/ovod/style"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
}

// cacheCmd is the parent command for cache maintenance.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the tiered content cache",
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheStatsCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	cacheStatsCmd.SetOut(os.Stdout)
}

// cacheStatsCmd prints hit/miss accounting for both tiers.
var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display cache hit, miss and eviction counters",
	Run: func(cmd *cobra.Command, args []string) {
		a := newApp(context.Background())
		defer a.Close()

		stats := a.Store.Stats()
		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			lo.Must0(encoder.Encode(stats))
			return
		}

		header := style.New().Bold(true).Foreground(color.HiBlue).Render
		tier := func(name string, t cache.TierStats) {
			cmd.Println(header(name))
			cmd.Printf("  hits %d, misses %d, evictions %d, expired %d\n",
				t.Hits, t.Misses, t.Evictions, t.Expired)
		}

		tier("Memory", stats.Memory)
		cmd.Println(style.Faint(fmt.Sprintf("  %d entries resident", stats.MemoryEntries)))
		tier("Disk", stats.Disk)
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

// cacheClearCmd empties both tiers.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry from memory and disk",
	Run: func(cmd *cobra.Command, args []string) {
		a := newApp(context.Background())
		defer a.Close()

		handleErr(a.Store.Clear())
		fmt.Printf("%s cache cleared\n", icon.Get(icon.Success))
	},
}

func init() {
	cacheCmd.AddCommand(cacheWarmCmd)
	cacheWarmCmd.Flags().BoolP("now", "n", false, "Skip the configured warmup delay")
}

// cacheWarmCmd pre-populates the cache with every searchable site's home
// payload so the first interactive command starts warm.
var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-populate the cache with home payloads of every searchable site",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := newApp(ctx)
		defer a.Close()

		sites := a.Manager.Config().Searchable()
		keys := make([]string, 0, len(sites))
		byFingerprint := make(map[string]string, len(sites))
		for _, s := range sites {
			fp := cache.Fingerprint("home", s.Key, "false")
			keys = append(keys, fp)
			byFingerprint[fp] = s.Key
		}

		opts := cache.WarmupOptions{
			Delay:       time.Duration(viper.GetInt(key.CacheWarmupDelay)) * time.Second,
			Concurrency: viper.GetInt(key.CacheWarmupWorkers),
			Timeout:     time.Duration(viper.GetInt(key.SearchSiteTimeout)) * time.Second,
			TTL:         time.Duration(viper.GetInt(key.CacheTTL)) * time.Minute,
		}
		if lo.Must(cmd.Flags().GetBool("now")) {
			opts.Delay = 0
		}

		a.Store.Warmup(ctx, keys, opts, func(ctx context.Context, fp string) ([]byte, error) {
			s, err := a.Manager.Source(byFingerprint[fp])
			if err != nil {
				return nil, err
			}
			home, err := s.Home(ctx, false)
			if err != nil {
				return nil, err
			}
			return json.Marshal(home)
		})

		fmt.Printf("%s warmed %d sites\n", icon.Get(icon.Success), len(keys))
	},
}
