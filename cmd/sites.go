// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ovod-cli/ovod/color"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/style"
)

func init() {
	rootCmd.AddCommand(sitesCmd)

	sitesCmd.Flags().BoolP("searchable", "s", false, "Display only sites that support search")
	sitesCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	sitesCmd.SetOut(os.Stdout)
}

// sitesCmd lists the sites loaded from the remote configuration.
var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Display the sites loaded from the remote configuration",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := newApp(ctx)
		defer a.Close()

		sites := a.Manager.Config().Sites
		if lo.Must(cmd.Flags().GetBool("searchable")) {
			sites = a.Manager.Config().Searchable()
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			lo.Must0(encoder.Encode(sites))
			return
		}

		for _, s := range sites {
			cmd.Printf("%s %s %s%s\n",
				style.Fg(color.Yellow)(s.Key),
				style.Bold(s.Name),
				style.Faint(s.Kind.String()),
				searchBadge(s),
			)
		}
		cmd.Println()
		cmd.Println(style.Faint(fmt.Sprintf("parses: %d, vip flags: %d",
			len(a.Manager.Config().Parses), len(a.Manager.Config().Flags))))
	},
}

func searchBadge(s site.Descriptor) string {
	if !s.Searchable {
		return ""
	}
	badge := " searchable"
	if s.QuickSearch {
		badge += "+quick"
	}
	return style.Fg(color.Green)(badge)
}
