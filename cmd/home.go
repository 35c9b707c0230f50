// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ovod-cli/ovod/color"
	"github.com/ovod-cli/ovod/source"
	"github.com/ovod-cli/ovod/style"
)

func init() {
	rootCmd.AddCommand(homeCmd)

	homeCmd.Flags().BoolP("filter", "f", false, "Request category filter metadata")
	homeCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	homeCmd.SetOut(os.Stdout)
}

// homeCmd shows a site's category tree and recommendations.
var homeCmd = &cobra.Command{
	Use:     "home [site]",
	Short:   "Display a site's categories and recommended titles",
	Example: "  ovod home mac1",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := newApp(ctx)
		defer a.Close()

		home, err := a.Manager.Home(ctx, args[0], lo.Must(cmd.Flags().GetBool("filter")))
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			lo.Must0(encoder.Encode(home))
			return
		}

		header := style.New().Bold(true).Foreground(color.HiBlue).Render

		cmd.Println(header("Categories"))
		for _, c := range home.Categories {
			cmd.Printf("  %s %s\n", style.Fg(color.Yellow)(c.ID), c.Name)
			for _, f := range c.Filters {
				options := lo.Map(f.Values, func(v source.FilterValue, _ int) string {
					return v.Name
				})
				cmd.Printf("      %s %s\n", style.Faint(f.Name+":"), strings.Join(options, " "))
			}
		}

		if len(home.Items) > 0 {
			cmd.Println()
			cmd.Println(header("Recommended"))
			for _, item := range home.Items {
				cmd.Printf("  %s %s\n", style.Fg(color.Yellow)(item.ID), itemLine(item))
			}
		}
	},
}
