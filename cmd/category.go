// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ovod-cli/ovod/color"
	"github.com/ovod-cli/ovod/style"
)

func init() {
	rootCmd.AddCommand(categoryCmd)

	categoryCmd.Flags().IntP("page", "p", 1, "Page number to fetch")
	categoryCmd.Flags().StringSliceP("ext", "e", []string{}, "Extra filter parameters as key=value pairs")
	categoryCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	categoryCmd.SetOut(os.Stdout)
}

// categoryCmd pages through one category of a site.
var categoryCmd = &cobra.Command{
	Use:     "category [site] [category-id]",
	Short:   "List titles within a site category",
	Example: "  ovod category mac1 1 -p 2\n  ovod category mac1 1 -e year=2023 -e area=美国",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		extend := map[string]string{}
		for _, pair := range lo.Must(cmd.Flags().GetStringSlice("ext")) {
			k, v, found := strings.Cut(pair, "=")
			if !found {
				handleErr(fmt.Errorf("malformed filter %q, expected key=value", pair))
			}
			extend[k] = v
		}

		ctx := context.Background()
		a := newApp(ctx)
		defer a.Close()

		page, err := a.Manager.Category(ctx, args[0], args[1],
			lo.Must(cmd.Flags().GetInt("page")), false, extend)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			lo.Must0(encoder.Encode(page))
			return
		}

		for _, item := range page.Items {
			cmd.Printf("%s %s\n", style.Fg(color.Yellow)(item.ID), itemLine(item))
		}
		if page.PageCount > 0 {
			cmd.Println()
			cmd.Println(style.Faint(fmt.Sprintf("page %d of %d", page.Page, page.PageCount)))
		}
	},
}
