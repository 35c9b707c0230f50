// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ovod-cli/ovod/color"
	"github.com/ovod-cli/ovod/source"
	"github.com/ovod-cli/ovod/style"
	"github.com/ovod-cli/ovod/util"
)

func init() {
	rootCmd.AddCommand(detailCmd)

	detailCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	detailCmd.SetOut(os.Stdout)
}

// detailCmd shows full title information including play sources.
var detailCmd = &cobra.Command{
	Use:     "detail [site] [id...]",
	Short:   "Display full detail for one or more titles",
	Example: "  ovod detail mac1 101",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := newApp(ctx)
		defer a.Close()

		items, err := a.Manager.Detail(ctx, args[0], args[1:])
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			lo.Must0(encoder.Encode(items))
			return
		}

		for i, item := range items {
			printDetail(cmd, item)
			if i < len(items)-1 {
				cmd.Println()
			}
		}
	},
}

func printDetail(cmd *cobra.Command, item source.Item) {
	header := style.New().Bold(true).Foreground(color.HiPurple).Render
	field := func(name, value string) {
		if value != "" {
			cmd.Printf("  %s %s\n", style.Faint(name+":"), value)
		}
	}

	cmd.Println(header(item.Name) + " " + style.Faint("["+item.ID+"]"))
	field("Year", item.Year)
	field("Area", item.Area)
	field("Director", item.Director)
	field("Actors", item.Actor)
	field("Remarks", item.Remarks)

	if item.Content != "" {
		width, _, err := util.TerminalSize()
		if err != nil || width <= 0 {
			width = 80
		}
		cmd.Println()
		cmd.Println(wordwrap.String("  "+item.Content, width-2))
	}

	for _, flag := range item.Flags {
		cmd.Println()
		cmd.Printf("  %s %s\n",
			style.New().Bold(true).Foreground(color.HiBlue).Render(flag.Name),
			style.Faint(fmt.Sprintf("(%d episodes)", len(flag.Episodes))))

		names := lo.Map(flag.Episodes, func(e source.Episode, _ int) string {
			return e.Name
		})
		cmd.Println("  " + style.Fg(color.Cyan)(strings.Join(names, "  ")))
	}
}
