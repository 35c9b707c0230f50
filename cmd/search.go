// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ovod-cli/ovod/color"
	"github.com/ovod-cli/ovod/icon"
	"github.com/ovod-cli/ovod/key"
	"github.com/ovod-cli/ovod/provider"
	"github.com/ovod-cli/ovod/query"
	"github.com/ovod-cli/ovod/source"
	"github.com/ovod-cli/ovod/style"
	"github.com/ovod-cli/ovod/util"
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSliceP("site", "s", []string{}, "Limit the search to specific site keys")
	searchCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	searchCmd.SetOut(os.Stdout)
}

// searchCmd fans a keyword out to every searchable site.
var searchCmd = &cobra.Command{
	Use:     "search [keyword]",
	Short:   "Search every configured site for a title",
	Example: "  ovod search 星际\n  ovod search -s mac1,mac2 star",
	Args:    cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		keyword := strings.TrimSpace(strings.Join(args, " "))
		if keyword == "" {
			keyword = askKeyword()
		}
		if keyword == "" {
			handleErr(fmt.Errorf("empty search keyword"))
		}

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(viper.GetInt(key.SearchOverallTimeout))*time.Second)
		defer cancel()

		a := newApp(ctx)
		defer a.Close()

		_ = query.Remember(keyword, 1)

		siteKeys := lo.Must(cmd.Flags().GetStringSlice("site"))
		if len(siteKeys) == 0 {
			siteKeys = viper.GetStringSlice(key.SitesDefault)
		}

		var results []provider.SiteResult
		if len(siteKeys) > 0 {
			for _, k := range siteKeys {
				items, err := a.Manager.Search(ctx, k, keyword, false)
				desc, _ := a.Manager.Config().Site(k)
				results = append(results, provider.SiteResult{
					SiteKey: k, SiteName: desc.Name, Items: items, Err: err,
				})
			}
		} else {
			results = a.Manager.SearchAll(ctx, keyword)
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			lo.Must0(encoder.Encode(results))
			return
		}

		printResults(cmd, results)
	},
}

// askKeyword prompts for a keyword, suggesting previous popular queries.
func askKeyword() string {
	var keyword string
	prompt := &survey.Input{
		Message: "Search for:",
		Suggest: func(toComplete string) []string {
			return query.SuggestMany(toComplete)
		},
	}
	handleErr(survey.AskOne(prompt, &keyword))
	return strings.TrimSpace(keyword)
}

func printResults(cmd *cobra.Command, results []provider.SiteResult) {
	siteHeader := style.New().Bold(true).Foreground(color.HiBlue).Render
	total := 0

	for _, r := range results {
		if r.Err != nil {
			cmd.Printf("%s %s %s\n", icon.Get(icon.Fail), siteHeader(r.SiteName), style.Faint(r.Err.Error()))
			continue
		}
		if len(r.Items) == 0 {
			continue
		}

		total += len(r.Items)
		cmd.Printf("%s %s\n", siteHeader(r.SiteName), style.Faint("("+r.SiteKey+")"))
		for _, item := range r.Items {
			cmd.Printf("  %s %s\n", style.Fg(color.Yellow)(item.ID), itemLine(item))
		}
		cmd.Println()
	}

	if total == 0 {
		cmd.Printf("%s nothing found\n", icon.Get(icon.Fail))
		return
	}
	cmd.Println(style.Faint(fmt.Sprintf("%s across %d sites", util.Quantify(total, "result", "results"), len(results))))
}

func itemLine(item source.Item) string {
	line := style.Bold(item.Name)
	if item.Year != "" {
		line += " " + style.Faint("("+item.Year+")")
	}
	if item.Remarks != "" {
		line += " " + style.Fg(color.Cyan)(item.Remarks)
	}
	return line
}
