// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ovod-cli/ovod/color"
	"github.com/ovod-cli/ovod/history"
	"github.com/ovod-cli/ovod/icon"
	"github.com/ovod-cli/ovod/key"
	"github.com/ovod-cli/ovod/log"
	"github.com/ovod-cli/ovod/open"
	"github.com/ovod-cli/ovod/player"
	"github.com/ovod-cli/ovod/source"
	"github.com/ovod-cli/ovod/style"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("flag", "f", "", "Play-source flag to use (defaults to the only one, or prompts)")
	playCmd.Flags().StringP("episode", "e", "", "Episode name or URL to play (prompts when unset)")
	playCmd.Flags().BoolP("url-only", "u", false, "Resolve and print the playable URL without launching a player")
}

// playCmd resolves an episode and hands it to the configured media player.
var playCmd = &cobra.Command{
	Use:     "play [site] [id]",
	Short:   "Resolve an episode of a title and play it",
	Example: "  ovod play mac1 101\n  ovod play mac1 101 -f m3u8 -e EP02 -u",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		siteKey, id := args[0], args[1]

		ctx := context.Background()
		a := newApp(ctx)
		defer a.Close()

		items, err := a.Manager.Detail(ctx, siteKey, []string{id})
		handleErr(err)
		item := items[0]
		if len(item.Flags) == 0 {
			handleErr(fmt.Errorf("%s has no play sources", item.Name))
		}

		flag := pickFlag(item.Flags, lo.Must(cmd.Flags().GetString("flag")))
		episode := pickEpisode(flag, lo.Must(cmd.Flags().GetString("episode")))

		pb, err := a.Manager.ResolvePlay(ctx, siteKey, flag.Name, episode.URL)
		handleErr(err)

		if viper.GetBool(key.HistorySaveOnPlay) {
			if err := history.Save(siteKey, item, flag.Name, episode, 0); err != nil {
				log.Warnf("saving history: %v", err)
			}
		}

		if lo.Must(cmd.Flags().GetBool("url-only")) {
			fmt.Println(pb.URL)
			for k, v := range pb.Headers {
				fmt.Println(style.Faint(k + ": " + v))
			}
			return
		}

		launch(siteKey, item, flag.Name, episode, pb)
	},
}

// pickFlag resolves the play-source group, prompting when ambiguous.
func pickFlag(flags []source.Flag, wanted string) source.Flag {
	if wanted != "" {
		for _, f := range flags {
			if f.Name == wanted {
				return f
			}
		}
		handleErr(fmt.Errorf("no play source named %q", wanted))
	}
	if len(flags) == 1 {
		return flags[0]
	}

	names := lo.Map(flags, func(f source.Flag, _ int) string { return f.Name })
	var picked string
	handleErr(survey.AskOne(&survey.Select{Message: "Play source:", Options: names}, &picked))
	for _, f := range flags {
		if f.Name == picked {
			return f
		}
	}
	return flags[0]
}

// pickEpisode resolves the episode within a group, prompting when unset.
func pickEpisode(flag source.Flag, wanted string) source.Episode {
	if wanted != "" {
		if ep, found := source.FindEpisode([]source.Flag{flag}, flag.Name, wanted); found {
			return ep
		}
		handleErr(fmt.Errorf("no episode %q in %s", wanted, flag.Name))
	}
	if len(flag.Episodes) == 1 {
		return flag.Episodes[0]
	}

	names := lo.Map(flag.Episodes, func(e source.Episode, _ int) string { return e.Name })
	var picked string
	handleErr(survey.AskOne(&survey.Select{Message: "Episode:", Options: names, PageSize: 15}, &picked))
	if ep, found := source.FindEpisode([]source.Flag{flag}, flag.Name, picked); found {
		return ep
	}
	return flag.Episodes[0]
}

// launch hands the resolved URL to the configured player and records playback
// progress until the session ends.
func launch(siteKey string, item source.Item, flagName string, episode source.Episode, pb source.Playback) {
	name := viper.GetString(key.Player)
	p, known := player.ForName(name)
	if !known {
		// Not a supported IPC backend, hand the URL to it as a plain app.
		handleErr(open.StartWith(pb.URL, name))
		return
	}
	if _, err := exec.LookPath(name); err != nil {
		fmt.Printf("%s %s not found in PATH, printing URL instead\n", icon.Get(icon.Fail), name)
		fmt.Println(pb.URL)
		return
	}

	title := item.Name + " - " + episode.Name
	fmt.Printf("%s playing %s\n", icon.Get(icon.Success), style.Fg(color.Purple)(title))
	handleErr(p.Play(pb.URL, title, pb.Headers))

	if viper.GetBool(key.HistorySaveOnPlay) {
		p.StartIPCTicker(func(timePos, duration int) {
			if duration <= 0 {
				return
			}
			percentage := float64(timePos) / float64(duration) * 100
			if err := history.Save(siteKey, item, flagName, episode, percentage); err != nil {
				log.Warnf("saving history: %v", err)
			}
		})
		defer p.StopIPCTicker()
	}

	<-p.Wait()
	_ = p.Close()
}
