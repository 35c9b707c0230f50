// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ovod-cli/ovod/constant"
	"github.com/ovod-cli/ovod/filesystem"
	"github.com/ovod-cli/ovod/icon"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/provider/custom"
	"github.com/ovod-cli/ovod/util"
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("new", "n", false, "Scaffold a new site script at the given path instead of validating")
	runCmd.Flags().String("name", "", "Site name for the scaffolded script")
	runCmd.Flags().String("url", "", "Site URL for the scaffolded script")
	runCmd.Flags().String("author", "", "Author for the scaffolded script")
}

// runCmd loads a local Lua site script and validates its contract, for
// script development without a deployed site configuration.
var runCmd = &cobra.Command{
	Use:     "run [file]",
	Short:   "Load a local Lua site script and validate its contract",
	Long:    "Compile a Lua site script and verify it defines the five adapter functions (Home, Category, Detail, Search, Player). Useful while developing custom sites.",
	Args:    cobra.ExactArgs(1),
	Example: "  ovod run ./mysite.lua\n  ovod run -n --name mysite --url https://mysite.example ./mysite.lua",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("new")) {
			handleErr(scaffoldScript(cmd, args[0]))
			fmt.Printf("%s scaffolded %s\n", icon.Get(icon.Lua), args[0])
			return
		}

		client := network.New(network.Options{Timeout: 30 * time.Second}, nil, nil)

		_, err := custom.LoadSource("dev", "dev", args[0], client)
		handleErr(err)

		fmt.Printf("%s %s defines a complete site contract\n", icon.Get(icon.Success), args[0])
	},
}

// scaffoldScript writes a fresh site script skeleton. Refuses to overwrite.
func scaffoldScript(cmd *cobra.Command, path string) error {
	if exists, _ := filesystem.API().Exists(path); exists {
		return fmt.Errorf("%s already exists", path)
	}

	name := lo.Must(cmd.Flags().GetString("name"))
	if name == "" {
		name = util.FileStem(path)
	}

	t, err := template.New("script").Funcs(template.FuncMap{
		"repeat": strings.Repeat,
		"plus":   func(a, b int) int { return a + b },
		"max":    util.Max[int],
	}).Parse(constant.SourceTemplate)
	if err != nil {
		return err
	}

	file, err := filesystem.API().Create(path)
	if err != nil {
		return err
	}
	defer util.Ignore(file.Close)

	return t.Execute(file, struct {
		Name, URL, Author string
	}{
		Name:   name,
		URL:    lo.Must(cmd.Flags().GetString("url")),
		Author: lo.Must(cmd.Flags().GetString("author")),
	})
}
