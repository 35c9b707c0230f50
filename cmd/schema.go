// Package cmd implements the command-line interface for ovod.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ovod-cli/ovod/history"
	"github.com/ovod-cli/ovod/provider"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/source"
)

// schemaTargets maps a type name to a value whose JSON schema is printable.
var schemaTargets = map[string]any{
	"result":   &provider.SiteResult{},
	"item":     &source.Item{},
	"playback": &source.Playback{},
	"site":     &site.Descriptor{},
	"history":  &history.Entry{},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.SetOut(os.Stdout)
}

// schemaCmd prints machine-readable schemas for the JSON output modes, so
// scripts consuming --json output can validate against them.
var schemaCmd = &cobra.Command{
	Use:       "schema [type]",
	Short:     "Display the JSON schema of a machine-readable output type",
	Example:   "  ovod schema item",
	Args:      cobra.ExactArgs(1),
	ValidArgs: lo.Keys(schemaTargets),
	Run: func(cmd *cobra.Command, args []string) {
		target, ok := schemaTargets[args[0]]
		if !ok {
			handleErr(fmt.Errorf("unknown schema type %q, available: %v", args[0], lo.Keys(schemaTargets)))
		}

		schema := jsonschema.Reflect(target)
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		lo.Must0(encoder.Encode(schema))
	},
}
