// Package main is the entry point for the ovod application.
package main

import (
	"github.com/samber/lo"

	"github.com/ovod-cli/ovod/cmd"
	"github.com/ovod-cli/ovod/config"
	"github.com/ovod-cli/ovod/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
