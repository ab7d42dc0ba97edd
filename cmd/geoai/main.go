// Command geoai serves and runs the Irbid remote-sensing analysis modules.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "geoai",
		Short:         "Remote-sensing analysis modules for the Irbid study region",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveSubcommand(), runSubcommand(), modulesSubcommand())

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("geoai failed")
		os.Exit(1)
	}
}
