package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/exposer"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of exposer",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "exposer version %s\n", strings.TrimSpace(exposer.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
