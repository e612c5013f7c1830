package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/auraflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of auraflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "auraflow version %s\n", strings.TrimSpace(auraflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
