package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version - версия сборки, подменяется через -ldflags
var Version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kiosk version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kiosk version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
