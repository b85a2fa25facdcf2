package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "TheraLink triage kiosk",
	Long:  `Runs the triage kiosk: session state machine, local web pages, live display mirror and group statistics.`,
}

// Execute запускает корневую команду
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file (env KIOSK_CONFIG)")
}
