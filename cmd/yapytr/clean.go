package main

import (
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "clean yapytr settings",
	Long:  "Delete the stored credentials, the session token and, when empty afterwards, the settings directory.",
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	return settings.Clean(logger)
}
