package main

import (
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "login to Trade Republic",
	Long:  "Check if credentials are stored, otherwise ask for them, and log in to Trade Republic.",
	RunE:  runLogin,
}

func init() {
	addLoginFlags(loginCmd)
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	_, err := login(cmd.Context())
	return err
}
