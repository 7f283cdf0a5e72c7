package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ExploracuriousAlex/yapytr/internal/api"
)

var accountInfoCmd = &cobra.Command{
	Use:   "account_info",
	Short: "print account information",
	Long:  "Log in to Trade Republic and print account information.",
	RunE:  runAccountInfo,
}

func init() {
	addLoginFlags(accountInfoCmd)
	rootCmd.AddCommand(accountInfoCmd)
}

func runAccountInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := dialAPI(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := client.Join(ctx, api.SettingsRequest())
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, results["settings"], "", "  "); err != nil {
		return fmt.Errorf("failed to format account information: %w", err)
	}
	fmt.Println(pretty.String())
	return nil
}
