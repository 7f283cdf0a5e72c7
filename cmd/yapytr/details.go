package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ExploracuriousAlex/yapytr/internal/details"
)

var detailsCmd = &cobra.Command{
	Use:   "details <isin>",
	Short: "print details for an ISIN",
	Long:  "Log in to Trade Republic and print details for an ISIN: master data, recent news and company figures.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetails,
}

func init() {
	addLoginFlags(detailsCmd)
	rootCmd.AddCommand(detailsCmd)
}

func runDetails(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := dialAPI(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	view, err := details.Fetch(ctx, client, args[0])
	if err != nil {
		return err
	}
	view.Render(os.Stdout)
	return nil
}
