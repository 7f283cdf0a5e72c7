package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ExploracuriousAlex/yapytr/internal/portfolio"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "show your portfolio",
	Long:  "Log in to Trade Republic and show your portfolio with current prices from LSX.",
	RunE:  runPortfolio,
}

func init() {
	addLoginFlags(portfolioCmd)
	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := dialAPI(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	view, err := portfolio.Fetch(ctx, logger, client)
	if err != nil {
		return err
	}
	view.Render(os.Stdout)
	return nil
}
