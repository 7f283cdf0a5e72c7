package main

import (
	"github.com/spf13/cobra"

	"github.com/ExploracuriousAlex/yapytr/internal/export"
)

var exportTransactionsCmd = &cobra.Command{
	Use:   "export_transactions <input> <output>",
	Short: "export transactions for Portfolio Performance",
	Long:  "Create a CSV file with deposits and removals ready for importing into Portfolio Performance, from a timeline events JSON file.",
	Args:  cobra.ExactArgs(2),
	RunE:  runExportTransactions,
}

var exportLang string

func init() {
	exportTransactionsCmd.Flags().StringVarP(&exportLang, "lang", "l", "auto",
		`two letter language code or "auto" for system language`)
	rootCmd.AddCommand(exportTransactionsCmd)
}

func runExportTransactions(cmd *cobra.Command, args []string) error {
	lang := exportLang
	if !cmd.Flags().Changed("lang") && cfg.Lang != "" {
		lang = cfg.Lang
	}
	return export.Transactions(logger, args[0], args[1], lang)
}
