package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ExploracuriousAlex/yapytr/internal/auth"
	"github.com/ExploracuriousAlex/yapytr/internal/download"
	"github.com/ExploracuriousAlex/yapytr/internal/export"
	"github.com/ExploracuriousAlex/yapytr/internal/timeline"
)

var dlDocsCmd = &cobra.Command{
	Use:   "dl_docs <output>",
	Short: "download documents",
	Long: "Download all documents of your Trade Republic account history into the output directory. " +
		"Also save the timeline events (other_events.json, events_with_documents.json) " +
		"and export account transactions (account_transactions.csv).",
	Args: cobra.ExactArgs(1),
	RunE: runDlDocs,
}

var (
	filenameFormat string
	lastDays       int
	workers        int
)

func init() {
	dlDocsCmd.Flags().StringVar(&filenameFormat, "format", download.DefaultFilenameFormat,
		"define file name format, available variables: {iso_date}, {time}, {title}, {subtitle}, {doc_num}, {id}")
	dlDocsCmd.Flags().IntVar(&lastDays, "last_days", 0, "number of days to consider (0 for all)")
	dlDocsCmd.Flags().IntVar(&workers, "workers", download.DefaultWorkers, "number of workers for parallel downloading")
	addLoginFlags(dlDocsCmd)
	rootCmd.AddCommand(dlDocsCmd)
}

func runDlDocs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	outputPath := args[0]

	if !cmd.Flags().Changed("format") && cfg.FilenameFormat != "" {
		filenameFormat = cfg.FilenameFormat
	}
	if !cmd.Flags().Changed("last_days") && cfg.LastDays != 0 {
		lastDays = cfg.LastDays
	}
	if !cmd.Flags().Changed("workers") && cfg.Workers != 0 {
		workers = cfg.Workers
	}

	var since int64
	if lastDays > 0 {
		since = time.Now().AddDate(0, 0, -lastDays).UnixMilli()
	}

	client, err := dialAPI(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	history, err := download.LoadHistory(logger, filepath.Join(outputPath, "download_history"))
	if err != nil {
		return err
	}
	defer history.Close()

	pipeline := download.NewPipeline(logger, &http.Client{Timeout: 60 * time.Second}, history, download.Options{
		OutputPath:     outputPath,
		FilenameFormat: filenameFormat,
		Workers:        workers,
		Headers:        auth.SessionHeaders(client.Token()),
	})

	withDocs, withoutDocs, err := timeline.New(logger, client, pipeline, since).Run(ctx)
	if err != nil {
		return err
	}

	withDocsPath := filepath.Join(outputPath, "events_with_documents.json")
	otherEventsPath := filepath.Join(outputPath, "other_events.json")
	if err := timeline.WriteEvents(withDocsPath, withDocs); err != nil {
		return err
	}
	if err := timeline.WriteEvents(otherEventsPath, withoutDocs); err != nil {
		return err
	}

	lang := cfg.Lang
	if lang == "" {
		lang = "auto"
	}
	csvPath := filepath.Join(outputPath, "account_transactions.csv")
	if err := export.Transactions(logger, otherEventsPath, csvPath, lang); err != nil {
		return err
	}

	stats, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	if stats.Failed > 0 || stats.Unresolvable > 0 {
		return fmt.Errorf("%d of %d downloads did not complete", stats.Failed+stats.Unresolvable,
			stats.Completed+stats.Failed+stats.Unresolvable)
	}
	return nil
}
