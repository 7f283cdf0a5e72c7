package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ExploracuriousAlex/yapytr/internal/alarms"
)

var printPriceAlarmsCmd = &cobra.Command{
	Use:   "print_price_alarms",
	Short: "print price alarms",
	Long:  "Log in to Trade Republic and print your price alarms.",
	RunE:  runPrintPriceAlarms,
}

var setPriceAlarmCmd = &cobra.Command{
	Use:   "set_price_alarm <isin> <price>",
	Short: "set a price alarm",
	Long:  "Log in to Trade Republic and set a price alarm for an ISIN.",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetPriceAlarm,
}

var cancelPriceAlarmCmd = &cobra.Command{
	Use:   "cancel_price_alarm <alarmid>",
	Short: "cancel a price alarm",
	Long:  "Log in to Trade Republic and cancel a price alarm by its id.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancelPriceAlarm,
}

func init() {
	addLoginFlags(printPriceAlarmsCmd)
	addLoginFlags(setPriceAlarmCmd)
	addLoginFlags(cancelPriceAlarmCmd)
	rootCmd.AddCommand(printPriceAlarmsCmd)
	rootCmd.AddCommand(setPriceAlarmCmd)
	rootCmd.AddCommand(cancelPriceAlarmCmd)
}

func runPrintPriceAlarms(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := dialAPI(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	overview, err := alarms.Fetch(ctx, client)
	if err != nil {
		return err
	}
	alarms.Render(os.Stdout, overview)
	return nil
}

func runSetPriceAlarm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", args[1], err)
	}

	client, err := dialAPI(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	return alarms.Set(ctx, logger, client, args[0], price)
}

func runCancelPriceAlarm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := dialAPI(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	return alarms.Cancel(ctx, logger, client, args[0])
}
