// Package alarms fetches, creates, cancels and renders price alarms.
package alarms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ExploracuriousAlex/yapytr/internal/api"
)

// Broker is the subscription surface the alarm operations need.
type Broker interface {
	Join(ctx context.Context, requests ...map[string]any) (map[string]json.RawMessage, error)
}

// Alarm is one configured price alarm.
type Alarm struct {
	ID           string          `json:"id"`
	InstrumentID string          `json:"instrumentId"`
	Status       string          `json:"status"`
	CreatedPrice decimal.Decimal `json:"createdPrice"`
	TargetPrice  decimal.Decimal `json:"targetPrice"`
	CreatedAt    int64           `json:"createdAt"`
	TriggeredAt  *int64          `json:"triggeredAt"`
}

// Fetch returns all configured price alarms.
func Fetch(ctx context.Context, broker Broker) ([]Alarm, error) {
	results, err := broker.Join(ctx, api.PriceAlarmOverviewRequest())
	if err != nil {
		return nil, err
	}
	var alarms []Alarm
	if err := json.Unmarshal(results["priceAlarms"], &alarms); err != nil {
		return nil, fmt.Errorf("failed to decode price alarms: %w", err)
	}
	return alarms, nil
}

// Set creates a price alarm and waits for the server's confirmation.
func Set(ctx context.Context, logger *slog.Logger, broker Broker, isin string, targetPrice float64) error {
	if _, err := broker.Join(ctx, api.CreatePriceAlarmRequest(isin, targetPrice)); err != nil {
		return err
	}
	logger.Info("price alarm set", "isin", isin, "target_price", targetPrice)
	return nil
}

// Cancel removes a price alarm by its id and waits for the server's
// confirmation.
func Cancel(ctx context.Context, logger *slog.Logger, broker Broker, alarmID string) error {
	if _, err := broker.Join(ctx, api.CancelPriceAlarmRequest(alarmID)); err != nil {
		return err
	}
	logger.Info("price alarm cancelled", "alarm_id", alarmID)
	return nil
}

// Render writes the alarm overview table.
func Render(w io.Writer, alarms []Alarm) {
	fmt.Fprintln(w, "ISIN         status created  target diff% createdAt        triggeredAt")
	for _, a := range alarms {
		created := time.UnixMilli(a.CreatedAt).Format("2006-01-02 15:04")
		triggered := "-"
		if a.TriggeredAt != nil {
			triggered = time.UnixMilli(*a.TriggeredAt).Format("2006-01-02 15:04")
		}

		diff := 0.0
		if !a.CreatedPrice.IsZero() {
			diff = a.TargetPrice.Div(a.CreatedPrice).Mul(decimal.NewFromInt(100)).InexactFloat64() - 100
		}

		fmt.Fprintf(w, "%s %s %7.2f %7.2f %5.1f %s %s\n",
			a.InstrumentID, a.Status,
			a.CreatedPrice.InexactFloat64(), a.TargetPrice.InexactFloat64(),
			diff, created, triggered)
	}
}
