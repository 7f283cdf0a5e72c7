// Package export writes timeline cash movements as a CSV file that
// Portfolio Performance can import.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Labels sourced from Portfolio Performance:
// https://github.com/portfolio-performance/portfolio/blob/master/name.abuchen.portfolio/src/name/abuchen/portfolio/messages_de.properties
// https://github.com/portfolio-performance/portfolio/blob/master/name.abuchen.portfolio/src/name/abuchen/portfolio/model/labels_de.properties
var i18n = map[string]map[string]string{
	"date": {
		"cs": "Datum", "de": "Datum", "en": "Date", "es": "Fecha", "fr": "Date",
		"it": "Data", "nl": "Datum", "pt": "Data", "ru": "Дата",
	},
	"type": {
		"cs": "Typ", "de": "Typ", "en": "Type", "es": "Tipo", "fr": "Type",
		"it": "Tipo", "nl": "Type", "pt": "Tipo", "ru": "Тип",
	},
	"value": {
		"cs": "Hodnota", "de": "Wert", "en": "Value", "es": "Valor", "fr": "Valeur",
		"it": "Valore", "nl": "Waarde", "pt": "Valor", "ru": "Значение",
	},
	"deposit": {
		"cs": "Vklad", "de": "Einlage", "en": "Deposit", "es": "Depósito", "fr": "Dépôt",
		"it": "Deposito", "nl": "Storting", "pt": "Depósito", "ru": "Пополнение",
	},
	"removal": {
		"cs": "Výběr", "de": "Entnahme", "en": "Removal", "es": "Removal", "fr": "Retrait",
		"it": "Prelievo", "nl": "Opname", "pt": "Levantamento", "ru": "Списание",
	},
}

// event mirrors the wrapper shape of the events JSON written after a
// timeline run. Only the fields the export needs are decoded.
type event struct {
	Data struct {
		Timestamp        int64           `json:"timestamp"`
		Title            string          `json:"title"`
		Body             string          `json:"body"`
		CashChangeAmount decimal.Decimal `json:"cashChangeAmount"`
	} `json:"data"`
}

// ResolveLang normalizes a two-letter language code. "auto" consults the
// LANG environment variable; anything unsupported falls back to English.
func ResolveLang(lang string) string {
	if lang == "auto" {
		locale := os.Getenv("LANG")
		if idx := strings.IndexAny(locale, "_."); idx > 0 {
			locale = locale[:idx]
		}
		lang = locale
	}
	if _, ok := i18n["deposit"][lang]; !ok {
		return "en"
	}
	return lang
}

// Transactions reads a timeline events JSON file and writes the deposits
// and removals as `date;type;value` rows, localized for lang.
func Transactions(logger *slog.Logger, inputPath, outputPath, lang string) error {
	lang = ResolveLang(lang)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read events file: %w", err)
	}
	var events []event
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("failed to parse events file: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s;%s;%s\n", i18n["date"][lang], i18n["type"][lang], i18n["value"][lang])

	rows := 0
	for _, ev := range events {
		if strings.Contains(ev.Data.Body, "storniert") {
			continue
		}
		date := time.Unix(ev.Data.Timestamp/1000, 0).Format("2006-01-02")

		switch ev.Data.Title {
		case "Einzahlung", "Bonuszahlung":
			fmt.Fprintf(&b, "%s;%s;%s\n", date, i18n["deposit"][lang], ev.Data.CashChangeAmount)
			rows++
		case "Auszahlung":
			fmt.Fprintf(&b, "%s;%s;%s\n", date, i18n["removal"][lang], ev.Data.CashChangeAmount.Abs())
			rows++
		case "Reinvestierung":
			logger.Warn("skipping reinvestment event, export not supported", "date", date)
		}
	}

	if err := os.WriteFile(outputPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write transactions file: %w", err)
	}
	logger.Info("transaction export finished", "rows", rows, "path", outputPath)
	return nil
}
