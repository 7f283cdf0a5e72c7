// Package details fetches and renders instrument information: master
// data, recent news and company figures.
package details

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ExploracuriousAlex/yapytr/internal/api"
)

// newsWindow limits the rendered news to the most recent days.
const newsWindow = 30 * 24 * time.Hour

// Broker is the subscription surface the detail view needs.
type Broker interface {
	Join(ctx context.Context, requests ...map[string]any) (map[string]json.RawMessage, error)
}

// Exchange is one venue an instrument trades on.
type Exchange struct {
	Slug             string `json:"slug"`
	NameAtExchange   string `json:"nameAtExchange"`
	SymbolAtExchange string `json:"symbolAtExchange"`
}

// Tag is one category label attached to an instrument.
type Tag struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Instrument is the master data of an instrument.
type Instrument struct {
	Name      string     `json:"name"`
	ShortName string     `json:"shortName"`
	TypeID    string     `json:"typeId"`
	Exchanges []Exchange `json:"exchanges"`
	Tags      []Tag      `json:"tags"`
}

// NewsItem is one news headline for the instrument.
type NewsItem struct {
	CreatedAt int64  `json:"createdAt"`
	Headline  string `json:"headline"`
}

// StockDetails carries the company figures. The set of fields varies by
// instrument, so the company block stays a generic map.
type StockDetails struct {
	Company map[string]any `json:"company"`
}

// View is the assembled instrument detail view.
type View struct {
	Instrument   Instrument
	News         []NewsItem
	StockDetails StockDetails
}

// Fetch joins the three instrument subscriptions for the given ISIN.
func Fetch(ctx context.Context, broker Broker, isin string) (*View, error) {
	results, err := broker.Join(ctx,
		api.StockDetailsRequest(isin),
		api.NewsRequest(isin),
		api.InstrumentRequest(isin),
	)
	if err != nil {
		return nil, err
	}

	view := &View{}
	if err := json.Unmarshal(results["instrument"], &view.Instrument); err != nil {
		return nil, fmt.Errorf("failed to decode instrument answer: %w", err)
	}
	if err := json.Unmarshal(results["neonNews"], &view.News); err != nil {
		return nil, fmt.Errorf("failed to decode news answer: %w", err)
	}
	if err := json.Unmarshal(results["stockDetails"], &view.StockDetails); err != nil {
		return nil, fmt.Errorf("failed to decode stock details answer: %w", err)
	}
	return view, nil
}

// Render writes the sectioned detail view.
func (v *View) Render(w io.Writer) {
	v.renderAt(w, time.Now())
}

func (v *View) renderAt(w io.Writer, now time.Time) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Basic information:")
	fmt.Fprintf(w, "%-28s %s\n", "name:", v.Instrument.Name)
	fmt.Fprintf(w, "%-28s %s\n", "shortName:", v.Instrument.ShortName)
	fmt.Fprintf(w, "%-28s %s\n", "typeId:", v.Instrument.TypeID)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trading on the following exchanges:")
	for _, ex := range v.Instrument.Exchanges {
		fmt.Fprintf(w, "%-28s %s (%s)\n", ex.Slug+":", ex.NameAtExchange, ex.SymbolAtExchange)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tags:")
	for _, tag := range v.Instrument.Tags {
		fmt.Fprintf(w, "%-28s %s\n", tag.Type+":", tag.Name)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "News:")
	since := now.Add(-newsWindow)
	for _, item := range v.News {
		created := time.UnixMilli(item.CreatedAt)
		if created.After(since) {
			fmt.Fprintf(w, "%-28s %s\n", created.Format("2006-01-02 15:04")+":", item.Headline)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Detailed information:")
	keys := make([]string, 0, len(v.StockDetails.Company))
	for key := range v.StockDetails.Company {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if v.StockDetails.Company[key] == nil {
			continue
		}
		fmt.Fprintf(w, "%-28s %v\n", key+":", v.StockDetails.Company[key])
	}
	fmt.Fprintln(w)
}
