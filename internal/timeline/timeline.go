// Package timeline walks the account event history backward in time via
// opaque cursors and fetches detail payloads for individual events,
// bounded by a fixed window of outstanding detail subscriptions.
package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ExploracuriousAlex/yapytr/internal/api"
)

// detailWindow bounds the number of detail subscriptions outstanding at
// any instant.
const detailWindow = 5

// detailActionType is the action type that marks an event as carrying a
// downloadable detail payload.
const detailActionType = "timelineDetail"

// Broker is the slice of the subscription multiplexer the paginator uses.
type Broker interface {
	Timeline(after string) (int, error)
	TimelineDetail(eventID string) (int, error)
	Receive(ctx context.Context) (int, api.Subscription, json.RawMessage, error)
}

// DocumentSink consumes the document references of resolved detail
// payloads. The download pipeline implements it.
type DocumentSink interface {
	Enqueue(doc Document, titleText, subtitleText, subfolder string)
}

type state int

const (
	awaitingFirstPage state = iota
	awaitingNextPage
	requestingDetails
	draining
	done
)

// Timeline is the paginator state machine. It runs on a single-threaded
// cooperative schedule: all protocol activity is driven from the one
// receive suspension point in Run, so no locking is needed.
type Timeline struct {
	logger *slog.Logger
	broker Broker
	sink   DocumentSink

	// maxAge is the optional age cutoff in epoch milliseconds, 0 for
	// unbounded. It is applied at classification time.
	maxAge int64

	state state

	pages            int
	totalDetails     int
	requestedDetails int
	receivedDetails  int

	// pending holds events awaiting classification, last-in-first-out.
	pending []Event

	withDocs    []Event
	withoutDocs []Event

	processedDocIDs map[string]bool
}

// New creates a paginator over the given broker. Documents found in
// detail payloads are handed to sink. maxAge of 0 disables the cutoff.
func New(logger *slog.Logger, broker Broker, sink DocumentSink, maxAge int64) *Timeline {
	return &Timeline{
		logger:          logger,
		broker:          broker,
		sink:            sink,
		maxAge:          maxAge,
		processedDocIDs: make(map[string]bool),
	}
}

// Run requests the first page and processes inbound messages until every
// with-document event has its detail payload resolved. It returns the two
// event partitions: every event ever dequeued ends up in exactly one.
func (t *Timeline) Run(ctx context.Context) (withDocs, withoutDocs []Event, err error) {
	t.logger.Info("awaiting first timeline page")
	if _, err := t.broker.Timeline(""); err != nil {
		return nil, nil, err
	}
	t.state = awaitingFirstPage

	for t.state != done {
		id, sub, payload, err := t.broker.Receive(ctx)
		if err != nil {
			return nil, nil, err
		}

		switch sub.Type {
		case "timeline":
			err = t.handlePage(payload)
		case detailActionType:
			err = t.handleDetail(payload)
		default:
			t.logger.Warn("unmatched subscription", "type", sub.Type, "id", id)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	return t.withDocs, t.withoutDocs, nil
}

// handlePage appends the page's events to the pending stack and either
// requests the next page or, when the history is exhausted, starts the
// detail phase with a full window.
func (t *Timeline) handlePage(payload json.RawMessage) error {
	var p page
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode timeline page: %w", err)
	}

	t.pages++
	t.totalDetails += len(p.Data)
	t.pending = append(t.pending, p.Data...)

	var oldest int64
	if len(p.Data) > 0 {
		oldest = p.Data[len(p.Data)-1].Data.Timestamp
	}

	switch {
	case p.Cursors.After == nil:
		t.logger.Info("received last timeline page", "page", t.pages)
		return t.beginDetails()
	case t.maxAge != 0 && oldest < t.maxAge:
		t.logger.Info("received timeline page", "page", t.pages)
		t.logger.Info("reached last relevant timeline page for the configured cutoff")
		return t.beginDetails()
	default:
		t.logger.Info("received timeline page, awaiting next",
			"page", t.pages, "next", t.pages+1)
		_, err := t.broker.Timeline(*p.Cursors.After)
		return err
	}
}

func (t *Timeline) beginDetails() error {
	t.state = requestingDetails
	if err := t.requestDetails(detailWindow); err != nil {
		return err
	}
	t.state = draining
	t.checkDone()
	return nil
}

// requestDetails classifies events popped off the pending stack and
// issues detail requests for up to n of them. Events failing
// classification go straight to the without-document partition and do not
// count toward the window.
func (t *Timeline) requestDetails(n int) error {
	for n > 0 {
		if len(t.pending) == 0 {
			t.logger.Info("all timeline details requested")
			return nil
		}

		ev := t.pending[len(t.pending)-1]
		t.pending = t.pending[:len(t.pending)-1]

		if reason := t.classify(ev); reason != "" {
			t.withoutDocs = append(t.withoutDocs, ev)
			t.totalDetails--
			t.logger.Debug("skipping event",
				"reason", reason, "title", ev.Data.Title, "body", ev.Data.Body)
			continue
		}

		t.withDocs = append(t.withDocs, ev)
		n--
		t.requestedDetails++
		if _, err := t.broker.TimelineDetail(ev.Data.ID); err != nil {
			return err
		}
	}
	return nil
}

// classify partitions an event. An empty reason means the event carries a
// downloadable detail payload; any other value names why it does not.
// Rules are evaluated in order, first match wins.
func (t *Timeline) classify(ev Event) string {
	d := ev.Data
	switch {
	case t.maxAge != 0 && d.Timestamp > t.maxAge:
		return "too old"
	case d.Action == nil:
		if d.ActionLabel == nil {
			return "no action"
		}
		return ""
	case d.Action.Type != detailActionType:
		return fmt.Sprintf("action type unmatched (%s)", d.Action.Type)
	case d.Action.PayloadString() != d.ID:
		return fmt.Sprintf("payload unmatched (%v)", d.Action.Payload)
	}
	return ""
}

// handleDetail processes one resolved detail payload: refills the window
// when the outstanding count returns to zero, extracts document
// references, and routes them to the sink.
func (t *Timeline) handleDetail(payload json.RawMessage) error {
	var detail Detail
	if err := json.Unmarshal(payload, &detail); err != nil {
		return fmt.Errorf("decode timeline detail: %w", err)
	}

	t.receivedDetails++
	t.logger.Debug("received timeline detail", "received", t.receivedDetails)

	// When every requested detail has been received, request the next
	// window from the pending stack.
	if t.receivedDetails == t.requestedDetails {
		next := detailWindow
		if remaining := len(t.pending); remaining < next {
			next = remaining
		}
		if err := t.requestDetails(next); err != nil {
			return err
		}
	}

	savingsPlan := t.isSavingsPlan(detail)
	t.logger.Info("timeline detail",
		"received", t.receivedDetails,
		"total", t.totalDetails,
		"title", detail.TitleText,
		"subtitle", detail.SubtitleText,
		"savings_plan", savingsPlan)

	t.collectDocuments(detail, savingsPlan)

	t.checkDone()
	return nil
}

// isSavingsPlan reports whether a detail payload belongs to a recurring
// savings plan: either the subtitle says so, or the detail carries
// savings-plan edit/delete action buttons.
func (t *Timeline) isSavingsPlan(detail Detail) bool {
	if detail.SubtitleText == "Sparplan" {
		return true
	}
	for _, section := range detail.Sections {
		if section.Type != "actionButtons" || section.Data == nil {
			continue
		}
		var buttons []button
		if err := json.Unmarshal(section.Data, &buttons); err != nil {
			continue
		}
		for _, b := range buttons {
			if b.Action.Type == "editSavingsPlan" || b.Action.Type == "deleteSavingsPlan" {
				return true
			}
		}
	}
	return false
}

// collectDocuments routes every not-yet-seen document reference of the
// detail payload to the sink. A document's own date is checked against
// the cutoff: document dates may differ from their event's timestamp.
func (t *Timeline) collectDocuments(detail Detail, savingsPlan bool) {
	for _, section := range detail.Sections {
		if section.Type != "documents" {
			continue
		}
		for _, doc := range section.Documents {
			if t.processedDocIDs[doc.ID] {
				t.logger.Debug("document already processed", "id", doc.ID)
				continue
			}
			t.processedDocIDs[doc.ID] = true

			timestamp := documentTimestamp(doc)
			if t.maxAge != 0 && t.maxAge >= timestamp {
				continue
			}

			// Savings-plan documents go to their subfolder as-is; only
			// outside a savings plan does a stock transfer carry the event
			// body in its title.
			title := detail.TitleText
			subfolder := ""
			if savingsPlan {
				subfolder = "Sparplan"
			} else if title == "Wertpapierübertrag" {
				if body := t.eventBody(detail.ID); body != "" {
					title += " - " + body
				}
			}
			t.sink.Enqueue(doc, title, detail.SubtitleText, subfolder)
		}
	}
}

// eventBody looks up the body of the with-document event a detail payload
// belongs to.
func (t *Timeline) eventBody(eventID string) string {
	for _, ev := range t.withDocs {
		if ev.Data.ID == eventID {
			return ev.Data.Body
		}
	}
	return ""
}

// documentTimestamp parses a document's "detail" date ("02.01.2006"),
// falling back to now for free-text values.
func documentTimestamp(doc Document) int64 {
	parsed, err := time.Parse("02.01.2006", doc.Detail)
	if err != nil {
		return time.Now().UnixMilli()
	}
	return parsed.UnixMilli()
}

// checkDone marks the run finished once the count of received detail
// responses equals the count of events classified as with-document.
func (t *Timeline) checkDone() {
	if t.state == done || t.state < requestingDetails {
		return
	}
	if t.receivedDetails == t.totalDetails {
		t.logger.Info("all timeline details received",
			"with_documents", len(t.withDocs),
			"without_documents", len(t.withoutDocs))
		t.state = done
	}
}
