package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExploracuriousAlex/yapytr/internal/api"
)

// answer is one scripted inbound frame of the fake broker.
type answer struct {
	id      int
	sub     api.Subscription
	payload string
	detail  bool
}

// fakeBroker serves scripted pages and details in arrival order and
// tracks how many detail subscriptions are outstanding at any instant.
type fakeBroker struct {
	t       *testing.T
	pages   []string
	details map[string]string

	queue    []answer
	nextID   int
	nextPage int

	outstanding    int
	maxOutstanding int
	trace          []string
}

func (f *fakeBroker) Timeline(string) (int, error) {
	f.nextID++
	require.Less(f.t, f.nextPage, len(f.pages), "timeline page requested past the scripted history")
	payload := f.pages[f.nextPage]
	f.nextPage++
	f.queue = append(f.queue, answer{
		id:      f.nextID,
		sub:     api.Subscription{ID: f.nextID, Type: "timeline"},
		payload: payload,
	})
	f.trace = append(f.trace, "page-request")
	return f.nextID, nil
}

func (f *fakeBroker) TimelineDetail(eventID string) (int, error) {
	f.nextID++
	f.outstanding++
	if f.outstanding > f.maxOutstanding {
		f.maxOutstanding = f.outstanding
	}
	payload, ok := f.details[eventID]
	require.True(f.t, ok, "no scripted detail for event %s", eventID)
	f.queue = append(f.queue, answer{
		id:      f.nextID,
		sub:     api.Subscription{ID: f.nextID, Type: "timelineDetail"},
		payload: payload,
		detail:  true,
	})
	f.trace = append(f.trace, "detail-request")
	return f.nextID, nil
}

func (f *fakeBroker) Receive(context.Context) (int, api.Subscription, json.RawMessage, error) {
	if len(f.queue) == 0 {
		return 0, api.Subscription{}, nil, &api.Error{Message: "connection drained"}
	}
	a := f.queue[0]
	f.queue = f.queue[1:]
	if a.detail {
		f.outstanding--
		f.trace = append(f.trace, "detail-answer")
	} else {
		f.trace = append(f.trace, "page-answer")
	}
	return a.id, a.sub, json.RawMessage(a.payload), nil
}

// recordingSink captures enqueued documents.
type recordingSink struct {
	docs       []Document
	titles     []string
	subtitles  []string
	subfolders []string
}

func (s *recordingSink) Enqueue(doc Document, titleText, subtitleText, subfolder string) {
	s.docs = append(s.docs, doc)
	s.titles = append(s.titles, titleText)
	s.subtitles = append(s.subtitles, subtitleText)
	s.subfolders = append(s.subfolders, subfolder)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// makeEvent builds a raw timeline event with a matching detail action.
func makeEvent(id string, timestamp int64, title string) string {
	return fmt.Sprintf(
		`{"type":"timelineEvent","data":{"id":%q,"timestamp":%d,"title":%q,"body":"","action":{"type":"timelineDetail","payload":%q}}}`,
		id, timestamp, title, id)
}

func makePage(cursor string, events ...string) string {
	page := fmt.Sprintf(`{"data":[%s]`, strings.Join(events, ","))
	if cursor != "" {
		page += fmt.Sprintf(`,"cursors":{"after":%q}`, cursor)
	} else {
		page += `,"cursors":{}`
	}
	return page + "}"
}

func makeDetail(id, title, subtitle string, docs ...string) string {
	return fmt.Sprintf(
		`{"id":%q,"titleText":%q,"subtitleText":%q,"sections":[{"type":"documents","documents":[%s]}]}`,
		id, title, subtitle, strings.Join(docs, ","))
}

func makeDoc(id, date, title, url string) string {
	return fmt.Sprintf(
		`{"id":%q,"detail":%q,"title":%q,"action":{"type":"browserModal","payload":%q}}`,
		id, date, title, url)
}

func TestRun_TwoPageStepwiseBatching(t *testing.T) {
	var page1Events, page2Events []string
	details := make(map[string]string)
	for i := 1; i <= 9; i++ {
		id := fmt.Sprintf("ev-%d", i)
		ev := makeEvent(id, int64(1000-i), "Abrechnung")
		if i <= 6 {
			page1Events = append(page1Events, ev)
		} else {
			page2Events = append(page2Events, ev)
		}
		details[id] = makeDetail(id, "Abrechnung", "Kauf",
			makeDoc("doc-"+id, "02.01.2024", "Abrechnung", "https://docs.example/"+id+"?x=1"))
	}

	broker := &fakeBroker{
		t:       t,
		pages:   []string{makePage("cursor-1", page1Events...), makePage("", page2Events...)},
		details: details,
	}
	sink := &recordingSink{}

	tl := New(testLogger(), broker, sink, 0)
	withDocs, withoutDocs, err := tl.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, withDocs, 9)
	assert.Empty(t, withoutDocs)
	assert.Len(t, sink.docs, 9)

	// At most 5 detail subscriptions outstanding at any instant.
	assert.Equal(t, 5, broker.maxOutstanding)

	// The windows must be requested stepwise: a batch of 5, then a batch
	// of 4 once the first window has fully drained, never all at once.
	var batches []int
	run := 0
	for _, op := range broker.trace {
		if op == "detail-request" {
			run++
			continue
		}
		if run > 0 {
			batches = append(batches, run)
			run = 0
		}
	}
	if run > 0 {
		batches = append(batches, run)
	}
	assert.Equal(t, []int{5, 4}, batches)
}

func TestRun_ClassificationIsTotalAndDisjoint(t *testing.T) {
	noAction := `{"data":{"id":"ev-1","timestamp":10,"title":"Zinsen","body":""}}`
	labelOnly := `{"data":{"id":"ev-2","timestamp":11,"title":"Kauf","body":"","actionLabel":"Details"}}`
	wrongType := `{"data":{"id":"ev-3","timestamp":12,"title":"Hinweis","body":"","action":{"type":"browserModal","payload":"ev-3"}}}`
	wrongPayload := `{"data":{"id":"ev-4","timestamp":13,"title":"Kauf","body":"","action":{"type":"timelineDetail","payload":"other"}}}`
	good := makeEvent("ev-5", 14, "Verkauf")

	broker := &fakeBroker{
		t:     t,
		pages: []string{makePage("", noAction, labelOnly, wrongType, wrongPayload, good)},
		details: map[string]string{
			// ev-2 has no action but an action label, so a detail request
			// is still issued for it.
			"ev-2": makeDetail("ev-2", "Kauf", "Kauf"),
			"ev-5": makeDetail("ev-5", "Verkauf", "Verkauf",
				makeDoc("doc-5", "03.01.2024", "Abrechnung", "https://docs.example/5")),
		},
	}

	tl := New(testLogger(), broker, &recordingSink{}, 0)
	withDocs, withoutDocs, err := tl.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, withDocs, 2)
	assert.Len(t, withoutDocs, 3)

	seen := make(map[string]int)
	for _, ev := range append(append([]Event{}, withDocs...), withoutDocs...) {
		seen[ev.Data.ID]++
	}
	require.Len(t, seen, 5)
	for id, count := range seen {
		assert.Equal(t, 1, count, "event %s must land in exactly one partition", id)
	}
}

func TestRun_CutoffAppliedAtClassification(t *testing.T) {
	const cutoff = int64(1_000)

	tooNew := makeEvent("ev-new", 2_000, "Kauf")
	old := makeEvent("ev-old", 500, "Verkauf")

	broker := &fakeBroker{
		t: t,
		// The cursor is present, but the oldest event of the page is past
		// the cutoff, so no second page may ever be requested.
		pages: []string{makePage("cursor-1", tooNew, old)},
		details: map[string]string{
			"ev-old": makeDetail("ev-old", "Verkauf", "Verkauf",
				makeDoc("doc-old", "04.01.2024", "Abrechnung", "https://docs.example/old")),
		},
	}
	sink := &recordingSink{}

	tl := New(testLogger(), broker, sink, cutoff)
	withDocs, withoutDocs, err := tl.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, withDocs, 1)
	assert.Equal(t, "ev-old", withDocs[0].Data.ID)
	require.Len(t, withoutDocs, 1)
	assert.Equal(t, "ev-new", withoutDocs[0].Data.ID)
	assert.Len(t, sink.docs, 1)
	assert.Equal(t, 1, broker.nextPage, "pagination must stop at the cutoff page")
}

func TestRun_DuplicateDocumentIDsSuppressed(t *testing.T) {
	ev1 := makeEvent("ev-1", 10, "Kauf")
	ev2 := makeEvent("ev-2", 11, "Kauf")
	sharedDoc := makeDoc("doc-1", "05.01.2024", "Abrechnung", "https://docs.example/1")

	broker := &fakeBroker{
		t:     t,
		pages: []string{makePage("", ev1, ev2)},
		details: map[string]string{
			"ev-1": makeDetail("ev-1", "Kauf", "Kauf", sharedDoc),
			"ev-2": makeDetail("ev-2", "Kauf", "Kauf", sharedDoc),
		},
	}
	sink := &recordingSink{}

	tl := New(testLogger(), broker, sink, 0)
	_, _, err := tl.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, sink.docs, 1)
}

func TestRun_EmptyHistory(t *testing.T) {
	broker := &fakeBroker{t: t, pages: []string{makePage("")}}

	tl := New(testLogger(), broker, &recordingSink{}, 0)
	withDocs, withoutDocs, err := tl.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, withDocs)
	assert.Empty(t, withoutDocs)
}

func TestRun_SavingsPlanRoutedToSubfolder(t *testing.T) {
	bySubtitle := makeEvent("ev-1", 10, "Sparplan ausgeführt")
	byButtons := makeEvent("ev-2", 11, "Kauf")

	buttonDetail := fmt.Sprintf(
		`{"id":"ev-2","titleText":"Kauf","subtitleText":"Kauf","sections":[`+
			`{"type":"actionButtons","data":[{"action":{"type":"editSavingsPlan"}}]},`+
			`{"type":"documents","documents":[%s]}]}`,
		makeDoc("doc-2", "06.01.2024", "Abrechnung", "https://docs.example/2"))

	broker := &fakeBroker{
		t:     t,
		pages: []string{makePage("", bySubtitle, byButtons)},
		details: map[string]string{
			"ev-1": makeDetail("ev-1", "Sparplan ausgeführt", "Sparplan",
				makeDoc("doc-1", "06.01.2024", "Abrechnung", "https://docs.example/1")),
			"ev-2": buttonDetail,
		},
	}
	sink := &recordingSink{}

	tl := New(testLogger(), broker, sink, 0)
	_, _, err := tl.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.subfolders, 2)
	assert.Equal(t, []string{"Sparplan", "Sparplan"}, sink.subfolders)
}

func TestRun_StockTransferTitleCarriesEventBody(t *testing.T) {
	ev := `{"data":{"id":"ev-1","timestamp":10,"title":"Wertpapierübertrag","body":"Siemens AG","action":{"type":"timelineDetail","payload":"ev-1"}}}`

	broker := &fakeBroker{
		t:     t,
		pages: []string{makePage("", ev)},
		details: map[string]string{
			"ev-1": makeDetail("ev-1", "Wertpapierübertrag", "Eingang",
				makeDoc("doc-1", "07.01.2024", "Abrechnung", "https://docs.example/1")),
		},
	}
	sink := &recordingSink{}

	tl := New(testLogger(), broker, sink, 0)
	_, _, err := tl.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.titles, 1)
	assert.Equal(t, "Wertpapierübertrag - Siemens AG", sink.titles[0])
}

func TestRun_SavingsPlanStockTransferKeepsBareTitle(t *testing.T) {
	ev := `{"data":{"id":"ev-1","timestamp":10,"title":"Wertpapierübertrag","body":"Siemens AG","action":{"type":"timelineDetail","payload":"ev-1"}}}`

	broker := &fakeBroker{
		t:     t,
		pages: []string{makePage("", ev)},
		details: map[string]string{
			// The savings-plan subfolder and the body-carrying title are
			// exclusive: a savings-plan transfer keeps the bare title.
			"ev-1": makeDetail("ev-1", "Wertpapierübertrag", "Sparplan",
				makeDoc("doc-1", "07.01.2024", "Abrechnung", "https://docs.example/1")),
		},
	}
	sink := &recordingSink{}

	tl := New(testLogger(), broker, sink, 0)
	_, _, err := tl.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.titles, 1)
	assert.Equal(t, "Wertpapierübertrag", sink.titles[0])
	assert.Equal(t, []string{"Sparplan"}, sink.subfolders)
}

func TestRun_TransportErrorAbortsRun(t *testing.T) {
	tl := New(testLogger(), &drainedBroker{}, &recordingSink{}, 0)
	_, _, err := tl.Run(context.Background())
	require.Error(t, err)
	var apiErr *api.Error
	assert.ErrorAs(t, err, &apiErr)
}

// drainedBroker accepts the first page subscription and then fails every
// receive, modelling a dropped connection.
type drainedBroker struct{}

func (d *drainedBroker) Timeline(string) (int, error)       { return 1, nil }
func (d *drainedBroker) TimelineDetail(string) (int, error) { return 2, nil }
func (d *drainedBroker) Receive(context.Context) (int, api.Subscription, json.RawMessage, error) {
	return 0, api.Subscription{}, nil, &api.Error{Message: "connection dropped"}
}

func TestWriteEvents_PreservesRawPayload(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(makeEvent("ev-ä", 10, "Überweisung")), &ev))

	path := filepath.Join(t.TempDir(), "out", "events.json")
	require.NoError(t, WriteEvents(path, []Event{ev}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Überweisung")
	assert.Contains(t, string(data), `"timestamp": 10`)
}
