package timeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Event is one entry of the account event history. Raw keeps the exact
// server representation so the partition files reproduce every field;
// Data carries the parsed subset the paginator classifies on.
type Event struct {
	Raw  json.RawMessage
	Data EventData
}

// EventData is the classified subset of an event.
type EventData struct {
	ID          string  `json:"id"`
	Timestamp   int64   `json:"timestamp"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	ActionLabel *string `json:"actionLabel"`
	Action      *Action `json:"action"`
}

// Action is the action descriptor attached to an event or a document.
type Action struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// PayloadString returns the action payload when it is a plain string.
func (a *Action) PayloadString() string {
	s, _ := a.Payload.(string)
	return s
}

func (e *Event) UnmarshalJSON(b []byte) error {
	e.Raw = append(json.RawMessage(nil), b...)
	var wrapper struct {
		Data EventData `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return fmt.Errorf("decode timeline event: %w", err)
	}
	e.Data = wrapper.Data
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Raw == nil {
		return []byte("null"), nil
	}
	return e.Raw, nil
}

// page is one inbound timeline page.
type page struct {
	Data    []Event `json:"data"`
	Cursors struct {
		After *string `json:"after"`
	} `json:"cursors"`
}

// Detail is the detail payload of a single timeline event.
type Detail struct {
	ID           string    `json:"id"`
	TitleText    string    `json:"titleText"`
	SubtitleText string    `json:"subtitleText"`
	Sections     []Section `json:"sections"`
}

// Section is one block of a detail payload. Documents is populated for
// sections of type "documents"; Data holds the undecoded rest, from which
// action buttons are extracted on demand.
type Section struct {
	Type      string          `json:"type"`
	Documents []Document      `json:"documents"`
	Data      json.RawMessage `json:"data"`
}

// Document is a downloadable document reference inside a detail payload.
type Document struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Action Action `json:"action"`
}

// button is an entry of an "actionButtons" section.
type button struct {
	Action Action `json:"action"`
}

// WriteEvents writes a pretty-printed JSON file of events, preserving
// non-ASCII characters, creating parent directories as needed.
func WriteEvents(path string, events []Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if events == nil {
		events = []Event{}
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
