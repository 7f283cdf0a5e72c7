package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExploracuriousAlex/yapytr/internal/timeline"
)

func testDoc(id, url string) timeline.Document {
	return timeline.Document{
		ID:     id,
		Title:  "Abrechnung",
		Detail: "04.11.2022",
		Action: timeline.Action{Type: "browserModal", Payload: url},
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *History, string) {
	t.Helper()
	dir := t.TempDir()
	h, err := LoadHistory(discardLogger(), filepath.Join(dir, "download_history"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	p := NewPipeline(discardLogger(), http.DefaultClient, h, Options{
		OutputPath: dir,
		Workers:    4,
	})
	return p, h, dir
}

func TestEnqueue_DeduplicatesAgainstQueueAndHistory(t *testing.T) {
	p, h, _ := newTestPipeline(t)

	require.NoError(t, h.Append("https://docs.example/ledgered"))

	p.Enqueue(testDoc("doc-1", "https://docs.example/ledgered?token=x"), "Kauf", "", "")
	assert.Equal(t, 0, p.QueueLen(), "ledger hit must be dropped")

	p.Enqueue(testDoc("doc-2", "https://docs.example/new?token=x"), "Kauf", "", "")
	p.Enqueue(testDoc("doc-2", "https://docs.example/new?token=y"), "Kauf", "", "")
	assert.Equal(t, 1, p.QueueLen(), "queue hit must be dropped")
}

func TestEnqueue_IgnoresDocumentsWithoutURL(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	p.Enqueue(timeline.Document{ID: "doc-1"}, "Kauf", "", "")
	assert.Equal(t, 0, p.QueueLen())
}

func TestRun_EmptyQueueTouchesNothing(t *testing.T) {
	p, h, _ := newTestPipeline(t)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, 0, h.Len())
}

func TestRun_DownloadsAndRecordsLedger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF " + r.URL.Path))
	}))
	defer server.Close()

	p, h, dir := newTestPipeline(t)
	p.Enqueue(testDoc("doc-1", server.URL+"/a?sig=1"), "Kauf", "", "")
	p.Enqueue(testDoc("doc-2", server.URL+"/b?sig=2"), "Verkauf", "", "")

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Completed: 2}, stats)

	assert.True(t, h.Contains(server.URL+"/a"))
	assert.True(t, h.Contains(server.URL+"/b"))

	data, err := os.ReadFile(filepath.Join(dir, "Abrechnung", "2022-11-04 Kauf.pdf"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "%PDF")
}

func TestRun_AttachesSessionHeaders(t *testing.T) {
	var cookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	dir := t.TempDir()
	h, err := LoadHistory(discardLogger(), filepath.Join(dir, "download_history"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	p := NewPipeline(discardLogger(), http.DefaultClient, h, Options{
		OutputPath: dir,
		Headers:    map[string]string{"Cookie": "tr_session=token-1"},
	})
	p.Enqueue(testDoc("doc-1", server.URL+"/a"), "Kauf", "", "")

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Completed: 1}, stats)
	assert.Equal(t, "tr_session=token-1", cookie)
}

func TestRun_IdempotentRerun(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	p, h, dir := newTestPipeline(t)
	p.Enqueue(testDoc("doc-1", server.URL+"/a?sig=1"), "Kauf", "", "")
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	// Second run against the same ledger: the identical server response
	// sequence produces zero new fetches and zero new ledger entries.
	second := NewPipeline(discardLogger(), http.DefaultClient, h, Options{OutputPath: dir})
	second.Enqueue(testDoc("doc-1", server.URL+"/a?sig=1"), "Kauf", "", "")
	assert.Equal(t, 0, second.QueueLen())

	stats, err := second.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, h.Len())
}

func TestRun_CollisionsResolveToIDSuffixedPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	p, _, dir := newTestPipeline(t)
	// Same date, title, and doc type but distinct ids: identical clean
	// paths, so both must deterministically fall back to the id-suffixed
	// path, never the clean one.
	p.Enqueue(testDoc("doc-1", server.URL+"/a"), "Kauf", "", "")
	p.Enqueue(testDoc("doc-2", server.URL+"/b"), "Kauf", "", "")

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Completed: 2}, stats)

	assert.NoFileExists(t, filepath.Join(dir, "Abrechnung", "2022-11-04 Kauf.pdf"))
	assert.FileExists(t, filepath.Join(dir, "Abrechnung", "2022-11-04 Kauf (doc-1).pdf"))
	assert.FileExists(t, filepath.Join(dir, "Abrechnung", "2022-11-04 Kauf (doc-2).pdf"))
}

func TestRun_UnresolvableCollisionIsSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	p, h, _ := newTestPipeline(t)
	// The same document id from two distinct source URLs: clean and
	// id-suffixed paths both collide, which is a configuration problem,
	// not a transient failure.
	p.Enqueue(testDoc("doc-1", server.URL+"/a"), "Kauf", "", "")
	p.Enqueue(testDoc("doc-1", server.URL+"/b"), "Kauf", "", "")

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Unresolvable: 2}, stats)
	assert.Equal(t, 0, h.Len())
}

func TestRun_FailedFetchIsTerminalNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	p, h, _ := newTestPipeline(t)
	p.Enqueue(testDoc("doc-1", server.URL+"/missing"), "Kauf", "", "")
	p.Enqueue(testDoc("doc-2", server.URL+"/ok"), "Verkauf", "", "")

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Completed: 1, Failed: 1}, stats)

	assert.False(t, h.Contains(server.URL+"/missing"))
	assert.True(t, h.Contains(server.URL+"/ok"))
}

func TestRun_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	p, _, _ := newTestPipeline(t)
	p.Enqueue(testDoc("doc-1", server.URL+"/a"), "Kauf", "", "")

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Completed: 1}, stats)
	assert.GreaterOrEqual(t, hits.Load(), int32(2))
}
